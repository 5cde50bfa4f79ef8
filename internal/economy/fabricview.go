package economy

import (
	"math"
	"time"
)

// FabricView is the transient projection of a fabric, recomputed from the
// persisted FabricState and the wall clock on every read. It is never
// written back; only its constituent fabric.* and timeouts.* fields are.
type FabricView struct {
	UserID         string     `json:"user_id"`
	GuildID        string     `json:"guild_id,omitempty"`
	XP             int64      `json:"xp"`
	Level          int64      `json:"level"`
	Employees      int64      `json:"employees"`
	SoldPercentage *int64     `json:"sold_percentage,omitempty"`
	LastCollect    *time.Time `json:"last_collect,omitempty"`
	LastPayment    *time.Time `json:"last_payment,omitempty"`
	SoldAt         *time.Time `json:"sold_at,omitempty"`

	Collectable     bool  `json:"collectable"`
	LatePayment     bool  `json:"late_payment"`
	ValueToPay      int64 `json:"value_to_pay"`
	ReceivableMoney int64 `json:"receivable_money"`
	LevelUpXP       int64 `json:"level_up_xp"`
	EmployeePrice   int64 `json:"employee_price"`
	Valuation       int64 `json:"valuation"`
}

// LevelUpXP is the xp threshold at which a fabric of the given level levels up.
func LevelUpXP(level int64) int64 {
	return level * level * 275
}

// ReceivableMoney is the payout of a single collection.
func ReceivableMoney(level, employees, xp int64) int64 {
	return int64(math.Floor((float64(employees)*5 + float64(level)*100 + float64(xp)/2) * 0.75))
}

// EmployeePrice is the bank cost of hiring one employee.
func EmployeePrice(level int64) int64 {
	return level * 150
}

// ValueToPay is the outstanding upkeep bill. daysLate accrues a penalty of
// level*250 per whole day since the last payment.
func ValueToPay(level, employees, daysLate int64) int64 {
	return int64(math.Floor(float64(level)*float64(employees)*0.25*25 + float64(daysLate)*float64(level)*250))
}

// CollectTimeout is the cooldown between collections.
func CollectTimeout(level int64) time.Duration {
	return time.Duration(level+2) * time.Hour
}

// Valuation annualizes the fabric's projected income; sale pricing is based
// on it.
func Valuation(level, employees, xp int64) int64 {
	perYear := 365 * 24 / float64(level+2)
	return int64(math.Floor(perYear * float64(ReceivableMoney(level, employees, xp))))
}

// SellPrice is the bank credit for liquidating the given percentage of the
// fabric's valuation.
func SellPrice(valuation, percentage int64) int64 {
	return int64(math.Floor(float64(valuation) / 100 * float64(percentage)))
}

// SellLockWindow is how long a sold fabric stays locked before it can be
// reset and reused.
func SellLockWindow(level int64) time.Duration {
	months := level*3 + 1
	return time.Duration(months) * LockMonth
}

// DaysLate counts whole days elapsed since the last payment, zero when the
// payment clock has never been stamped.
func DaysLate(lastPayment *time.Time, now time.Time) int64 {
	if lastPayment == nil {
		return 0
	}
	d := now.Sub(*lastPayment)
	if d <= 0 {
		return 0
	}
	return int64(d / (24 * time.Hour))
}

// DeriveFabric computes the full fabric projection for an account at the
// given instant. Pure; the account is not modified.
func DeriveFabric(a *Account, now time.Time) FabricView {
	f := a.Fabric
	t := a.Timeouts

	v := FabricView{
		UserID:         a.UserID,
		GuildID:        a.GuildID,
		XP:             f.XP,
		Level:          f.Level,
		Employees:      f.Employees,
		SoldPercentage: f.SoldPercentage,
		LastCollect:    t.FabricCollect,
		LastPayment:    t.FabricPayment,
		SoldAt:         t.SoldFabric,
	}

	// Strictly greater than the grace period; exactly seven days is still
	// on time.
	if t.FabricPayment != nil && now.Sub(*t.FabricPayment) > PaymentGracePeriod {
		v.LatePayment = true
	}

	v.Collectable = true
	if v.LatePayment {
		v.Collectable = false
	}
	if t.FabricCollect != nil && now.Sub(*t.FabricCollect) < CollectTimeout(f.Level) {
		v.Collectable = false
	}
	if f.SoldPercentage != nil && t.SoldFabric != nil && now.Sub(*t.SoldFabric) < SellLockWindow(f.Level) {
		v.Collectable = false
	}

	v.ValueToPay = ValueToPay(f.Level, f.Employees, DaysLate(t.FabricPayment, now))
	v.ReceivableMoney = ReceivableMoney(f.Level, f.Employees, f.XP)
	v.LevelUpXP = LevelUpXP(f.Level)
	v.EmployeePrice = EmployeePrice(f.Level)
	v.Valuation = Valuation(f.Level, f.Employees, f.XP)
	return v
}
