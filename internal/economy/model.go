package economy

import (
	"errors"
	"time"
)

const (
	// Grace period after a payment before the fabric turns delinquent.
	PaymentGracePeriod = 7 * 24 * time.Hour

	// One "month" of the resale lock window.
	LockMonth = 30 * 24 * time.Hour

	MaxEmployeesPerLevel = 20

	CollectXPMin = 20
	CollectXPMax = 35
)

var (
	ErrInvalidAmount     = errors.New("amount must be a non-negative integer")
	ErrInvalidPercentage = errors.New("percentage must be between 0 and 100")
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrFabricSold        = errors.New("fabric already sold")
	ErrItemNotFound      = errors.New("item not found")
	ErrInvalidUserID     = errors.New("user id must be a non-empty string")
)

// Account is the persisted root entity. GuildID "" is the global scope,
// distinct from every guild scope.
type Account struct {
	UserID    string      `json:"user_id"`
	GuildID   string      `json:"guild_id,omitempty"`
	Wallet    int64       `json:"wallet"`
	Bank      int64       `json:"bank"`
	Inventory []string    `json:"inventory"`
	Timeouts  Timeouts    `json:"timeouts"`
	Fabric    FabricState `json:"fabric"`
}

// Timeouts holds the last-fired instant of every gated action. A nil entry
// means the action has never fired for this account.
type Timeouts struct {
	Work          *time.Time `json:"work,omitempty"`
	Daily         *time.Time `json:"daily,omitempty"`
	FabricCollect *time.Time `json:"fabric_collect,omitempty"`
	FabricPayment *time.Time `json:"fabric_payment,omitempty"`
	SoldFabric    *time.Time `json:"sold_fabric,omitempty"`
}

// FabricState is the persisted slice of the production asset. Everything
// else about the fabric is derived per read, never stored.
type FabricState struct {
	XP             int64  `json:"xp"`
	Level          int64  `json:"level"`
	Employees      int64  `json:"employees"`
	SoldPercentage *int64 `json:"sold_percentage,omitempty"`
}

// NewAccount returns the all-default record Ensure writes on first access.
func NewAccount(userID, guildID string) *Account {
	return &Account{
		UserID:    userID,
		GuildID:   guildID,
		Inventory: []string{},
		Fabric:    FabricState{Level: 1},
	}
}

func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := *a
	out.Inventory = append([]string(nil), a.Inventory...)
	out.Timeouts = a.Timeouts.clone()
	if a.Fabric.SoldPercentage != nil {
		v := *a.Fabric.SoldPercentage
		out.Fabric.SoldPercentage = &v
	}
	return &out
}

func (t Timeouts) clone() Timeouts {
	cp := func(p *time.Time) *time.Time {
		if p == nil {
			return nil
		}
		v := *p
		return &v
	}
	return Timeouts{
		Work:          cp(t.Work),
		Daily:         cp(t.Daily),
		FabricCollect: cp(t.FabricCollect),
		FabricPayment: cp(t.FabricPayment),
		SoldFabric:    cp(t.SoldFabric),
	}
}

func (a *Account) HasItem(itemID string) bool {
	for _, id := range a.Inventory {
		if id == itemID {
			return true
		}
	}
	return false
}
