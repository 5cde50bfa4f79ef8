package economy

import (
	"context"
	"fmt"
	"time"
)

// Fabric returns the derived view of the account's production asset. The
// first access stamps the payment clock so the grace period starts counting
// from adoption rather than from the epoch.
func (s *Service) Fabric(ctx context.Context, userID, guildID string) (*FabricView, error) {
	acc, err := s.Ensure(ctx, userID, guildID)
	if err != nil {
		return nil, err
	}
	if acc.Timeouts.FabricPayment == nil {
		now := time.Now()
		if err := s.store.SetField(ctx, key(userID, guildID), FieldTimeoutPayment, now); err != nil {
			return nil, fmt.Errorf("fabric payment stamp: %w", err)
		}
		acc.Timeouts.FabricPayment = &now
	}
	v := DeriveFabric(acc, time.Now())
	return &v, nil
}

// Collect pays out the fabric's income. Silent no-op (current view returned
// unchanged) whenever the fabric is on cooldown, delinquent, or sale-locked;
// callers distinguish by inspecting Collectable on the result.
func (s *Service) Collect(ctx context.Context, userID, guildID string) (*FabricView, error) {
	acc, err := s.Fetch(ctx, userID, guildID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	view := DeriveFabric(acc, now)
	if !view.Collectable {
		return &view, nil
	}

	k := key(userID, guildID)
	xp := s.randIn(CollectXPMin, CollectXPMax)

	if err := s.store.SetField(ctx, k, FieldTimeoutCollect, now); err != nil {
		return nil, fmt.Errorf("collect stamp: %w", err)
	}
	if err := s.store.Increment(ctx, k, FieldBank, view.ReceivableMoney); err != nil {
		return nil, fmt.Errorf("collect payout: %w", err)
	}
	if err := s.store.Increment(ctx, k, FieldFabricXP, xp); err != nil {
		return nil, fmt.Errorf("collect xp: %w", err)
	}
	// XP is carried forward on level-up, not subtracted.
	if acc.Fabric.XP+xp >= LevelUpXP(acc.Fabric.Level) {
		if err := s.store.Increment(ctx, k, FieldFabricLevel, 1); err != nil {
			return nil, fmt.Errorf("collect level: %w", err)
		}
		s.log.Info("fabric leveled up", "user_id", userID, "guild_id", guildID, "level", acc.Fabric.Level+1)
	}

	updated, err := s.Fetch(ctx, userID, guildID)
	if err != nil {
		return nil, err
	}
	out := DeriveFabric(updated, time.Now())
	return &out, nil
}

// Hire adds one employee for the current employee price. Silent no-op when
// the fabric is at capacity (level x 20) or the bank cannot cover the price.
func (s *Service) Hire(ctx context.Context, userID, guildID string) (*FabricView, error) {
	acc, err := s.Fetch(ctx, userID, guildID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	view := DeriveFabric(acc, now)

	if acc.Fabric.Employees >= acc.Fabric.Level*MaxEmployeesPerLevel {
		return &view, nil
	}
	price := EmployeePrice(acc.Fabric.Level)
	if acc.Bank < price {
		return &view, nil
	}

	k := key(userID, guildID)
	if err := s.store.Decrement(ctx, k, FieldBank, price); err != nil {
		return nil, fmt.Errorf("hire debit: %w", err)
	}
	if err := s.store.Increment(ctx, k, FieldFabricEmployees, 1); err != nil {
		return nil, fmt.Errorf("hire employee: %w", err)
	}

	updated, err := s.Fetch(ctx, userID, guildID)
	if err != nil {
		return nil, err
	}
	out := DeriveFabric(updated, time.Now())
	return &out, nil
}

// Pay settles an overdue upkeep bill. Silent no-op unless the payment is
// actually late and the bank covers the bill; the debit and the timestamp
// stamp are two separate writes (known narrow inconsistency window on crash
// between them).
func (s *Service) Pay(ctx context.Context, userID, guildID string) (*FabricView, error) {
	acc, err := s.Fetch(ctx, userID, guildID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	view := DeriveFabric(acc, now)
	if !view.LatePayment || acc.Bank < view.ValueToPay {
		return &view, nil
	}

	k := key(userID, guildID)
	if err := s.store.Decrement(ctx, k, FieldBank, view.ValueToPay); err != nil {
		return nil, fmt.Errorf("pay debit: %w", err)
	}
	if err := s.store.SetField(ctx, k, FieldTimeoutPayment, now); err != nil {
		return nil, fmt.Errorf("pay stamp: %w", err)
	}

	updated, err := s.Fetch(ctx, userID, guildID)
	if err != nil {
		return nil, err
	}
	out := DeriveFabric(updated, time.Now())
	s.log.Info("fabric payment settled", "user_id", userID, "guild_id", guildID, "amount", view.ValueToPay)
	return &out, nil
}

// Sell liquidates the given percentage of the fabric's valuation into the
// bank and resets the asset. Unlike the no-op fabric actions this fails
// explicitly: selling an already-sold fabric or an out-of-range percentage
// is an error.
func (s *Service) Sell(ctx context.Context, percentage int64, userID, guildID string) (*FabricView, error) {
	if percentage < 0 || percentage > 100 {
		return nil, ErrInvalidPercentage
	}
	acc, err := s.Fetch(ctx, userID, guildID)
	if err != nil {
		return nil, err
	}
	if acc.Fabric.SoldPercentage != nil {
		return nil, ErrFabricSold
	}

	now := time.Now()
	amount := SellPrice(Valuation(acc.Fabric.Level, acc.Fabric.Employees, acc.Fabric.XP), percentage)

	if err := s.resetFabricFields(ctx, userID, guildID); err != nil {
		return nil, err
	}
	k := key(userID, guildID)
	if err := s.store.SetField(ctx, k, FieldTimeoutSold, now); err != nil {
		return nil, fmt.Errorf("sell stamp: %w", err)
	}
	if err := s.store.SetField(ctx, k, FieldSoldPercentage, percentage); err != nil {
		return nil, fmt.Errorf("sell percentage: %w", err)
	}
	if err := s.store.Increment(ctx, k, FieldBank, amount); err != nil {
		return nil, fmt.Errorf("sell credit: %w", err)
	}

	updated, err := s.Fetch(ctx, userID, guildID)
	if err != nil {
		return nil, err
	}
	out := DeriveFabric(updated, time.Now())
	s.log.Info("fabric sold", "user_id", userID, "guild_id", guildID, "percentage", percentage, "amount", amount)
	return &out, nil
}

// ResetFabric unconditionally zeroes the fabric and clears the sold lock.
// Used by Sell internally and exposed for administrative recovery.
func (s *Service) ResetFabric(ctx context.Context, userID, guildID string) (*FabricView, error) {
	if _, err := s.Fetch(ctx, userID, guildID); err != nil {
		return nil, err
	}
	if err := s.resetFabricFields(ctx, userID, guildID); err != nil {
		return nil, err
	}
	if err := s.store.SetField(ctx, key(userID, guildID), FieldSoldPercentage, nil); err != nil {
		return nil, fmt.Errorf("reset fabric: %w", err)
	}
	updated, err := s.Fetch(ctx, userID, guildID)
	if err != nil {
		return nil, err
	}
	out := DeriveFabric(updated, time.Now())
	return &out, nil
}

func (s *Service) resetFabricFields(ctx context.Context, userID, guildID string) error {
	k := key(userID, guildID)
	if err := s.store.SetField(ctx, k, FieldFabricXP, int64(0)); err != nil {
		return fmt.Errorf("reset fabric xp: %w", err)
	}
	if err := s.store.SetField(ctx, k, FieldFabricLevel, int64(1)); err != nil {
		return fmt.Errorf("reset fabric level: %w", err)
	}
	if err := s.store.SetField(ctx, k, FieldFabricEmployees, int64(0)); err != nil {
		return fmt.Errorf("reset fabric employees: %w", err)
	}
	return nil
}
