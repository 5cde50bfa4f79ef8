package economy

import (
	"context"
	"fmt"
)

// AddMoney credits amount to the account's bank. It never creates accounts;
// an absent target is ErrAccountNotFound.
func (s *Service) AddMoney(ctx context.Context, amount int64, userID, guildID string) (*Account, error) {
	if amount < 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := s.Fetch(ctx, userID, guildID); err != nil {
		return nil, err
	}
	if err := s.store.Increment(ctx, key(userID, guildID), FieldBank, amount); err != nil {
		return nil, fmt.Errorf("add money: %w", err)
	}
	return s.Fetch(ctx, userID, guildID)
}

// RemoveMoney debits amount from the bank. Sufficiency is deliberately not
// checked here; the fabric payment flow pre-checks and relies on the
// unconditional debit.
func (s *Service) RemoveMoney(ctx context.Context, amount int64, userID, guildID string) (*Account, error) {
	if amount < 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := s.Fetch(ctx, userID, guildID); err != nil {
		return nil, err
	}
	if err := s.store.Decrement(ctx, key(userID, guildID), FieldBank, amount); err != nil {
		return nil, fmt.Errorf("remove money: %w", err)
	}
	return s.Fetch(ctx, userID, guildID)
}

// Deposit moves amount from wallet to bank.
func (s *Service) Deposit(ctx context.Context, amount int64, userID, guildID string) (*Account, error) {
	if amount < 0 {
		return nil, ErrInvalidAmount
	}
	acc, err := s.Fetch(ctx, userID, guildID)
	if err != nil {
		return nil, err
	}
	if acc.Wallet < amount {
		return nil, ErrInsufficientFunds
	}
	k := key(userID, guildID)
	if err := s.store.Decrement(ctx, k, FieldWallet, amount); err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}
	if err := s.store.Increment(ctx, k, FieldBank, amount); err != nil {
		return nil, fmt.Errorf("deposit: %w", err)
	}
	return s.Fetch(ctx, userID, guildID)
}

// Withdraw moves amount from bank to wallet.
func (s *Service) Withdraw(ctx context.Context, amount int64, userID, guildID string) (*Account, error) {
	if amount < 0 {
		return nil, ErrInvalidAmount
	}
	acc, err := s.Fetch(ctx, userID, guildID)
	if err != nil {
		return nil, err
	}
	if acc.Bank < amount {
		return nil, ErrInsufficientFunds
	}
	k := key(userID, guildID)
	if err := s.store.Decrement(ctx, k, FieldBank, amount); err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}
	if err := s.store.Increment(ctx, k, FieldWallet, amount); err != nil {
		return nil, fmt.Errorf("withdraw: %w", err)
	}
	return s.Fetch(ctx, userID, guildID)
}

// Transfer debits the sender's wallet and credits the receiver's bank. The
// two mutations are independent single-account writes with no cross-account
// transaction; the debit is validated and applied before the credit. With
// SafeTransfers enabled a failed credit re-credits the sender's wallet.
func (s *Service) Transfer(ctx context.Context, amount int64, fromUserID, toUserID, guildID string) (*Account, error) {
	if amount < 0 {
		return nil, ErrInvalidAmount
	}
	if fromUserID == "" || toUserID == "" {
		return nil, ErrInvalidUserID
	}
	from, err := s.Fetch(ctx, fromUserID, guildID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Fetch(ctx, toUserID, guildID); err != nil {
		return nil, err
	}
	if from.Wallet < amount {
		return nil, ErrInsufficientFunds
	}

	fk := key(fromUserID, guildID)
	tk := key(toUserID, guildID)
	if err := s.store.Decrement(ctx, fk, FieldWallet, amount); err != nil {
		return nil, fmt.Errorf("transfer debit: %w", err)
	}
	if err := s.store.Increment(ctx, tk, FieldBank, amount); err != nil {
		if s.opts.SafeTransfers {
			if rbErr := s.store.Increment(ctx, fk, FieldWallet, amount); rbErr != nil {
				s.log.Error("transfer compensation failed", "from", fromUserID, "to", toUserID, "amount", amount, "err", rbErr)
			}
		} else {
			s.log.Error("transfer credit failed after debit", "from", fromUserID, "to", toUserID, "amount", amount, "err", err)
		}
		return nil, fmt.Errorf("transfer credit: %w", err)
	}
	return s.Fetch(ctx, fromUserID, guildID)
}

// GiveItem appends itemID to the inventory. Duplicates are filtered.
func (s *Service) GiveItem(ctx context.Context, userID, guildID, itemID string) (*Account, error) {
	acc, err := s.Fetch(ctx, userID, guildID)
	if err != nil {
		return nil, err
	}
	if acc.HasItem(itemID) {
		return acc, nil
	}
	inv := append(append([]string(nil), acc.Inventory...), itemID)
	if err := s.store.SetField(ctx, key(userID, guildID), FieldInventory, inv); err != nil {
		return nil, fmt.Errorf("give item: %w", err)
	}
	return s.Fetch(ctx, userID, guildID)
}

// TakeItem removes one occurrence of itemID from the inventory.
func (s *Service) TakeItem(ctx context.Context, userID, guildID, itemID string) (*Account, error) {
	acc, err := s.Fetch(ctx, userID, guildID)
	if err != nil {
		return nil, err
	}
	inv := make([]string, 0, len(acc.Inventory))
	removed := false
	for _, id := range acc.Inventory {
		if !removed && id == itemID {
			removed = true
			continue
		}
		inv = append(inv, id)
	}
	if !removed {
		return acc, nil
	}
	if err := s.store.SetField(ctx, key(userID, guildID), FieldInventory, inv); err != nil {
		return nil, fmt.Errorf("take item: %w", err)
	}
	return s.Fetch(ctx, userID, guildID)
}
