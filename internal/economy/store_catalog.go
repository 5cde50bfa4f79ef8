package economy

import (
	"context"
	"errors"
	"fmt"
)

// Item is one purchasable store entry. The catalog is injected at
// construction; there is no process-wide item registry.
type Item struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Price       int64  `json:"price" yaml:"price"`
}

// BuyErr discriminates a purchase receipt. Empty means the purchase went
// through.
type BuyErr string

const (
	BuyNotEnoughMoney BuyErr = "NOT_ENOUGH_MONEY"
	BuyUserNotFound   BuyErr = "USER_NOT_FOUND"
)

// Receipt is the discriminated outcome of a store purchase.
type Receipt struct {
	UserID  string `json:"user_id"`
	GuildID string `json:"guild_id,omitempty"`
	ItemID  string `json:"item_id"`
	Err     BuyErr `json:"err,omitempty"`
}

// Store sells a fixed catalog of items against account wallets.
type Store struct {
	svc   *Service
	items []Item
	index map[string]Item
}

// NewStore builds a store over the service's ledger. Duplicate item ids are
// rejected up front.
func NewStore(svc *Service, items []Item) (*Store, error) {
	index := make(map[string]Item, len(items))
	for _, it := range items {
		if it.ID == "" {
			return nil, fmt.Errorf("store item with empty id")
		}
		if it.Price < 0 {
			return nil, fmt.Errorf("store item %q: %w", it.ID, ErrInvalidAmount)
		}
		if _, dup := index[it.ID]; dup {
			return nil, fmt.Errorf("store item %q declared twice", it.ID)
		}
		index[it.ID] = it
	}
	return &Store{svc: svc, items: append([]Item(nil), items...), index: index}, nil
}

// Items returns the catalog in declaration order.
func (st *Store) Items() []Item {
	return append([]Item(nil), st.items...)
}

// Item looks up one catalog entry.
func (st *Store) Item(itemID string) (Item, error) {
	it, ok := st.index[itemID]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return it, nil
}

// Buy debits the item price from the wallet and appends the item to the
// inventory. Business outcomes (missing account, short wallet) come back in
// the receipt, not as errors; an unknown item is a validation error.
func (st *Store) Buy(ctx context.Context, userID, guildID, itemID string) (*Receipt, error) {
	item, err := st.Item(itemID)
	if err != nil {
		return nil, err
	}
	rcpt := &Receipt{UserID: userID, GuildID: guildID, ItemID: itemID}

	acc, err := st.svc.Fetch(ctx, userID, guildID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			rcpt.Err = BuyUserNotFound
			return rcpt, nil
		}
		return nil, err
	}
	if acc.Wallet < item.Price {
		rcpt.Err = BuyNotEnoughMoney
		return rcpt, nil
	}

	k := key(userID, guildID)
	if err := st.svc.store.Decrement(ctx, k, FieldWallet, item.Price); err != nil {
		return nil, fmt.Errorf("buy debit: %w", err)
	}
	inv := append(append([]string(nil), acc.Inventory...), itemID)
	if err := st.svc.store.SetField(ctx, k, FieldInventory, inv); err != nil {
		return nil, fmt.Errorf("buy inventory: %w", err)
	}
	st.svc.log.Info("item purchased", "user_id", userID, "guild_id", guildID, "item_id", itemID, "price", item.Price)
	return rcpt, nil
}
