package economy

import "context"

// Key addresses one account record. GuildID "" is the global scope.
type Key struct {
	UserID  string
	GuildID string
}

// Field names a single persistable field of the account record. Increment
// and Decrement are defined only for the integer fields.
type Field string

const (
	FieldWallet          Field = "wallet"
	FieldBank            Field = "bank"
	FieldFabricXP        Field = "fabric.xp"
	FieldFabricLevel     Field = "fabric.level"
	FieldFabricEmployees Field = "fabric.employees"
	FieldSoldPercentage  Field = "fabric.sold_percentage"
	FieldInventory       Field = "inventory"
	FieldTimeoutWork     Field = "timeouts.work"
	FieldTimeoutDaily    Field = "timeouts.daily"
	FieldTimeoutCollect  Field = "timeouts.fabric_collect"
	FieldTimeoutPayment  Field = "timeouts.fabric_payment"
	FieldTimeoutSold     Field = "timeouts.sold_fabric"
)

// ListFilter scopes List. A nil GuildID lists every scope; a non-nil one
// matches exactly (including "" for the global scope).
type ListFilter struct {
	GuildID *string
}

// Storage is the durable account store the core dispatches against. Get
// returns (nil, nil) for absent keys; Delete returns the removed record or
// nil. Increment and Decrement must be atomic at single-field granularity so
// concurrent actions on one account do not lose updates. Multi-field effects
// are not atomic as a group.
type Storage interface {
	Get(ctx context.Context, key Key) (*Account, error)
	Set(ctx context.Context, key Key, acc *Account) error
	SetField(ctx context.Context, key Key, field Field, value any) error
	Increment(ctx context.Context, key Key, field Field, delta int64) error
	Decrement(ctx context.Context, key Key, field Field, delta int64) error
	Delete(ctx context.Context, key Key) (*Account, error)
	List(ctx context.Context, filter ListFilter) ([]Account, error)
	Close() error
}
