// Package storage provides the durable account drivers behind the
// economy.Storage contract: Postgres, SQLite, and an in-memory map used by
// tests and development.
package storage

import (
	"fmt"
	"time"

	"fabrik/internal/economy"
)

// column maps a field path to its SQL column; shared by the Postgres and
// SQLite drivers.
func column(field economy.Field) (string, error) {
	switch field {
	case economy.FieldWallet:
		return "wallet", nil
	case economy.FieldBank:
		return "bank", nil
	case economy.FieldFabricXP:
		return "fabric_xp", nil
	case economy.FieldFabricLevel:
		return "fabric_level", nil
	case economy.FieldFabricEmployees:
		return "fabric_employees", nil
	case economy.FieldSoldPercentage:
		return "sold_percentage", nil
	case economy.FieldInventory:
		return "inventory", nil
	case economy.FieldTimeoutWork:
		return "ts_work", nil
	case economy.FieldTimeoutDaily:
		return "ts_daily", nil
	case economy.FieldTimeoutCollect:
		return "ts_fabric_collect", nil
	case economy.FieldTimeoutPayment:
		return "ts_fabric_payment", nil
	case economy.FieldTimeoutSold:
		return "ts_sold_fabric", nil
	default:
		return "", fmt.Errorf("unknown field %q", field)
	}
}

// counterColumn restricts Increment/Decrement to the integer fields.
func counterColumn(field economy.Field) (string, error) {
	switch field {
	case economy.FieldWallet, economy.FieldBank, economy.FieldFabricXP,
		economy.FieldFabricLevel, economy.FieldFabricEmployees:
		return column(field)
	default:
		return "", fmt.Errorf("field %q is not a counter", field)
	}
}

// applyField writes a field value onto an in-memory record; the memory
// driver and SQL row decoding share the accepted value shapes.
func applyField(acc *economy.Account, field economy.Field, value any) error {
	switch field {
	case economy.FieldWallet, economy.FieldBank, economy.FieldFabricXP,
		economy.FieldFabricLevel, economy.FieldFabricEmployees:
		n, ok := asInt64(value)
		if !ok {
			return fmt.Errorf("field %q wants an integer, got %T", field, value)
		}
		switch field {
		case economy.FieldWallet:
			acc.Wallet = n
		case economy.FieldBank:
			acc.Bank = n
		case economy.FieldFabricXP:
			acc.Fabric.XP = n
		case economy.FieldFabricLevel:
			acc.Fabric.Level = n
		case economy.FieldFabricEmployees:
			acc.Fabric.Employees = n
		}
		return nil
	case economy.FieldSoldPercentage:
		if value == nil {
			acc.Fabric.SoldPercentage = nil
			return nil
		}
		n, ok := asInt64(value)
		if !ok {
			return fmt.Errorf("field %q wants an integer or nil, got %T", field, value)
		}
		acc.Fabric.SoldPercentage = &n
		return nil
	case economy.FieldInventory:
		inv, ok := value.([]string)
		if !ok {
			return fmt.Errorf("field %q wants []string, got %T", field, value)
		}
		acc.Inventory = append([]string(nil), inv...)
		return nil
	case economy.FieldTimeoutWork, economy.FieldTimeoutDaily, economy.FieldTimeoutCollect,
		economy.FieldTimeoutPayment, economy.FieldTimeoutSold:
		ts, err := asTimePtr(value)
		if err != nil {
			return fmt.Errorf("field %q: %w", field, err)
		}
		switch field {
		case economy.FieldTimeoutWork:
			acc.Timeouts.Work = ts
		case economy.FieldTimeoutDaily:
			acc.Timeouts.Daily = ts
		case economy.FieldTimeoutCollect:
			acc.Timeouts.FabricCollect = ts
		case economy.FieldTimeoutPayment:
			acc.Timeouts.FabricPayment = ts
		case economy.FieldTimeoutSold:
			acc.Timeouts.SoldFabric = ts
		}
		return nil
	default:
		return fmt.Errorf("unknown field %q", field)
	}
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case *int64:
		if n == nil {
			return 0, false
		}
		return *n, true
	default:
		return 0, false
	}
}

func asTimePtr(v any) (*time.Time, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		u := t.UTC()
		return &u, nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		u := t.UTC()
		return &u, nil
	default:
		return nil, fmt.Errorf("wants a timestamp or nil, got %T", v)
	}
}
