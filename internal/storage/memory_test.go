package storage

import (
	"context"
	"testing"
	"time"

	"fabrik/internal/economy"
)

func TestMemoryGetClonesRecords(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	k := economy.Key{UserID: "u1", GuildID: "g1"}

	if err := m.Set(ctx, k, economy.NewAccount("u1", "g1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	acc, err := m.Get(ctx, k)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	acc.Wallet = 999
	acc.Inventory = append(acc.Inventory, "sword")

	fresh, _ := m.Get(ctx, k)
	if fresh.Wallet != 0 || len(fresh.Inventory) != 0 {
		t.Fatalf("caller mutation leaked into the store: %+v", fresh)
	}
}

func TestMemoryGetMissingIsNilNil(t *testing.T) {
	m := NewMemory()
	acc, err := m.Get(context.Background(), economy.Key{UserID: "ghost"})
	if err != nil || acc != nil {
		t.Fatalf("missing record should be (nil, nil), got (%v, %v)", acc, err)
	}
}

func TestMemoryIncrementDecrement(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	k := economy.Key{UserID: "u1"}
	if err := m.Set(ctx, k, economy.NewAccount("u1", "")); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := m.Increment(ctx, k, economy.FieldBank, 300); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := m.Decrement(ctx, k, economy.FieldBank, 100); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	acc, _ := m.Get(ctx, k)
	if acc.Bank != 200 {
		t.Fatalf("bank got=%d want=200", acc.Bank)
	}

	// Only counter fields accept deltas.
	if err := m.Increment(ctx, k, economy.FieldInventory, 1); err == nil {
		t.Fatalf("expected non-counter increment to fail")
	}
	// Field writes against absent records fail loudly.
	if err := m.Increment(ctx, economy.Key{UserID: "ghost"}, economy.FieldBank, 1); err == nil {
		t.Fatalf("expected increment on missing record to fail")
	}
}

func TestMemorySetFieldShapes(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	k := economy.Key{UserID: "u1"}
	if err := m.Set(ctx, k, economy.NewAccount("u1", "")); err != nil {
		t.Fatalf("set: %v", err)
	}

	now := time.Now()
	if err := m.SetField(ctx, k, economy.FieldTimeoutWork, now); err != nil {
		t.Fatalf("set timeout: %v", err)
	}
	if err := m.SetField(ctx, k, economy.FieldSoldPercentage, int64(40)); err != nil {
		t.Fatalf("set sold percentage: %v", err)
	}
	if err := m.SetField(ctx, k, economy.FieldInventory, []string{"a", "b"}); err != nil {
		t.Fatalf("set inventory: %v", err)
	}

	acc, _ := m.Get(ctx, k)
	if acc.Timeouts.Work == nil || !acc.Timeouts.Work.Equal(now) {
		t.Fatalf("timeout not applied: %+v", acc.Timeouts)
	}
	if acc.Fabric.SoldPercentage == nil || *acc.Fabric.SoldPercentage != 40 {
		t.Fatalf("sold percentage not applied: %+v", acc.Fabric)
	}
	if len(acc.Inventory) != 2 {
		t.Fatalf("inventory not applied: %v", acc.Inventory)
	}

	// nil clears nullable fields.
	if err := m.SetField(ctx, k, economy.FieldSoldPercentage, nil); err != nil {
		t.Fatalf("clear sold percentage: %v", err)
	}
	if err := m.SetField(ctx, k, economy.FieldTimeoutWork, nil); err != nil {
		t.Fatalf("clear timeout: %v", err)
	}
	acc, _ = m.Get(ctx, k)
	if acc.Fabric.SoldPercentage != nil || acc.Timeouts.Work != nil {
		t.Fatalf("nil write did not clear fields: %+v", acc)
	}

	// Wrong value shape is rejected.
	if err := m.SetField(ctx, k, economy.FieldWallet, "loads"); err == nil {
		t.Fatalf("expected string wallet write to fail")
	}
}

func TestMemoryDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	k := economy.Key{UserID: "u1"}
	if err := m.Set(ctx, k, economy.NewAccount("u1", "")); err != nil {
		t.Fatalf("set: %v", err)
	}

	acc, err := m.Delete(ctx, k)
	if err != nil || acc == nil {
		t.Fatalf("delete: acc=%v err=%v", acc, err)
	}
	if again, _ := m.Delete(ctx, k); again != nil {
		t.Fatalf("double delete should return nil")
	}
	if got, _ := m.Get(ctx, k); got != nil {
		t.Fatalf("deleted record still present")
	}
}

func TestMemoryListOrderAndFilter(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for _, tc := range []struct{ user, guild string }{
		{"a", "g1"}, {"b", "g2"}, {"c", "g1"},
	} {
		k := economy.Key{UserID: tc.user, GuildID: tc.guild}
		if err := m.Set(ctx, k, economy.NewAccount(tc.user, tc.guild)); err != nil {
			t.Fatalf("set %s: %v", tc.user, err)
		}
	}

	all, err := m.List(ctx, economy.ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].UserID != "a" || all[2].UserID != "c" {
		t.Fatalf("list order wrong: %+v", all)
	}

	g1 := "g1"
	scoped, err := m.List(ctx, economy.ListFilter{GuildID: &g1})
	if err != nil {
		t.Fatalf("list scoped: %v", err)
	}
	if len(scoped) != 2 || scoped[0].UserID != "a" || scoped[1].UserID != "c" {
		t.Fatalf("scoped list wrong: %+v", scoped)
	}
}

func TestColumnMapping(t *testing.T) {
	known := []economy.Field{
		economy.FieldWallet, economy.FieldBank, economy.FieldFabricXP,
		economy.FieldFabricLevel, economy.FieldFabricEmployees,
		economy.FieldSoldPercentage, economy.FieldInventory,
		economy.FieldTimeoutWork, economy.FieldTimeoutDaily,
		economy.FieldTimeoutCollect, economy.FieldTimeoutPayment,
		economy.FieldTimeoutSold,
	}
	seen := make(map[string]economy.Field, len(known))
	for _, f := range known {
		col, err := column(f)
		if err != nil {
			t.Fatalf("field %q: %v", f, err)
		}
		if prev, dup := seen[col]; dup {
			t.Fatalf("fields %q and %q share column %q", prev, f, col)
		}
		seen[col] = f
	}
	if _, err := column(economy.Field("bogus")); err == nil {
		t.Fatalf("expected unknown field to fail")
	}
	if _, err := counterColumn(economy.FieldTimeoutWork); err == nil {
		t.Fatalf("expected timestamp counter to fail")
	}
}
