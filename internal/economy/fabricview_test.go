package economy

import (
	"testing"
	"time"
)

func TestLevelUpXP(t *testing.T) {
	tests := []struct {
		level int64
		want  int64
	}{
		{level: 1, want: 275},
		{level: 2, want: 1100},
		{level: 5, want: 6875},
	}
	for _, tc := range tests {
		if got := LevelUpXP(tc.level); got != tc.want {
			t.Fatalf("level=%d got=%d want=%d", tc.level, got, tc.want)
		}
	}
}

func TestReceivableMoney(t *testing.T) {
	tests := []struct {
		level, employees, xp int64
		want                 int64
	}{
		{level: 1, employees: 0, xp: 0, want: 75},
		{level: 1, employees: 0, xp: 1, want: 75}, // 100.5 * 0.75 = 75.375 floors
		{level: 2, employees: 10, xp: 100, want: 225},
	}
	for _, tc := range tests {
		got := ReceivableMoney(tc.level, tc.employees, tc.xp)
		if got != tc.want {
			t.Fatalf("lvl=%d emp=%d xp=%d got=%d want=%d", tc.level, tc.employees, tc.xp, got, tc.want)
		}
	}
}

func TestEmployeePrice(t *testing.T) {
	if got := EmployeePrice(1); got != 150 {
		t.Fatalf("got %d want 150", got)
	}
	if got := EmployeePrice(4); got != 600 {
		t.Fatalf("got %d want 600", got)
	}
}

func TestValueToPay(t *testing.T) {
	// No lateness: level*employees*0.25*25.
	if got := ValueToPay(2, 8, 0); got != 100 {
		t.Fatalf("got %d want 100", got)
	}
	// Each late day adds level*250.
	if got := ValueToPay(2, 8, 3); got != 1600 {
		t.Fatalf("got %d want 1600", got)
	}
	if got := ValueToPay(1, 0, 0); got != 0 {
		t.Fatalf("got %d want 0", got)
	}
}

func TestCollectTimeout(t *testing.T) {
	if got := CollectTimeout(1); got != 3*time.Hour {
		t.Fatalf("got %v want 3h", got)
	}
	if got := CollectTimeout(10); got != 12*time.Hour {
		t.Fatalf("got %v want 12h", got)
	}
}

func TestValuationAndSellPrice(t *testing.T) {
	// Level 1, no employees, no xp: 365*24/3 collections a year at 75 each.
	v := Valuation(1, 0, 0)
	if want := int64(365 * 24 / 3 * 75); v != want {
		t.Fatalf("valuation got=%d want=%d", v, want)
	}
	if got := SellPrice(v, 100); got != v {
		t.Fatalf("100%% sale got=%d want=%d", got, v)
	}
	if got, want := SellPrice(v, 50), int64(float64(v)/2); got != want {
		t.Fatalf("50%% sale got=%d want=%d", got, want)
	}
	if got := SellPrice(v, 0); got != 0 {
		t.Fatalf("0%% sale got=%d want=0", got)
	}
	// Floor, not round: 999 at 1% is 9.99.
	if got := SellPrice(999, 1); got != 9 {
		t.Fatalf("floor sale got=%d want=9", got)
	}
}

func TestSellLockWindow(t *testing.T) {
	if got := SellLockWindow(1); got != 4*LockMonth {
		t.Fatalf("got %v want %v", got, 4*LockMonth)
	}
	if got := SellLockWindow(3); got != 10*LockMonth {
		t.Fatalf("got %v want %v", got, 10*LockMonth)
	}
}

func TestDaysLate(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	if got := DaysLate(nil, now); got != 0 {
		t.Fatalf("nil clock got=%d want=0", got)
	}
	at := now.Add(-47 * time.Hour)
	if got := DaysLate(&at, now); got != 1 {
		t.Fatalf("47h got=%d want=1", got)
	}
	future := now.Add(time.Hour)
	if got := DaysLate(&future, now); got != 0 {
		t.Fatalf("future clock got=%d want=0", got)
	}
}

func TestDeriveFabricFreshAccount(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	acc := NewAccount("u1", "g1")
	v := DeriveFabric(acc, now)

	if !v.Collectable {
		t.Fatalf("fresh fabric should be collectable")
	}
	if v.LatePayment {
		t.Fatalf("fresh fabric should not be delinquent")
	}
	if v.ReceivableMoney != 75 {
		t.Fatalf("receivable got=%d want=75", v.ReceivableMoney)
	}
	if v.LevelUpXP != 275 || v.EmployeePrice != 150 {
		t.Fatalf("unexpected level economics: %+v", v)
	}
}

func TestDeriveFabricCooldownBlocksCollect(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	acc := NewAccount("u1", "")
	recent := now.Add(-time.Hour) // level 1 timeout is 3h
	acc.Timeouts.FabricCollect = &recent

	if v := DeriveFabric(acc, now); v.Collectable {
		t.Fatalf("collect inside the cooldown window should be blocked")
	}

	old := now.Add(-3 * time.Hour)
	acc.Timeouts.FabricCollect = &old
	if v := DeriveFabric(acc, now); !v.Collectable {
		t.Fatalf("collect at exactly the cooldown boundary should be allowed")
	}
}

func TestDeriveFabricGracePeriodBoundary(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	acc := NewAccount("u1", "")

	exactly := now.Add(-PaymentGracePeriod)
	acc.Timeouts.FabricPayment = &exactly
	if v := DeriveFabric(acc, now); v.LatePayment {
		t.Fatalf("exactly seven days is still on time")
	}

	over := now.Add(-PaymentGracePeriod - time.Millisecond)
	acc.Timeouts.FabricPayment = &over
	v := DeriveFabric(acc, now)
	if !v.LatePayment {
		t.Fatalf("past the grace period should be delinquent")
	}
	if v.Collectable {
		t.Fatalf("delinquent fabric must not be collectable")
	}
}

func TestDeriveFabricSoldLock(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	acc := NewAccount("u1", "")
	pct := int64(40)
	soldAt := now.Add(-LockMonth)
	acc.Fabric.SoldPercentage = &pct
	acc.Timeouts.SoldFabric = &soldAt

	if v := DeriveFabric(acc, now); v.Collectable {
		t.Fatalf("sold fabric inside the lock window must not be collectable")
	}

	expired := now.Add(-SellLockWindow(acc.Fabric.Level))
	acc.Timeouts.SoldFabric = &expired
	if v := DeriveFabric(acc, now); !v.Collectable {
		t.Fatalf("expired lock should allow collecting again")
	}
}

func TestDecomposeRemaining(t *testing.T) {
	d := 26*time.Hour + 3*time.Minute + 4*time.Second + 500*time.Millisecond
	got := DecomposeRemaining(d)
	want := Remaining{Days: 1, Hours: 2, Minutes: 3, Seconds: 4, Milliseconds: 500}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestDecomposeRemainingRoundsTowardZero(t *testing.T) {
	// 90 minutes left floors to 1h30m, not 2h.
	got := DecomposeRemaining(90 * time.Minute)
	if got.Hours != 1 || got.Minutes != 30 {
		t.Fatalf("positive leftover got %+v", got)
	}
	// Already eligible by 90 minutes ceils toward zero the same way.
	got = DecomposeRemaining(-90 * time.Minute)
	if got.Hours != -1 || got.Minutes != -30 {
		t.Fatalf("negative leftover got %+v", got)
	}
}

func TestRank(t *testing.T) {
	accounts := []Account{
		{UserID: "a", GuildID: "g", Bank: 300},
		{UserID: "b", GuildID: "g", Bank: 100},
		{UserID: "c", GuildID: "g", Bank: 300},
		{UserID: "d", GuildID: "other", Bank: 999},
	}

	g := "g"
	rows := Rank(accounts, &g, 0)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	// Ties keep insertion order: a before c.
	order := []string{"a", "c", "b"}
	for i, want := range order {
		if rows[i].UserID != want {
			t.Fatalf("pos %d got %s want %s", i+1, rows[i].UserID, want)
		}
		if rows[i].Pos != int64(i)+1 {
			t.Fatalf("pos %d got %d", i+1, rows[i].Pos)
		}
	}

	limited := Rank(accounts, &g, 2)
	if len(limited) != 2 || limited[1].UserID != "c" {
		t.Fatalf("limit got %+v", limited)
	}
}

func TestAccountClone(t *testing.T) {
	pct := int64(10)
	at := time.Now()
	acc := NewAccount("u1", "g1")
	acc.Inventory = []string{"sword"}
	acc.Fabric.SoldPercentage = &pct
	acc.Timeouts.Work = &at

	cl := acc.Clone()
	cl.Inventory[0] = "shield"
	*cl.Fabric.SoldPercentage = 99
	*cl.Timeouts.Work = at.Add(time.Hour)

	if acc.Inventory[0] != "sword" {
		t.Fatalf("clone shares inventory")
	}
	if *acc.Fabric.SoldPercentage != 10 {
		t.Fatalf("clone shares sold percentage")
	}
	if !acc.Timeouts.Work.Equal(at) {
		t.Fatalf("clone shares timeout pointers")
	}
}
