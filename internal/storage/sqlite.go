package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"fabrik/internal/economy"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	user_id           TEXT NOT NULL,
	guild_id          TEXT NOT NULL DEFAULT '',
	wallet            INTEGER NOT NULL DEFAULT 0,
	bank              INTEGER NOT NULL DEFAULT 0,
	inventory         TEXT NOT NULL DEFAULT '[]',
	fabric_xp         INTEGER NOT NULL DEFAULT 0,
	fabric_level      INTEGER NOT NULL DEFAULT 1,
	fabric_employees  INTEGER NOT NULL DEFAULT 0,
	sold_percentage   INTEGER,
	ts_work           INTEGER,
	ts_daily          INTEGER,
	ts_fabric_collect INTEGER,
	ts_fabric_payment INTEGER,
	ts_sold_fabric    INTEGER,
	created_at        INTEGER NOT NULL,
	updated_at        INTEGER NOT NULL,
	PRIMARY KEY (user_id, guild_id)
);
CREATE INDEX IF NOT EXISTS accounts_guild_bank_idx ON accounts (guild_id, bank DESC);
`

const sqliteColumns = `user_id, guild_id, wallet, bank, inventory,
	fabric_xp, fabric_level, fabric_employees, sold_percentage,
	ts_work, ts_daily, ts_fabric_collect, ts_fabric_payment, ts_sold_fabric`

// SQLite backs the account store with a single-file database; timestamps are
// stored as unix milliseconds.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, key economy.Key) (*economy.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sqliteColumns+`
		FROM accounts
		WHERE user_id = ? AND guild_id = ?
	`, key.UserID, key.GuildID)
	acc, err := scanSQLiteAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *SQLite) Set(ctx context.Context, key economy.Key, acc *economy.Account) error {
	inv, err := json.Marshal(acc.Inventory)
	if err != nil {
		return fmt.Errorf("encode inventory: %w", err)
	}
	now := time.Now().UnixMilli()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accounts (`+sqliteColumns+`, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, guild_id) DO UPDATE SET
			wallet = excluded.wallet,
			bank = excluded.bank,
			inventory = excluded.inventory,
			fabric_xp = excluded.fabric_xp,
			fabric_level = excluded.fabric_level,
			fabric_employees = excluded.fabric_employees,
			sold_percentage = excluded.sold_percentage,
			ts_work = excluded.ts_work,
			ts_daily = excluded.ts_daily,
			ts_fabric_collect = excluded.ts_fabric_collect,
			ts_fabric_payment = excluded.ts_fabric_payment,
			ts_sold_fabric = excluded.ts_sold_fabric,
			updated_at = excluded.updated_at
	`, key.UserID, key.GuildID, acc.Wallet, acc.Bank, string(inv),
		acc.Fabric.XP, acc.Fabric.Level, acc.Fabric.Employees, sqliteIntPtr(acc.Fabric.SoldPercentage),
		sqliteMillis(acc.Timeouts.Work), sqliteMillis(acc.Timeouts.Daily),
		sqliteMillis(acc.Timeouts.FabricCollect), sqliteMillis(acc.Timeouts.FabricPayment),
		sqliteMillis(acc.Timeouts.SoldFabric), now, now)
	return err
}

func (s *SQLite) SetField(ctx context.Context, key economy.Key, field economy.Field, value any) error {
	col, err := column(field)
	if err != nil {
		return err
	}
	arg, err := sqliteFieldArg(field, value)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET `+col+` = ?, updated_at = ?
		WHERE user_id = ? AND guild_id = ?
	`, arg, time.Now().UnixMilli(), key.UserID, key.GuildID)
	if err != nil {
		return err
	}
	return checkAffected(res, key)
}

func (s *SQLite) Increment(ctx context.Context, key economy.Key, field economy.Field, delta int64) error {
	return s.add(ctx, key, field, delta)
}

func (s *SQLite) Decrement(ctx context.Context, key economy.Key, field economy.Field, delta int64) error {
	return s.add(ctx, key, field, -delta)
}

func (s *SQLite) add(ctx context.Context, key economy.Key, field economy.Field, delta int64) error {
	col, err := counterColumn(field)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET `+col+` = `+col+` + ?, updated_at = ?
		WHERE user_id = ? AND guild_id = ?
	`, delta, time.Now().UnixMilli(), key.UserID, key.GuildID)
	if err != nil {
		return err
	}
	return checkAffected(res, key)
}

func (s *SQLite) Delete(ctx context.Context, key economy.Key) (*economy.Account, error) {
	acc, err := s.Get(ctx, key)
	if err != nil || acc == nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		DELETE FROM accounts WHERE user_id = ? AND guild_id = ?
	`, key.UserID, key.GuildID)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *SQLite) List(ctx context.Context, filter economy.ListFilter) ([]economy.Account, error) {
	query := `SELECT ` + sqliteColumns + ` FROM accounts`
	args := []any{}
	if filter.GuildID != nil {
		query += ` WHERE guild_id = ?`
		args = append(args, *filter.GuildID)
	}
	query += ` ORDER BY created_at, user_id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []economy.Account
	for rows.Next() {
		acc, err := scanSQLiteAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *acc)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error { return s.db.Close() }

func sqliteFieldArg(field economy.Field, value any) (any, error) {
	switch field {
	case economy.FieldInventory:
		inv, ok := value.([]string)
		if !ok {
			return nil, fmt.Errorf("field %q wants []string, got %T", field, value)
		}
		raw, err := json.Marshal(inv)
		if err != nil {
			return nil, err
		}
		return string(raw), nil
	case economy.FieldTimeoutWork, economy.FieldTimeoutDaily, economy.FieldTimeoutCollect,
		economy.FieldTimeoutPayment, economy.FieldTimeoutSold:
		ts, err := asTimePtr(value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", field, err)
		}
		return sqliteMillis(ts), nil
	default:
		if value == nil {
			return nil, nil
		}
		n, ok := asInt64(value)
		if !ok {
			return nil, fmt.Errorf("field %q wants an integer, got %T", field, value)
		}
		return n, nil
	}
}

func sqliteMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func sqliteIntPtr(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func checkAffected(res sql.Result, key economy.Key) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errNotFound(key)
	}
	return nil
}

func scanSQLiteAccount(row rowScanner) (*economy.Account, error) {
	var acc economy.Account
	var inv string
	var sold sql.NullInt64
	var tsWork, tsDaily, tsCollect, tsPayment, tsSold sql.NullInt64
	err := row.Scan(
		&acc.UserID, &acc.GuildID, &acc.Wallet, &acc.Bank, &inv,
		&acc.Fabric.XP, &acc.Fabric.Level, &acc.Fabric.Employees, &sold,
		&tsWork, &tsDaily, &tsCollect, &tsPayment, &tsSold,
	)
	if err != nil {
		return nil, err
	}
	if sold.Valid {
		acc.Fabric.SoldPercentage = &sold.Int64
	}
	acc.Timeouts.Work = millisToTime(tsWork)
	acc.Timeouts.Daily = millisToTime(tsDaily)
	acc.Timeouts.FabricCollect = millisToTime(tsCollect)
	acc.Timeouts.FabricPayment = millisToTime(tsPayment)
	acc.Timeouts.SoldFabric = millisToTime(tsSold)
	acc.Inventory = []string{}
	if inv != "" {
		if err := json.Unmarshal([]byte(inv), &acc.Inventory); err != nil {
			return nil, fmt.Errorf("decode inventory: %w", err)
		}
	}
	return &acc, nil
}

func millisToTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}
