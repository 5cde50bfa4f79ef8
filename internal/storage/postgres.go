package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fabrik/internal/economy"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	user_id           TEXT NOT NULL,
	guild_id          TEXT NOT NULL DEFAULT '',
	wallet            BIGINT NOT NULL DEFAULT 0,
	bank              BIGINT NOT NULL DEFAULT 0,
	inventory         JSONB NOT NULL DEFAULT '[]',
	fabric_xp         BIGINT NOT NULL DEFAULT 0,
	fabric_level      BIGINT NOT NULL DEFAULT 1,
	fabric_employees  BIGINT NOT NULL DEFAULT 0,
	sold_percentage   BIGINT,
	ts_work           TIMESTAMPTZ,
	ts_daily          TIMESTAMPTZ,
	ts_fabric_collect TIMESTAMPTZ,
	ts_fabric_payment TIMESTAMPTZ,
	ts_sold_fabric    TIMESTAMPTZ,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, guild_id)
);
CREATE INDEX IF NOT EXISTS accounts_guild_bank_idx ON accounts (guild_id, bank DESC);
`

const pgColumns = `user_id, guild_id, wallet, bank, inventory,
	fabric_xp, fabric_level, fabric_employees, sold_percentage,
	ts_work, ts_daily, ts_fabric_collect, ts_fabric_payment, ts_sold_fabric`

// Postgres backs the account store with a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// ConnectPostgres dials, tunes, and pings the pool, then bootstraps the
// schema.
func ConnectPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 10 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Get(ctx context.Context, key economy.Key) (*economy.Account, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT `+pgColumns+`
		FROM accounts
		WHERE user_id = $1 AND guild_id = $2
	`, key.UserID, key.GuildID)
	acc, err := scanAccount(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (p *Postgres) Set(ctx context.Context, key economy.Key, acc *economy.Account) error {
	inv, err := json.Marshal(acc.Inventory)
	if err != nil {
		return fmt.Errorf("encode inventory: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO accounts (`+pgColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id, guild_id) DO UPDATE SET
			wallet = EXCLUDED.wallet,
			bank = EXCLUDED.bank,
			inventory = EXCLUDED.inventory,
			fabric_xp = EXCLUDED.fabric_xp,
			fabric_level = EXCLUDED.fabric_level,
			fabric_employees = EXCLUDED.fabric_employees,
			sold_percentage = EXCLUDED.sold_percentage,
			ts_work = EXCLUDED.ts_work,
			ts_daily = EXCLUDED.ts_daily,
			ts_fabric_collect = EXCLUDED.ts_fabric_collect,
			ts_fabric_payment = EXCLUDED.ts_fabric_payment,
			ts_sold_fabric = EXCLUDED.ts_sold_fabric,
			updated_at = now()
	`, key.UserID, key.GuildID, acc.Wallet, acc.Bank, inv,
		acc.Fabric.XP, acc.Fabric.Level, acc.Fabric.Employees, acc.Fabric.SoldPercentage,
		acc.Timeouts.Work, acc.Timeouts.Daily, acc.Timeouts.FabricCollect,
		acc.Timeouts.FabricPayment, acc.Timeouts.SoldFabric)
	return err
}

func (p *Postgres) SetField(ctx context.Context, key economy.Key, field economy.Field, value any) error {
	col, err := column(field)
	if err != nil {
		return err
	}
	arg := value
	if field == economy.FieldInventory {
		inv, ok := value.([]string)
		if !ok {
			return fmt.Errorf("field %q wants []string, got %T", field, value)
		}
		raw, err := json.Marshal(inv)
		if err != nil {
			return fmt.Errorf("encode inventory: %w", err)
		}
		arg = raw
	}
	cmd, err := p.pool.Exec(ctx, `
		UPDATE accounts SET `+col+` = $1, updated_at = now()
		WHERE user_id = $2 AND guild_id = $3
	`, arg, key.UserID, key.GuildID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return errNotFound(key)
	}
	return nil
}

func (p *Postgres) Increment(ctx context.Context, key economy.Key, field economy.Field, delta int64) error {
	return p.add(ctx, key, field, delta)
}

func (p *Postgres) Decrement(ctx context.Context, key economy.Key, field economy.Field, delta int64) error {
	return p.add(ctx, key, field, -delta)
}

// add is a single-statement read-modify-write, so it is atomic per field at
// the database.
func (p *Postgres) add(ctx context.Context, key economy.Key, field economy.Field, delta int64) error {
	col, err := counterColumn(field)
	if err != nil {
		return err
	}
	cmd, err := p.pool.Exec(ctx, `
		UPDATE accounts SET `+col+` = `+col+` + $1, updated_at = now()
		WHERE user_id = $2 AND guild_id = $3
	`, delta, key.UserID, key.GuildID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return errNotFound(key)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, key economy.Key) (*economy.Account, error) {
	row := p.pool.QueryRow(ctx, `
		DELETE FROM accounts
		WHERE user_id = $1 AND guild_id = $2
		RETURNING `+pgColumns+`
	`, key.UserID, key.GuildID)
	acc, err := scanAccount(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (p *Postgres) List(ctx context.Context, filter economy.ListFilter) ([]economy.Account, error) {
	query := `SELECT ` + pgColumns + ` FROM accounts`
	args := []any{}
	if filter.GuildID != nil {
		query += ` WHERE guild_id = $1`
		args = append(args, *filter.GuildID)
	}
	query += ` ORDER BY created_at, user_id`
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []economy.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *acc)
	}
	return out, rows.Err()
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*economy.Account, error) {
	var acc economy.Account
	var inv []byte
	err := row.Scan(
		&acc.UserID, &acc.GuildID, &acc.Wallet, &acc.Bank, &inv,
		&acc.Fabric.XP, &acc.Fabric.Level, &acc.Fabric.Employees, &acc.Fabric.SoldPercentage,
		&acc.Timeouts.Work, &acc.Timeouts.Daily, &acc.Timeouts.FabricCollect,
		&acc.Timeouts.FabricPayment, &acc.Timeouts.SoldFabric,
	)
	if err != nil {
		return nil, err
	}
	acc.Inventory = []string{}
	if len(inv) > 0 {
		if err := json.Unmarshal(inv, &acc.Inventory); err != nil {
			return nil, fmt.Errorf("decode inventory: %w", err)
		}
	}
	return &acc, nil
}
