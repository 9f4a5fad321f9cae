// Package snapshot persists periodic copies of the live cache into Postgres
// and prunes them past the retention window.
package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Row is one per-outcome snapshot row.
type Row struct {
	MarketID     string
	Venue        string
	OutcomeIndex int
	OutcomeName  string
	Price        float64
	ImpliedProb  float64
	CapturedAt   time.Time
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// PostgresStore writes snapshot rows and runs retention maintenance.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresStore opens and pings the database.
func NewPostgresStore(cfg *PostgresConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("snapshot-store-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStore{db: db, logger: cfg.Logger}, nil
}

// newPostgresStoreWithDB wires an existing handle; used by tests.
func newPostgresStoreWithDB(db *sql.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

// Ping reports whether the database is reachable.
func (p *PostgresStore) Ping() error {
	return p.db.Ping()
}

// EnsureSchema creates the snapshot tables and indexes if absent.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS odds_snapshots (
			market_id TEXT NOT NULL,
			venue TEXT NOT NULL,
			outcome_index INT NOT NULL,
			outcome_name TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL,
			implied_prob DOUBLE PRECISION NOT NULL,
			captured_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (market_id, venue, outcome_index, captured_at)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_odds_snapshots_captured_at ON odds_snapshots (captured_at)`,
		`CREATE INDEX IF NOT EXISTS idx_odds_snapshots_market_id ON odds_snapshots (market_id)`,
		`CREATE TABLE IF NOT EXISTS markets (
			market_id TEXT NOT NULL,
			venue TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (market_id, venue)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// InsertRows bulk-inserts one batch with a single multi-row INSERT. Conflicts
// on the snapshot key are ignored: re-scanning an unchanged entry within one
// captured_at tick is not an error.
func (p *PostgresStore) InsertRows(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO odds_snapshots
		(market_id, venue, outcome_index, outcome_name, price, implied_prob, captured_at) VALUES `)
	args := make([]interface{}, 0, len(rows)*7)
	for i, r := range rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 7
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7)
		args = append(args, r.MarketID, r.Venue, r.OutcomeIndex, r.OutcomeName,
			r.Price, r.ImpliedProb, r.CapturedAt)
	}
	sb.WriteString(" ON CONFLICT DO NOTHING")

	if _, err := p.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert snapshots: %w", err)
	}
	RowsInsertedTotal.Add(float64(len(rows)))
	return nil
}

// UpsertMarkets refreshes the durable market records touched by a scan.
func (p *PostgresStore) UpsertMarkets(ctx context.Context, rows []Row, title map[string]string, now time.Time) error {
	seen := map[string]struct{}{}
	for _, r := range rows {
		key := r.MarketID + "\x00" + r.Venue
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		_, err := p.db.ExecContext(ctx, `
			INSERT INTO markets (market_id, venue, title, active, updated_at)
			VALUES ($1, $2, $3, TRUE, $4)
			ON CONFLICT (market_id, venue)
			DO UPDATE SET title = EXCLUDED.title, active = TRUE, updated_at = EXCLUDED.updated_at`,
			r.MarketID, r.Venue, title[r.MarketID], now)
		if err != nil {
			return fmt.Errorf("upsert market: %w", err)
		}
	}
	return nil
}

// DeleteOlderThan removes snapshots past the retention window. Returns the
// number of rows deleted.
func (p *PostgresStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := p.db.ExecContext(ctx,
		`DELETE FROM odds_snapshots WHERE captured_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete snapshots: %w", err)
	}
	n, _ := res.RowsAffected()
	RowsPrunedTotal.Add(float64(n))
	return n, nil
}

// MarkStaleMarkets flags market records not refreshed since the stale horizon.
func (p *PostgresStore) MarkStaleMarkets(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := p.db.ExecContext(ctx,
		`UPDATE markets SET active = FALSE WHERE active AND updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("mark stale markets: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Close closes the database connection.
func (p *PostgresStore) Close() error {
	p.logger.Info("snapshot-store-closing")
	return p.db.Close()
}
