// Package catalog keeps a local copy of the top coins by market cap.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cryptofolio/cryptofolio/internal/database"
	"github.com/cryptofolio/cryptofolio/internal/domain"
)

// ErrNotFound is returned when a coin id is not in the catalog
var ErrNotFound = errors.New("coin not in catalog")

const catalogColumns = `coin_id, name, symbol, logo, market_cap_rank, synced_at`

// Unranked coins sort last
const catalogOrder = `ORDER BY CASE WHEN market_cap_rank IS NULL OR market_cap_rank = 0 THEN 1 ELSE 0 END, market_cap_rank, name`

// Repository handles catalog database operations (catalog.db)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new catalog repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "catalog").Logger(),
	}
}

// ReplaceAll swaps the whole catalog for entries in one transaction.
// A later entry with the same coin id wins.
func (r *Repository) ReplaceAll(ctx context.Context, entries []domain.CatalogEntry) error {
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM catalog`); err != nil {
			return fmt.Errorf("failed to clear catalog: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO catalog (`+catalogColumns+`)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(coin_id) DO UPDATE SET
				name = excluded.name,
				symbol = excluded.symbol,
				logo = excluded.logo,
				market_cap_rank = excluded.market_cap_rank,
				synced_at = excluded.synced_at
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare catalog insert: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			var rank interface{}
			if e.MarketCapRank > 0 {
				rank = e.MarketCapRank
			}
			var logo interface{}
			if e.Logo != "" {
				logo = e.Logo
			}
			if _, err := stmt.ExecContext(ctx, e.CoinID, e.Name, e.Symbol, logo, rank, e.SyncedAt.Unix()); err != nil {
				return fmt.Errorf("failed to insert coin %s: %w", e.CoinID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Debug().Int("coins", len(entries)).Msg("Catalog replaced")
	return nil
}

// List returns up to limit coins by rank; limit <= 0 returns all
func (r *Repository) List(ctx context.Context, limit int) ([]domain.CatalogEntry, error) {
	query := `SELECT ` + catalogColumns + ` FROM catalog ` + catalogOrder
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.query(ctx, query, args...)
}

// Search matches q against name, symbol and coin id, case-insensitively
func (r *Repository) Search(ctx context.Context, q string, limit int) ([]domain.CatalogEntry, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return r.List(ctx, limit)
	}

	pattern := "%" + escapeLike(q) + "%"
	query := `SELECT ` + catalogColumns + ` FROM catalog
		WHERE lower(name) LIKE ? ESCAPE '\' OR lower(symbol) LIKE ? ESCAPE '\' OR coin_id LIKE ? ESCAPE '\'
		` + catalogOrder
	args := []interface{}{pattern, pattern, pattern}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return r.query(ctx, query, args...)
}

// Get returns one coin or ErrNotFound
func (r *Repository) Get(ctx context.Context, coinID string) (*domain.CatalogEntry, error) {
	entries, err := r.query(ctx, `SELECT `+catalogColumns+` FROM catalog WHERE coin_id = ?`, coinID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", coinID, ErrNotFound)
	}
	return &entries[0], nil
}

// Count returns the number of catalog rows
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM catalog`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count catalog: %w", err)
	}
	return n, nil
}

func (r *Repository) query(ctx context.Context, query string, args ...interface{}) ([]domain.CatalogEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.CatalogEntry, 0)
	for rows.Next() {
		var (
			e        domain.CatalogEntry
			logo     sql.NullString
			rank     sql.NullInt64
			syncedAt int64
		)
		if err := rows.Scan(&e.CoinID, &e.Name, &e.Symbol, &logo, &rank, &syncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan catalog entry: %w", err)
		}
		e.Logo = logo.String
		e.MarketCapRank = int(rank.Int64)
		e.SyncedAt = time.Unix(syncedAt, 0).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating catalog: %w", err)
	}
	return entries, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
