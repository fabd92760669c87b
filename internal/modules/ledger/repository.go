// Package ledger provides storage and business rules for assets and their buy/sell events.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cryptofolio/cryptofolio/internal/database"
	"github.com/cryptofolio/cryptofolio/internal/domain"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Repository handles asset, buy and sell database operations (ledger.db)
type Repository struct {
	db  *sql.DB
	q   querier
	log zerolog.Logger
}

// NewRepository creates a new ledger repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		q:   db,
		log: log.With().Str("repo", "ledger").Logger(),
	}
}

// InTransaction runs fn with a repository bound to a single transaction.
// Every write made through txRepo commits or rolls back together.
func (r *Repository) InTransaction(fn func(txRepo *Repository) error) error {
	if r.db == nil {
		return fmt.Errorf("nested transactions are not supported")
	}
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		return fn(&Repository{q: tx, log: r.log})
	})
}

// Assets

// ListAssets returns all assets in insertion order
func (r *Repository) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT id, name, symbol, logo FROM assets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	assets := make([]domain.Asset, 0)
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}
	return assets, nil
}

// GetAsset returns one asset or ErrNotFound
func (r *Repository) GetAsset(ctx context.Context, id int64) (*domain.Asset, error) {
	row := r.q.QueryRowContext(ctx, `SELECT id, name, symbol, logo FROM assets WHERE id = ?`, id)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("asset %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset %d: %w", id, err)
	}
	return &asset, nil
}

// FindAssetBySymbol returns the oldest asset with the given symbol (case-insensitive) or ErrNotFound
func (r *Repository) FindAssetBySymbol(ctx context.Context, symbol string) (*domain.Asset, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, name, symbol, logo FROM assets WHERE lower(symbol) = ? ORDER BY id LIMIT 1`,
		domain.NormalizeSymbol(symbol))
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("asset %s: %w", symbol, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find asset %s: %w", symbol, err)
	}
	return &asset, nil
}

// InsertAsset stores a new asset and returns its id
func (r *Repository) InsertAsset(ctx context.Context, asset domain.Asset) (int64, error) {
	result, err := r.q.ExecContext(ctx,
		`INSERT INTO assets (name, symbol, logo) VALUES (?, ?, ?)`,
		asset.Name, asset.Symbol, nullString(asset.Logo))
	if err != nil {
		return 0, fmt.Errorf("failed to insert asset: %w", err)
	}
	return result.LastInsertId()
}

// UpdateAsset corrects name, symbol and logo
func (r *Repository) UpdateAsset(ctx context.Context, asset domain.Asset) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE assets SET name = ?, symbol = ?, logo = ? WHERE id = ?`,
		asset.Name, asset.Symbol, nullString(asset.Logo), asset.ID)
	if err != nil {
		return fmt.Errorf("failed to update asset %d: %w", asset.ID, err)
	}
	return requireAffected(result, "asset", asset.ID)
}

// DeleteAsset removes an asset. Its events are left in place.
func (r *Repository) DeleteAsset(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete asset %d: %w", id, err)
	}
	return requireAffected(result, "asset", id)
}

// Buys

// ListBuys returns an asset's buys in insertion order
func (r *Repository) ListBuys(ctx context.Context, assetID int64) ([]domain.BuyEvent, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, asset_id, unit_price, amount_invested, date FROM buys WHERE asset_id = ? ORDER BY id`,
		assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query buys for asset %d: %w", assetID, err)
	}
	defer rows.Close()

	buys := make([]domain.BuyEvent, 0)
	for rows.Next() {
		var b domain.BuyEvent
		if err := rows.Scan(&b.ID, &b.AssetID, &b.UnitPrice, &b.AmountInvested, &b.Date); err != nil {
			return nil, fmt.Errorf("failed to scan buy: %w", err)
		}
		buys = append(buys, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating buys: %w", err)
	}
	return buys, nil
}

// GetBuy returns one buy or ErrNotFound
func (r *Repository) GetBuy(ctx context.Context, id int64) (*domain.BuyEvent, error) {
	var b domain.BuyEvent
	err := r.q.QueryRowContext(ctx,
		`SELECT id, asset_id, unit_price, amount_invested, date FROM buys WHERE id = ?`, id,
	).Scan(&b.ID, &b.AssetID, &b.UnitPrice, &b.AmountInvested, &b.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("buy %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get buy %d: %w", id, err)
	}
	return &b, nil
}

// InsertBuy stores a new buy and returns its id
func (r *Repository) InsertBuy(ctx context.Context, buy domain.BuyEvent) (int64, error) {
	result, err := r.q.ExecContext(ctx,
		`INSERT INTO buys (asset_id, unit_price, amount_invested, date) VALUES (?, ?, ?, ?)`,
		buy.AssetID, buy.UnitPrice, buy.AmountInvested, buy.Date)
	if err != nil {
		return 0, fmt.Errorf("failed to insert buy: %w", err)
	}
	return result.LastInsertId()
}

// UpdateBuy overwrites a buy's price, amount and date
func (r *Repository) UpdateBuy(ctx context.Context, buy domain.BuyEvent) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE buys SET unit_price = ?, amount_invested = ?, date = ? WHERE id = ?`,
		buy.UnitPrice, buy.AmountInvested, buy.Date, buy.ID)
	if err != nil {
		return fmt.Errorf("failed to update buy %d: %w", buy.ID, err)
	}
	return requireAffected(result, "buy", buy.ID)
}

// DeleteBuy removes a buy
func (r *Repository) DeleteBuy(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM buys WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete buy %d: %w", id, err)
	}
	return requireAffected(result, "buy", id)
}

// Sells

// ListSells returns an asset's sells in insertion order
func (r *Repository) ListSells(ctx context.Context, assetID int64) ([]domain.SellEvent, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, asset_id, unit_price, amount_sold, date FROM sells WHERE asset_id = ? ORDER BY id`,
		assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sells for asset %d: %w", assetID, err)
	}
	defer rows.Close()

	sells := make([]domain.SellEvent, 0)
	for rows.Next() {
		var s domain.SellEvent
		if err := rows.Scan(&s.ID, &s.AssetID, &s.UnitPrice, &s.AmountSold, &s.Date); err != nil {
			return nil, fmt.Errorf("failed to scan sell: %w", err)
		}
		sells = append(sells, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sells: %w", err)
	}
	return sells, nil
}

// GetSell returns one sell or ErrNotFound
func (r *Repository) GetSell(ctx context.Context, id int64) (*domain.SellEvent, error) {
	var s domain.SellEvent
	err := r.q.QueryRowContext(ctx,
		`SELECT id, asset_id, unit_price, amount_sold, date FROM sells WHERE id = ?`, id,
	).Scan(&s.ID, &s.AssetID, &s.UnitPrice, &s.AmountSold, &s.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sell %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sell %d: %w", id, err)
	}
	return &s, nil
}

// InsertSell stores a new sell and returns its id
func (r *Repository) InsertSell(ctx context.Context, sell domain.SellEvent) (int64, error) {
	result, err := r.q.ExecContext(ctx,
		`INSERT INTO sells (asset_id, unit_price, amount_sold, date) VALUES (?, ?, ?, ?)`,
		sell.AssetID, sell.UnitPrice, sell.AmountSold, sell.Date)
	if err != nil {
		return 0, fmt.Errorf("failed to insert sell: %w", err)
	}
	return result.LastInsertId()
}

// UpdateSell overwrites a sell's price, amount and date
func (r *Repository) UpdateSell(ctx context.Context, sell domain.SellEvent) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE sells SET unit_price = ?, amount_sold = ?, date = ? WHERE id = ?`,
		sell.UnitPrice, sell.AmountSold, sell.Date, sell.ID)
	if err != nil {
		return fmt.Errorf("failed to update sell %d: %w", sell.ID, err)
	}
	return requireAffected(result, "sell", sell.ID)
}

// DeleteSell removes a sell
func (r *Repository) DeleteSell(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM sells WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sell %d: %w", id, err)
	}
	return requireAffected(result, "sell", id)
}

// Helper functions

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAsset(row rowScanner) (domain.Asset, error) {
	var a domain.Asset
	var logo sql.NullString
	if err := row.Scan(&a.ID, &a.Name, &a.Symbol, &logo); err != nil {
		return domain.Asset{}, err
	}
	if logo.Valid {
		a.Logo = logo.String
	}
	return a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireAffected(result sql.Result, entity string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
	}
	return nil
}
