package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cryptofolio/cryptofolio/internal/domain"
	"github.com/cryptofolio/cryptofolio/internal/events"
)

// balanceEpsilon absorbs float noise when comparing stablecoin balances
const balanceEpsilon = 1e-9

// EventEmitter publishes ledger changes
type EventEmitter interface {
	EmitTyped(module string, data events.EventData)
}

// BuyRequest describes a buy to record
type BuyRequest struct {
	AssetID        int64   `json:"asset_id"`
	UnitPrice      float64 `json:"unit_price"`
	AmountInvested float64 `json:"amount_invested"`
	Date           string  `json:"date"` // Defaults to today
	// PayWithStablecoin debits the stablecoin balance by AmountInvested
	PayWithStablecoin bool `json:"pay_with_stablecoin"`
}

// SellRequest describes a sell to record
type SellRequest struct {
	AssetID    int64   `json:"asset_id"`
	UnitPrice  float64 `json:"unit_price"`
	AmountSold float64 `json:"amount_sold"`
	Date       string  `json:"date"` // Defaults to today
	// SettleToStablecoin credits the proceeds to the stablecoin asset
	SettleToStablecoin bool `json:"settle_to_stablecoin"`
}

// AssetHistory is an asset with all of its events
type AssetHistory struct {
	Asset domain.Asset       `json:"asset"`
	Buys  []domain.BuyEvent  `json:"buys"`
	Sells []domain.SellEvent `json:"sells"`
}

// Service applies ledger rules on top of the repository.
// Every write is committed before the call returns and before the change event is emitted.
type Service struct {
	repo       *Repository
	events     EventEmitter
	stablecoin string
	now        func() time.Time
	log        zerolog.Logger
}

// NewService creates a new ledger service
func NewService(repo *Repository, emitter EventEmitter, stablecoinSymbol string, log zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		events:     emitter,
		stablecoin: domain.NormalizeSymbol(stablecoinSymbol),
		now:        time.Now,
		log:        log.With().Str("service", "ledger").Logger(),
	}
}

// StablecoinSymbol returns the lowercase settlement symbol
func (s *Service) StablecoinSymbol() string {
	return s.stablecoin
}

// ListAssets returns all assets
func (s *Service) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	return s.repo.ListAssets(ctx)
}

// GetAsset returns one asset
func (s *Service) GetAsset(ctx context.Context, id int64) (*domain.Asset, error) {
	return s.repo.GetAsset(ctx, id)
}

// CreateAsset validates and stores a new asset
func (s *Service) CreateAsset(ctx context.Context, asset domain.Asset) (*domain.Asset, error) {
	asset = cleanAsset(asset)
	if err := validateAsset(asset); err != nil {
		return nil, err
	}

	id, err := s.repo.InsertAsset(ctx, asset)
	if err != nil {
		return nil, err
	}
	asset.ID = id

	s.log.Info().Int64("asset_id", id).Str("symbol", asset.Symbol).Msg("Asset created")
	s.emit("created", "asset", id, id)
	return &asset, nil
}

// UpdateAsset corrects an asset's name, symbol or logo
func (s *Service) UpdateAsset(ctx context.Context, asset domain.Asset) (*domain.Asset, error) {
	asset = cleanAsset(asset)
	if err := validateAsset(asset); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateAsset(ctx, asset); err != nil {
		return nil, err
	}

	s.emit("updated", "asset", asset.ID, asset.ID)
	return &asset, nil
}

// DeleteAsset removes an asset; its events stay in the ledger
func (s *Service) DeleteAsset(ctx context.Context, id int64) error {
	if err := s.repo.DeleteAsset(ctx, id); err != nil {
		return err
	}

	s.log.Info().Int64("asset_id", id).Msg("Asset deleted")
	s.emit("deleted", "asset", id, id)
	return nil
}

// History returns an asset with its buys and sells
func (s *Service) History(ctx context.Context, assetID int64) (*AssetHistory, error) {
	asset, err := s.repo.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	buys, err := s.repo.ListBuys(ctx, assetID)
	if err != nil {
		return nil, err
	}
	sells, err := s.repo.ListSells(ctx, assetID)
	if err != nil {
		return nil, err
	}
	return &AssetHistory{Asset: *asset, Buys: buys, Sells: sells}, nil
}

// RecordBuy stores a buy, optionally paid from the stablecoin balance
func (s *Service) RecordBuy(ctx context.Context, req BuyRequest) (*domain.BuyEvent, error) {
	buy := domain.BuyEvent{
		AssetID:        req.AssetID,
		UnitPrice:      req.UnitPrice,
		AmountInvested: req.AmountInvested,
		Date:           s.dateOrToday(req.Date),
	}
	if err := validateAmounts(buy.UnitPrice, buy.AmountInvested, buy.Date); err != nil {
		return nil, err
	}

	err := s.repo.InTransaction(func(tx *Repository) error {
		asset, err := tx.GetAsset(ctx, buy.AssetID)
		if err != nil {
			return err
		}

		if req.PayWithStablecoin {
			stable, err := s.stablecoinAsset(ctx, tx)
			if err != nil {
				return err
			}
			if stable.ID == asset.ID {
				return fmt.Errorf("%w: cannot pay for %s with itself", ErrInvalidEvent, asset.Symbol)
			}
			balance, err := holdingBalance(ctx, tx, stable.ID)
			if err != nil {
				return err
			}
			if balance+balanceEpsilon < buy.AmountInvested {
				return fmt.Errorf("%w: have %.2f, need %.2f", ErrInsufficientStablecoin, balance, buy.AmountInvested)
			}
			if _, err := tx.InsertSell(ctx, domain.SellEvent{
				AssetID:    stable.ID,
				UnitPrice:  1,
				AmountSold: buy.AmountInvested,
				Date:       buy.Date,
			}); err != nil {
				return err
			}
		}

		id, err := tx.InsertBuy(ctx, buy)
		if err != nil {
			return err
		}
		buy.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("buy_id", buy.ID).
		Int64("asset_id", buy.AssetID).
		Float64("amount", buy.AmountInvested).
		Bool("stablecoin", req.PayWithStablecoin).
		Msg("Buy recorded")
	s.emit("created", "buy", buy.ID, buy.AssetID)
	return &buy, nil
}

// RecordSell stores a sell, optionally crediting the proceeds to the stablecoin
func (s *Service) RecordSell(ctx context.Context, req SellRequest) (*domain.SellEvent, error) {
	sell := domain.SellEvent{
		AssetID:    req.AssetID,
		UnitPrice:  req.UnitPrice,
		AmountSold: req.AmountSold,
		Date:       s.dateOrToday(req.Date),
	}
	if err := validateAmounts(sell.UnitPrice, sell.AmountSold, sell.Date); err != nil {
		return nil, err
	}

	err := s.repo.InTransaction(func(tx *Repository) error {
		asset, err := tx.GetAsset(ctx, sell.AssetID)
		if err != nil {
			return err
		}

		id, err := tx.InsertSell(ctx, sell)
		if err != nil {
			return err
		}
		sell.ID = id

		if !req.SettleToStablecoin {
			return nil
		}

		stable, err := s.stablecoinAsset(ctx, tx)
		if err != nil {
			return err
		}
		if stable.ID == asset.ID {
			return fmt.Errorf("%w: cannot settle %s into itself", ErrInvalidEvent, asset.Symbol)
		}
		_, err = tx.InsertBuy(ctx, domain.BuyEvent{
			AssetID:        stable.ID,
			UnitPrice:      1,
			AmountInvested: sell.AmountSold,
			Date:           sell.Date,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("sell_id", sell.ID).
		Int64("asset_id", sell.AssetID).
		Float64("amount", sell.AmountSold).
		Bool("stablecoin", req.SettleToStablecoin).
		Msg("Sell recorded")
	s.emit("created", "sell", sell.ID, sell.AssetID)
	return &sell, nil
}

// UpdateBuy edits price, amount and date of an existing buy
func (s *Service) UpdateBuy(ctx context.Context, buy domain.BuyEvent) (*domain.BuyEvent, error) {
	if err := validateAmounts(buy.UnitPrice, buy.AmountInvested, buy.Date); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetBuy(ctx, buy.ID)
	if err != nil {
		return nil, err
	}
	buy.AssetID = existing.AssetID

	if err := s.repo.UpdateBuy(ctx, buy); err != nil {
		return nil, err
	}
	s.emit("updated", "buy", buy.ID, buy.AssetID)
	return &buy, nil
}

// DeleteBuy removes a buy
func (s *Service) DeleteBuy(ctx context.Context, id int64) error {
	existing, err := s.repo.GetBuy(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteBuy(ctx, id); err != nil {
		return err
	}
	s.emit("deleted", "buy", id, existing.AssetID)
	return nil
}

// UpdateSell edits price, amount and date of an existing sell
func (s *Service) UpdateSell(ctx context.Context, sell domain.SellEvent) (*domain.SellEvent, error) {
	if err := validateAmounts(sell.UnitPrice, sell.AmountSold, sell.Date); err != nil {
		return nil, err
	}
	existing, err := s.repo.GetSell(ctx, sell.ID)
	if err != nil {
		return nil, err
	}
	sell.AssetID = existing.AssetID

	if err := s.repo.UpdateSell(ctx, sell); err != nil {
		return nil, err
	}
	s.emit("updated", "sell", sell.ID, sell.AssetID)
	return &sell, nil
}

// DeleteSell removes a sell
func (s *Service) DeleteSell(ctx context.Context, id int64) error {
	existing, err := s.repo.GetSell(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteSell(ctx, id); err != nil {
		return err
	}
	s.emit("deleted", "sell", id, existing.AssetID)
	return nil
}

// StablecoinBalance returns the remaining stablecoin quantity
func (s *Service) StablecoinBalance(ctx context.Context) (float64, error) {
	stable, err := s.stablecoinAsset(ctx, s.repo)
	if err != nil {
		return 0, err
	}
	return holdingBalance(ctx, s.repo, stable.ID)
}

func (s *Service) stablecoinAsset(ctx context.Context, repo *Repository) (*domain.Asset, error) {
	if s.stablecoin == "" {
		return nil, ErrStablecoinMissing
	}
	asset, err := repo.FindAssetBySymbol(ctx, s.stablecoin)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrStablecoinMissing, s.stablecoin)
	}
	return asset, err
}

func (s *Service) dateOrToday(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return s.now().Format(domain.DateLayout)
	}
	return date
}

func (s *Service) emit(action, entity string, id, assetID int64) {
	if s.events == nil {
		return
	}
	s.events.EmitTyped("ledger", &events.LedgerChangedData{
		Action:  action,
		Entity:  entity,
		ID:      id,
		AssetID: assetID,
	})
}

// holdingBalance returns bought minus sold quantity for one asset
func holdingBalance(ctx context.Context, repo *Repository, assetID int64) (float64, error) {
	buys, err := repo.ListBuys(ctx, assetID)
	if err != nil {
		return 0, err
	}
	sells, err := repo.ListSells(ctx, assetID)
	if err != nil {
		return 0, err
	}

	balance := 0.0
	for _, b := range buys {
		balance += b.Quantity()
	}
	for _, sl := range sells {
		balance -= sl.Quantity()
	}
	return balance, nil
}

func cleanAsset(asset domain.Asset) domain.Asset {
	asset.Name = strings.TrimSpace(asset.Name)
	asset.Symbol = strings.TrimSpace(asset.Symbol)
	asset.Logo = strings.TrimSpace(asset.Logo)
	return asset
}

func validateAsset(asset domain.Asset) error {
	if asset.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidAsset)
	}
	if asset.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidAsset)
	}
	return nil
}

func validateAmounts(unitPrice, amount float64, date string) error {
	if unitPrice <= 0 {
		return fmt.Errorf("%w: unit price must be positive", ErrInvalidEvent)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidEvent)
	}
	if !domain.ValidDate(date) {
		return fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", ErrInvalidEvent, date)
	}
	return nil
}
