package coingecko

import "github.com/cryptofolio/cryptofolio/internal/domain"

// marketCoin is one element of /coins/markets.
// Prices and ranks are null for coins the index has stopped tracking.
type marketCoin struct {
	ID            string   `json:"id"`
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	Image         string   `json:"image"`
	CurrentPrice  *float64 `json:"current_price"`
	MarketCapRank *int     `json:"market_cap_rank"`
}

func (m marketCoin) toDomain() domain.MarketCoin {
	coin := domain.MarketCoin{
		ID:     m.ID,
		Symbol: m.Symbol,
		Name:   m.Name,
		Image:  m.Image,
	}
	if m.CurrentPrice != nil {
		coin.CurrentPrice = *m.CurrentPrice
	}
	if m.MarketCapRank != nil {
		coin.MarketCapRank = *m.MarketCapRank
	}
	return coin
}

// searchResponse is the body of /search
type searchResponse struct {
	Coins []searchCoin `json:"coins"`
}

type searchCoin struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	MarketCapRank *int   `json:"market_cap_rank"`
	Thumb         string `json:"thumb"`
	Large         string `json:"large"`
}

func (s searchCoin) toDomain() domain.SearchCoin {
	coin := domain.SearchCoin{
		ID:     s.ID,
		Name:   s.Name,
		Symbol: s.Symbol,
		Thumb:  s.Thumb,
		Large:  s.Large,
	}
	if s.MarketCapRank != nil {
		coin.MarketCapRank = *s.MarketCapRank
	}
	return coin
}

// statusEnvelope is how the index reports errors inside a 200 body,
// e.g. {"status":{"error_code":429,"error_message":"..."}}
type statusEnvelope struct {
	Status *struct {
		ErrorCode    int    `json:"error_code"`
		ErrorMessage string `json:"error_message"`
	} `json:"status"`
}
