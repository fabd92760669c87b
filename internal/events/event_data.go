package events

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// LedgerChangedData contains data for LedgerChanged events
type LedgerChangedData struct {
	Action  string `json:"action"` // created, updated, deleted
	Entity  string `json:"entity"` // asset, buy, sell
	ID      int64  `json:"id"`
	AssetID int64  `json:"asset_id,omitempty"`
}

// EventType returns the event type for LedgerChangedData
func (d *LedgerChangedData) EventType() EventType {
	return LedgerChanged
}

// PricesPreloadedData contains data for PricesPreloaded events
type PricesPreloadedData struct {
	Cached int `json:"cached"`
}

// EventType returns the event type for PricesPreloadedData
func (d *PricesPreloadedData) EventType() EventType {
	return PricesPreloaded
}

// CatalogSyncedData contains data for CatalogSynced events
type CatalogSyncedData struct {
	Coins int `json:"coins"`
}

// EventType returns the event type for CatalogSyncedData
func (d *CatalogSyncedData) EventType() EventType {
	return CatalogSynced
}

// ValuationCompletedData contains data for ValuationCompleted events
type ValuationCompletedData struct {
	RunID      string  `json:"run_id"`
	Assets     int     `json:"assets"`
	TotalValue float64 `json:"total_value"`
}

// EventType returns the event type for ValuationCompletedData
func (d *ValuationCompletedData) EventType() EventType {
	return ValuationCompleted
}

// ValuationFailedData contains data for ValuationFailed events
type ValuationFailedData struct {
	Error string `json:"error"`
}

// EventType returns the event type for ValuationFailedData
func (d *ValuationFailedData) EventType() EventType {
	return ValuationFailed
}

// ErrorEventData contains data for ErrorOccurred events
type ErrorEventData struct {
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// EventType returns the event type for ErrorEventData
func (d *ErrorEventData) EventType() EventType {
	return ErrorOccurred
}
