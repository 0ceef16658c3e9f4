package stockapi

// StockDTO is one element of the remote stock list.
type StockDTO struct {
	Ticker       string  `json:"ticker"`       // e.g., "AAPL"
	Name         string  `json:"name"`         // e.g., "Apple Inc."
	CurrentPrice float64 `json:"currentPrice"` // last traded price
}
