package models

import "time"

// PortfolioRecord is the stored envelope for a portfolio document. The
// full portfolio is carried as JSON in Value; the envelope duplicates the
// fields needed by list queries so summaries never unmarshal documents.
type PortfolioRecord struct {
	PortfolioID string    `json:"portfolio_id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Public      bool      `json:"public"`
	NetValue    float64   `json:"net_value"`
	Value       string    `json:"value"`
	DateTime    time.Time `json:"datetime"`
}

// StockRecord is the stored envelope for a stock document. Version is the
// compare-and-swap stamp checked by every aggregate-bearing save; Ticker
// and Industry are duplicated for lookup queries.
type StockRecord struct {
	StockID  string    `json:"stock_id"`
	Ticker   string    `json:"ticker"`
	Industry string    `json:"industry"`
	Version  int64     `json:"version"`
	Value    string    `json:"value"`
	DateTime time.Time `json:"datetime"`
}
