package events

import "time"

// Evento emitido pelo bet-service após liquidar (ou cancelar) um mercado.
type MarketSettled struct {
	MarketKind      string    `json:"market_kind"` // "match" | "fun"
	MarketID        string    `json:"market_id"`
	WinningOptionID string    `json:"winning_option_id,omitempty"` // vazio quando cancelado
	WinningOdds     string    `json:"winning_odds,omitempty"`
	Won             int       `json:"won"`
	Lost            int       `json:"lost"`
	Cancelled       int       `json:"cancelled"`
	TotalPayout     int64     `json:"total_payout"`
	Ts              time.Time `json:"ts"`
}
