package events

import "time"

// Tipos de mudança, no mesmo formato das notificações de linha do banco
const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
	ChangeDelete = "DELETE"
)

// BetRow é o snapshot da aposta transmitido nos eventos
type BetRow struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	BetOptionID     string     `json:"bet_option_id"`
	Stake           int64      `json:"stake"`
	PotentialPayout int64      `json:"potential_payout"`
	Status          string     `json:"status"`
	ActualPayout    *int64     `json:"actual_payout,omitempty"`
	PlacedAt        time.Time  `json:"placed_at"`
	SettledAt       *time.Time `json:"settled_at,omitempty"`
}

// BetChange é publicado no tópico "bet_events" a cada mutação confirmada
type BetChange struct {
	Type     string `json:"type"` // INSERT | UPDATE | DELETE
	Bet      BetRow `json:"bet"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}
