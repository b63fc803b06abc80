package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type PlaceBetRequest struct {
	UserID   string `json:"userId" validate:"required"`
	OptionID string `json:"optionId" validate:"required"`
	Stake    int64  `json:"stake" validate:"required"` // pontos inteiros; mínimo checado no serviço
}

type OptionRequest struct {
	Text string          `json:"text" validate:"required"`
	Odds decimal.Decimal `json:"odds"` // aceita número ou string ("1.85")
}

// CreateMarketRequest cobre os dois tipos; campos de partida ou de fun bet conforme kind
type CreateMarketRequest struct {
	Kind        string          `json:"kind" validate:"required,oneof=match fun"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	HomeTeam    string          `json:"homeTeam"`
	AwayTeam    string          `json:"awayTeam"`
	MatchDate   *time.Time      `json:"matchDate"`
	ClosingTime *time.Time      `json:"closingTime"`
	Options     []OptionRequest `json:"options" validate:"required,min=2,dive"`
}

type SettleRequest struct {
	WinningOptionID string `json:"winningOptionId" validate:"required"`
}

type AdjustPointsRequest struct {
	Delta int64 `json:"delta" validate:"required"`
}

// ConfirmRequest carrega a frase exigida pelas operações destrutivas
type ConfirmRequest struct {
	Confirm string `json:"confirm" validate:"required"`
}

type CreateProfileRequest struct {
	ID       string `json:"id"`
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"fullName" validate:"required"`
}
