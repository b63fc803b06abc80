package dto

type PlaceBetResponse struct {
	BetID           string `json:"betId"`
	Status          string `json:"status"`
	PotentialPayout int64  `json:"potentialPayout"`
	Available       int64  `json:"available"`
}

type AdjustPointsResponse struct {
	UserID  string `json:"userId"`
	Balance int64  `json:"balance"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
