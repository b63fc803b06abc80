package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/radieske/club-bet-platform/internal/bet-service/dto"
	"github.com/radieske/club-bet-platform/internal/bet-service/model"
	"github.com/radieske/club-bet-platform/internal/bet-service/service"
	"github.com/radieske/club-bet-platform/internal/shared/apperr"
)

// recentBets alimenta o feed público; nunca deve ser cacheado
func (s *Server) recentBets(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	act, err := s.svc.RecentBets(r.Context())
	if err != nil {
		s.log.Sugar().Errorw("recent bets failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, act)
}

func (s *Server) listMarkets(w http.ResponseWriter, r *http.Request) {
	var f service.MarketFilter
	if k := r.URL.Query().Get("kind"); k != "" {
		kind, ok := model.ParseKind(k)
		if !ok {
			s.writeError(w, r, apperr.Invalid("kind", "must be match or fun"))
			return
		}
		f.Kind = kind
	}
	if st := r.URL.Query().Get("state"); st != "" {
		state, ok := model.ParseState(st)
		if !ok {
			s.writeError(w, r, apperr.Invalid("state", "must be open, closed, settled or cancelled"))
			return
		}
		f.State = state
	}
	out, err := s.svc.ListMarkets(r.Context(), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getMarket(w http.ResponseWriter, r *http.Request) {
	ref, err := marketRef(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d, err := s.svc.GetMarket(r.Context(), ref)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	bet, err := s.svc.PlaceBet(r.Context(), service.PlaceBetInput{
		UserID:   req.UserID,
		OptionID: req.OptionID,
		Stake:    req.Stake,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.PlaceBetResponse{
		BetID:           bet.ID,
		Status:          string(bet.Status),
		PotentialPayout: bet.PotentialPayout,
		Available:       bet.Wallet.Available,
	})
}

func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.svc.Leaderboard(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createProfile(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateProfileRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.svc.CreateProfile(r.Context(), service.CreateProfileInput{ID: req.ID, Email: req.Email, FullName: req.FullName})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) wallet(w http.ResponseWriter, r *http.Request) {
	wal, err := s.svc.Wallet(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wal)
}

func (s *Server) userBets(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.UserBets(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("status"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) userTransactions(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.svc.UserTransactions(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) userStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.UserStats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ---- admin ----

func (s *Server) createMarket(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateMarketRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	in := service.CreateMarketInput{
		Kind:        model.MarketKind(req.Kind),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		HomeTeam:    req.HomeTeam,
		AwayTeam:    req.AwayTeam,
		MatchDate:   req.MatchDate,
		ClosingTime: req.ClosingTime,
	}
	for _, o := range req.Options {
		in.Options = append(in.Options, service.OptionInput{Text: o.Text, Odds: o.Odds})
	}
	d, err := s.svc.CreateMarket(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) settlementPreview(w http.ResponseWriter, r *http.Request) {
	ref, err := marketRef(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out, err := s.svc.SettlementPreview(r.Context(), ref)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) settleMarket(w http.ResponseWriter, r *http.Request) {
	ref, err := marketRef(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req dto.SettleRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.svc.SettleMarket(r.Context(), ref, req.WinningOptionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) cancelMarket(w http.ResponseWriter, r *http.Request) {
	ref, err := marketRef(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.svc.CancelMarket(r.Context(), ref)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) deleteMarket(w http.ResponseWriter, r *http.Request) {
	ref, err := marketRef(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.DeleteMarket(r.Context(), ref); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) adjustPoints(w http.ResponseWriter, r *http.Request) {
	var req dto.AdjustPointsRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	bal, err := s.svc.AdjustPoints(r.Context(), id, req.Delta)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.AdjustPointsResponse{UserID: id, Balance: bal})
}

// bulk monta o handler de uma operação em massa protegida por frase de confirmação
func (s *Server) bulk(op string, run func(ctx context.Context, confirm string) (service.BulkResult, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.ConfirmRequest
		if err := s.decode(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}
		res, err := run(r.Context(), req.Confirm)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.log.Sugar().Infow("admin bulk operation", "operation", op, "affected", res.Affected)
		writeJSON(w, http.StatusOK, res)
	}
}

func intParam(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperr.Invalid(name, "must be a non-negative integer")
	}
	return n, nil
}
