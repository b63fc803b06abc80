package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/radieske/club-bet-platform/internal/bet-service/dto"
	"github.com/radieske/club-bet-platform/internal/bet-service/model"
	"github.com/radieske/club-bet-platform/internal/bet-service/service"
	"github.com/radieske/club-bet-platform/internal/shared/apperr"
)

// AdminHeader carrega a credencial elevada das rotas administrativas
const AdminHeader = "X-Admin-Token"

// WSHandler é o endpoint de tempo real (ws.Hub)
type WSHandler interface {
	HandleWS(w http.ResponseWriter, r *http.Request)
}

// Server expõe a API REST do bet-service.
// Rotas públicas usam o nível anônimo; /v1/admin exige AdminHeader.
type Server struct {
	log        *zap.Logger
	svc        *service.Service
	hub        WSHandler
	adminToken string
	validate   *validator.Validate
}

func NewServer(log *zap.Logger, svc *service.Service, hub WSHandler, adminToken string) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	v := validator.New()
	// erros de validação usam o nome do campo JSON
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Server{log: log, svc: svc, hub: hub, adminToken: adminToken, validate: v}
}

// Router retorna o roteador HTTP com todos os endpoints
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)
	r.Use(withCORS)

	r.Get("/recent-bets", s.recentBets)
	if s.hub != nil {
		r.Get("/ws", s.hub.HandleWS)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/markets", s.listMarkets)
		r.Get("/markets/{kind}/{id}", s.getMarket)
		r.Post("/bets", s.placeBet)
		r.Get("/leaderboard", s.leaderboard)

		r.Post("/users", s.createProfile)
		r.Get("/users/{id}/wallet", s.wallet)
		r.Get("/users/{id}/bets", s.userBets)
		r.Get("/users/{id}/transactions", s.userTransactions)
		r.Get("/users/{id}/stats", s.userStats)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/markets", s.createMarket)
			r.Get("/markets/{kind}/{id}/preview", s.settlementPreview)
			r.Post("/markets/{kind}/{id}/settle", s.settleMarket)
			r.Post("/markets/{kind}/{id}/cancel", s.cancelMarket)
			r.Delete("/markets/{kind}/{id}", s.deleteMarket)
			r.Post("/users/{id}/adjust", s.adjustPoints)

			r.Post("/clear-markets", s.bulk(service.ConfirmClearMarkets, s.svc.ClearMarkets))
			r.Post("/clear-bets", s.bulk(service.ConfirmClearBets, s.svc.ClearBets))
			r.Post("/reset-balances", s.bulk(service.ConfirmResetBalances, s.svc.ResetBalances))
			r.Post("/purge-users", s.bulk(service.ConfirmPurgeUsers, s.svc.PurgeUsers))
		})
	})
	return r
}

// requireAdmin compara o token em tempo constante; sem token configurado
// as rotas administrativas ficam indisponíveis
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" {
			writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{Error: "admin credential not configured"})
			return
		}
		got := r.Header.Get(AdminHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.adminToken)) != 1 {
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "admin credential required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("requestId", middleware.GetReqID(r.Context())),
		)
	})
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+AdminHeader)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError traduz a taxonomia de erros para status + {"error": ...}
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	body := dto.ErrorResponse{Error: err.Error()}
	var v *apperr.Validation
	if errors.As(err, &v) {
		body.Error = v.Message
		body.Field = v.Field
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, body)
}

// decode lê o corpo JSON e aplica as tags `validate`
func (s *Server) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Invalid("body", "invalid JSON: %v", err)
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperr.Invalid(fieldPath(fe), "failed on '%s'", fe.Tag())
		}
		return apperr.Invalid("body", "%v", err)
	}
	return nil
}

// fieldPath remove o nome do struct raiz ("CreateMarketRequest.options[0].text")
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func marketRef(r *http.Request) (model.MarketRef, error) {
	kind, ok := model.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		return model.MarketRef{}, apperr.Invalid("kind", "must be match or fun")
	}
	return model.MarketRef{Kind: kind, ID: chi.URLParam(r, "id")}, nil
}
