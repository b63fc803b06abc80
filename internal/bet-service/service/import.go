package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/club-bet-platform/internal/bet-service/model"
	"github.com/radieske/club-bet-platform/internal/shared/apperr"
)

// ImportMatch é uma partida já normalizada pelo importador de odds
type ImportMatch struct {
	HomeTeam    string
	AwayTeam    string
	MatchDate   time.Time
	ClosingTime time.Time
	Status      model.MatchStatus
	Options     []OptionInput
}

type ImportReport struct {
	Inserted       int `json:"inserted"`
	Updated        int `json:"updated"`
	OptionsCreated int `json:"optionsCreated"`
	// Skipped: partidas já liquidadas/canceladas ou rejeitadas na validação
	Skipped int `json:"skipped"`
}

// ImportMatches grava cada partida numa transação própria. Uma partida
// existente (mesmos times e data) tem status e prazo atualizados e recebe só
// as opções que ainda não tem. Falha de um item não interrompe os demais.
func (s *Service) ImportMatches(ctx context.Context, items []ImportMatch) (ImportReport, error) {
	var rep ImportReport
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		created, updated, opts, err := s.importOne(ctx, it)
		if err != nil {
			rep.Skipped++
			s.log.Warn("import item skipped",
				zap.String("home", it.HomeTeam),
				zap.String("away", it.AwayTeam),
				zap.Error(err),
			)
			continue
		}
		if created {
			rep.Inserted++
		}
		if updated {
			rep.Updated++
		}
		rep.OptionsCreated += opts
	}

	s.log.Info("odds import done",
		zap.Int("inserted", rep.Inserted),
		zap.Int("updated", rep.Updated),
		zap.Int("optionsCreated", rep.OptionsCreated),
		zap.Int("skipped", rep.Skipped),
	)
	return rep, nil
}

func (s *Service) importOne(ctx context.Context, it ImportMatch) (created, updated bool, added int, err error) {
	home, away := strings.TrimSpace(it.HomeTeam), strings.TrimSpace(it.AwayTeam)
	if home == "" || away == "" {
		return false, false, 0, apperr.Invalid("homeTeam", "home and away teams are required")
	}
	if it.MatchDate.IsZero() {
		return false, false, 0, apperr.Invalid("matchDate", "required")
	}
	status := it.Status
	if status == "" {
		status = model.MatchUpcoming
	}
	closing := it.ClosingTime
	if closing.IsZero() {
		closing = it.MatchDate.Add(-time.Hour)
	}
	for _, o := range it.Options {
		if strings.TrimSpace(o.Text) == "" || o.Odds.LessThan(model.MinOdds) {
			return false, false, 0, apperr.Invalid("options", "option %q has odds %s, minimum is %s", o.Text, o.Odds, model.MinOdds)
		}
	}

	date := it.MatchDate.UTC()
	now := s.now()
	err = s.store.InTx(ctx, func(q Queries) error {
		m, found, err := q.FindMatch(ctx, home, away, &date)
		if err != nil {
			return err
		}
		if found {
			mk := model.MatchMarket(m)
			if mk.Settled() || mk.Cancelled() {
				return apperr.Conflictf("match %s is already %s", m.ID, m.Status)
			}
			if err := q.UpdateMatchSchedule(ctx, m.ID, status, closing.UTC()); err != nil {
				return err
			}
			updated = true
		} else {
			m = model.Match{
				ID:          uuid.NewString(),
				HomeTeam:    home,
				AwayTeam:    away,
				MatchDate:   date,
				Status:      status,
				ClosingTime: closing.UTC(),
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := q.InsertMatch(ctx, m); err != nil {
				return err
			}
			created = true
		}

		ref := model.MarketRef{Kind: model.KindMatch, ID: m.ID}
		existing, err := q.ListOptions(ctx, ref)
		if err != nil {
			return err
		}
		added, err = insertMissingOptions(ctx, q, ref, existing, it.Options, now)
		return err
	})
	if err != nil {
		return false, false, 0, err
	}
	return created, updated, added, nil
}
