package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/club-bet-platform/internal/bet-service/model"
	"github.com/radieske/club-bet-platform/internal/bet-service/service"
)

func importItem(home, away string, date time.Time, options ...string) service.ImportMatch {
	return service.ImportMatch{HomeTeam: home, AwayTeam: away, MatchDate: date, Options: opts(options...)}
}

func TestImportMatches_InsertThenUpdate(t *testing.T) {
	f := newFixture(t)
	date := baseTime.Add(72 * time.Hour)

	// Execute
	rep, err := f.svc.ImportMatches(f.ctx, []service.ImportMatch{
		importItem("AVC HS 1", "Lycurgus", date, "Home win", "1.60", "Away win", "2.30"),
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, service.ImportReport{Inserted: 1, OptionsCreated: 2}, rep)

	list, err := f.svc.ListMarkets(f.ctx, service.MarketFilter{Kind: model.KindMatch})
	require.NoError(t, err)
	require.Len(t, list, 1)
	m := list[0]
	assert.Equal(t, date.Add(-time.Hour), m.Match.ClosingTime, "closing defaults to one hour before the match")
	assert.Equal(t, model.MatchUpcoming, m.Match.Status)

	// segunda carga: mesma partida, prazo novo e uma opção extra
	closing := date.Add(-30 * time.Minute)
	again := importItem("avc hs 1", "lycurgus", date, "Home win", "1.55", "Sets: 3-0", "4.00")
	again.ClosingTime = closing
	again.Status = model.MatchLive

	rep, err = f.svc.ImportMatches(f.ctx, []service.ImportMatch{again})
	require.NoError(t, err)
	assert.Equal(t, service.ImportReport{Updated: 1, OptionsCreated: 1}, rep)

	d, err := f.svc.GetMarket(f.ctx, m.Ref)
	require.NoError(t, err)
	assert.Equal(t, closing, d.Match.ClosingTime)
	assert.Equal(t, model.MatchLive, d.Match.Status)
	require.Len(t, d.Options, 3)
	assert.Equal(t, "1.6", d.Options[0].Odds.String(), "existing option odds are left alone")
	assert.Equal(t, "Sets: 3-0", d.Options[2].OptionText)
}

func TestImportMatches_DifferentDateIsNewMatch(t *testing.T) {
	f := newFixture(t)
	date := baseTime.Add(72 * time.Hour)

	rep, err := f.svc.ImportMatches(f.ctx, []service.ImportMatch{
		importItem("Sliedrecht", "Dynamo", date, "Home win", "1.90", "Away win", "1.90"),
		importItem("Sliedrecht", "Dynamo", date.Add(7*24*time.Hour), "Home win", "1.90", "Away win", "1.90"),
	})

	require.NoError(t, err)
	assert.Equal(t, 2, rep.Inserted)
	assert.Equal(t, 4, rep.OptionsCreated)
}

func TestImportMatches_SkipsInvalidAndSettled(t *testing.T) {
	f := newFixture(t)
	date := baseTime.Add(48 * time.Hour)
	settled := f.match(t, "Orion", "Taurus", "Orion", "1.50", "Taurus", "2.50")
	_, err := f.svc.SettleMarket(f.ctx, settled.Ref, settled.Options[0].ID)
	require.NoError(t, err)

	rep, err := f.svc.ImportMatches(f.ctx, []service.ImportMatch{
		{HomeTeam: "", AwayTeam: "Taurus", MatchDate: date},
		{HomeTeam: "Orion", AwayTeam: "Taurus"},
		importItem("Orion", "Taurus", settled.Match.MatchDate, "Orion", "1.40"),
		importItem("Zaanstad", "Apollo", date, "Home win", "1.00"),
		importItem("Zaanstad", "Apollo", date, "Home win", "1.70"),
	})

	require.NoError(t, err)
	assert.Equal(t, service.ImportReport{Inserted: 1, OptionsCreated: 1, Skipped: 4}, rep)
}

func TestImportMatches_CancelledContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(f.ctx)
	cancel()

	_, err := f.svc.ImportMatches(ctx, []service.ImportMatch{importItem("A", "B", baseTime.Add(time.Hour))})

	assert.ErrorIs(t, err, context.Canceled)
}
