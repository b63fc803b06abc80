package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/club-bet-platform/internal/bet-service/model"
	"github.com/radieske/club-bet-platform/internal/bet-service/service"
)

func labels(m service.ImportMatch) []string {
	out := make([]string, 0, len(m.Options))
	for _, o := range m.Options {
		out = append(out, o.Text+"="+o.Odds.String())
	}
	return out
}

func TestParse_ArrayWithObjectOdds(t *testing.T) {
	data := []byte(`[{
		"home_team": "AVC HS 1",
		"away_team": "Lycurgus",
		"match_date": "2025-11-22T20:00:00+01:00",
		"odds": {"Home win": 1.6, "Away win": "2.35"}
	}]`)

	// Execute
	res, err := Parse(data)

	// Assert
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	m := res.Matches[0]
	assert.Equal(t, "AVC HS 1", m.HomeTeam)
	assert.Equal(t, "Lycurgus", m.AwayTeam)
	assert.Equal(t, time.Date(2025, 11, 22, 19, 0, 0, 0, time.UTC), m.MatchDate)
	assert.Equal(t, time.Date(2025, 11, 22, 18, 0, 0, 0, time.UTC), m.ClosingTime)
	assert.Equal(t, model.MatchUpcoming, m.Status)
	assert.Equal(t, []string{"Away win=2.35", "Home win=1.6"}, labels(m))
}

func TestParse_WrappedMarketsAndThreeWay(t *testing.T) {
	data := []byte(`{"matches": [{
		"homeTeam": "Sliedrecht",
		"awayTeam": "Dynamo",
		"kickoff": "2025-12-01 19:30",
		"closingTime": "2025-12-01T19:00:00Z",
		"status": "LIVE",
		"homeOdds": 1.9, "drawOdds": "3.1", "awayOdds": 2.05,
		"markets": [
			{"name": "Total sets", "outcomes": [{"label": "3", "price": 1.7}, {"label": "4+", "price": 2.1}]},
			{"selections": {"Yes": 1.5}}
		],
		"set_odds": [{"name": "3-0", "odds": 4.5}]
	}]}`)

	res, err := Parse(data)

	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	m := res.Matches[0]
	assert.Equal(t, time.Date(2025, 12, 1, 19, 30, 0, 0, time.UTC), m.MatchDate)
	assert.Equal(t, time.Date(2025, 12, 1, 19, 0, 0, 0, time.UTC), m.ClosingTime)
	assert.Equal(t, model.MatchLive, m.Status)
	assert.Equal(t, []string{
		"Total sets: 3=1.7",
		"Total sets: 4+=2.1",
		"Market: Yes=1.5",
		"Home win=1.9",
		"Draw=3.1",
		"Away win=2.05",
		"Sets: 3-0=4.5",
	}, labels(m))
}

func TestParse_BookmakersAndWinnerObject(t *testing.T) {
	data := []byte(`{"data": [{
		"home": "Orion", "away": "Taurus", "date": "2025-10-04",
		"bookmakers": [{"title": "Club", "markets": [{"key": "h2h", "outcomes": [{"name": "Orion", "price": 1.45}]}]}],
		"odds_winner": {"home": 1.5, "away": 2.6}
	}]}`)

	res, err := Parse(data)

	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, []string{"Club - h2h: Orion=1.45", "Home win=1.5", "Away win=2.6"}, labels(res.Matches[0]))
}

func TestParse_SkipsAndDrops(t *testing.T) {
	data := []byte(`[
		{"home_team": "A", "match_date": "2025-10-04T18:00:00Z"},
		{"home_team": "A", "away_team": "B", "match_date": "next friday"},
		"junk",
		{"home_team": "A", "away_team": "B", "start_time": 1759600800000,
		 "odds": [{"label": "A", "odds": 1.0}, {"label": "B", "odds": 1.8}, {"label": "b", "odds": 2.0}]}
	]`)

	res, err := Parse(data)

	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, time.UnixMilli(1759600800000).UTC(), res.Matches[0].MatchDate)
	assert.Equal(t, []string{"B=1.8"}, labels(res.Matches[0]))
	assert.Len(t, res.Dropped, 2)
	require.Len(t, res.Skipped, 3)
	assert.Equal(t, Skipped{Index: 0, Reason: "missing home or away team"}, res.Skipped[0])
	assert.Equal(t, Skipped{Index: 1, Reason: "missing or invalid match date"}, res.Skipped[1])
	assert.Equal(t, 2, res.Skipped[2].Index)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte(`{not json`))
	assert.Error(t, err)

	_, err = Parse([]byte(`{"items": []}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no matches found")
}
