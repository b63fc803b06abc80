// Package parser normaliza os arquivos JSON de odds (formatos variados de
// fornecedores e planilhas exportadas) em partidas prontas para importação.
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/club-bet-platform/internal/bet-service/model"
	"github.com/radieske/club-bet-platform/internal/bet-service/service"
)

// Rótulos usados para odds de resultado simples (1X2)
const (
	LabelHome = "Home win"
	LabelDraw = "Draw"
	LabelAway = "Away win"
)

// Skipped descreve um item ignorado e o motivo
type Skipped struct {
	Index  int
	Reason string
}

// Result é o que sobrou do arquivo depois da normalização
type Result struct {
	Matches []service.ImportMatch
	Skipped []Skipped
	// Dropped: opções descartadas (odds inválidas ou rótulo repetido)
	Dropped []string
}

var (
	homeKeys    = []string{"home_team", "home", "homeTeam", "home_name", "homeName"}
	awayKeys    = []string{"away_team", "away", "awayTeam", "away_name", "awayName"}
	dateKeys    = []string{"match_date", "date", "start_time", "kickoff", "startTime"}
	closingKeys = []string{"closing_time", "closingTime", "close_time"}
	oddsKeys    = []string{"odds", "market_odds", "prices", "selections"}
	selKeys     = []string{"selections", "outcomes", "options", "prices"}
	labelKeys   = []string{"option_text", "label", "name", "outcome", "id"}
	valueKeys   = []string{"odds", "price", "value", "decimal"}
	winnerKeys  = []string{"odds_winner", "match_winner", "winner_odds", "oddsWinner"}
	setKeys     = []string{"set_odds", "sets_odds", "setOdds"}
)

var errNoMatches = errors.New(`no matches found (expected an array or {"matches": [...]})`)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Parse aceita um array de partidas ou um objeto {matches|data: [...]}
func Parse(data []byte) (Result, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return Result{}, fmt.Errorf("parse odds json: %w", err)
	}

	var items []any
	switch v := root.(type) {
	case []any:
		items = v
	case map[string]any:
		for _, k := range []string{"matches", "data"} {
			if arr, ok := v[k].([]any); ok {
				items = arr
				break
			}
		}
	}
	if len(items) == 0 {
		return Result{}, errNoMatches
	}

	var res Result
	for i, raw := range items {
		obj, ok := raw.(map[string]any)
		if !ok {
			res.Skipped = append(res.Skipped, Skipped{Index: i, Reason: "not an object"})
			continue
		}
		m, reason := normalize(obj, &res)
		if reason != "" {
			res.Skipped = append(res.Skipped, Skipped{Index: i, Reason: reason})
			continue
		}
		res.Matches = append(res.Matches, m)
	}
	return res, nil
}

func normalize(obj map[string]any, res *Result) (service.ImportMatch, string) {
	home, away := firstString(obj, homeKeys), firstString(obj, awayKeys)
	if home == "" || away == "" {
		return service.ImportMatch{}, "missing home or away team"
	}
	date, ok := firstTime(obj, dateKeys)
	if !ok {
		return service.ImportMatch{}, "missing or invalid match date"
	}
	closing, ok := firstTime(obj, closingKeys)
	if !ok {
		closing = date.Add(-time.Hour)
	}

	m := service.ImportMatch{
		HomeTeam:    home,
		AwayTeam:    away,
		MatchDate:   date,
		ClosingTime: closing,
		Status:      status(obj),
	}

	seen := make(map[string]bool)
	add := func(label string, odds decimal.Decimal) {
		label = strings.TrimSpace(label)
		key := strings.ToLower(label)
		switch {
		case label == "":
			return
		case odds.LessThan(model.MinOdds):
			res.Dropped = append(res.Dropped, fmt.Sprintf("%s vs %s: %s (odds %s)", home, away, label, odds))
			return
		case seen[key]:
			res.Dropped = append(res.Dropped, fmt.Sprintf("%s vs %s: %s (duplicate)", home, away, label))
			return
		}
		seen[key] = true
		m.Options = append(m.Options, service.OptionInput{Text: label, Odds: odds})
	}

	if v := first(obj, oddsKeys); v != nil {
		collect(v, "", add)
	}
	if markets, ok := obj["markets"].([]any); ok {
		for _, mk := range markets {
			if mo, ok := mk.(map[string]any); ok {
				collect(first(mo, selKeys), marketName(mo), add)
			}
		}
	}
	if books, ok := obj["bookmakers"].([]any); ok {
		for _, b := range books {
			bo, ok := b.(map[string]any)
			if !ok {
				continue
			}
			book := firstString(bo, []string{"title", "name"})
			markets, _ := bo["markets"].([]any)
			for _, mk := range markets {
				mo, ok := mk.(map[string]any)
				if !ok {
					continue
				}
				prefix := marketName(mo)
				if book != "" {
					prefix = book + " - " + prefix
				}
				collect(first(mo, selKeys), prefix, add)
			}
		}
	}

	// 1X2 no próprio item; "home"/"away" só contam quando numéricos
	threeWay(obj, []string{"homeOdds", "home_price", "home"}, []string{"drawOdds", "draw_price", "draw"}, []string{"awayOdds", "away_price", "away"}, add)

	if w := first(obj, winnerKeys); w != nil {
		switch wv := w.(type) {
		case []any:
			collect(wv, "Match winner", add)
		case map[string]any:
			threeWay(wv, []string{"home", "Home", "home_price"}, []string{"draw", "Draw", "draw_price"}, []string{"away", "Away", "away_price"}, add)
		}
	}
	if so := first(obj, setKeys); so != nil {
		collect(so, "Sets", add)
	}
	return m, ""
}

// collect lê seleções em array ([{label, odds}]) ou objeto ({label: odds})
func collect(v any, prefix string, add func(string, decimal.Decimal)) {
	label := func(l string) string {
		if prefix == "" {
			return l
		}
		return prefix + ": " + l
	}
	switch sv := v.(type) {
	case []any:
		for _, e := range sv {
			eo, ok := e.(map[string]any)
			if !ok {
				continue
			}
			l := firstString(eo, labelKeys)
			d, ok := firstDecimal(eo, valueKeys)
			if l != "" && ok {
				add(label(l), d)
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(sv))
		for k := range sv {
			keys = append(keys, k)
		}
		// mapas JSON não têm ordem; rótulos em ordem alfabética
		sort.Strings(keys)
		for _, k := range keys {
			if d, ok := toDecimal(sv[k]); ok {
				add(label(k), d)
			}
		}
	}
}

func threeWay(obj map[string]any, home, draw, away []string, add func(string, decimal.Decimal)) {
	if d, ok := firstDecimal(obj, home); ok {
		add(LabelHome, d)
	}
	if d, ok := firstDecimal(obj, draw); ok {
		add(LabelDraw, d)
	}
	if d, ok := firstDecimal(obj, away); ok {
		add(LabelAway, d)
	}
}

func marketName(mo map[string]any) string {
	if n := firstString(mo, []string{"name", "key", "id"}); n != "" {
		return n
	}
	return "Market"
}

func status(obj map[string]any) model.MatchStatus {
	s, _ := obj["status"].(string)
	// o importador não encerra partidas: finished/cancelled passam pela liquidação
	if st := model.MatchStatus(strings.ToLower(strings.TrimSpace(s))); st == model.MatchLive {
		return st
	}
	return model.MatchUpcoming
}

func first(obj map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstString(obj map[string]any, keys []string) string {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			if k == "id" {
				return v.String()
			}
		}
	}
	return ""
}

func firstDecimal(obj map[string]any, keys []string) (decimal.Decimal, bool) {
	for _, k := range keys {
		if d, ok := toDecimal(obj[k]); ok {
			return d, true
		}
	}
	return decimal.Decimal{}, false
}

func toDecimal(v any) (decimal.Decimal, bool) {
	var s string
	switch n := v.(type) {
	case json.Number:
		s = n.String()
	case string:
		s = strings.TrimSpace(n)
	default:
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func firstTime(obj map[string]any, keys []string) (time.Time, bool) {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if t, ok := parseTime(v); ok {
				return t, true
			}
		case json.Number:
			// epoch em milissegundos
			if ms, err := v.Int64(); err == nil && ms > 0 {
				return time.UnixMilli(ms).UTC(), true
			}
		}
	}
	return time.Time{}, false
}

// parseTime aceita RFC3339 e formas sem fuso (interpretadas como UTC)
func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
