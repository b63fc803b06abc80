package repo

import (
	"database/sql"

	"github.com/radieske/club-bet-platform/internal/bet-service/model"
)

// rowScanner é satisfeito por *sql.Row e *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(r rowScanner) (model.UserProfile, error) {
	var (
		u      model.UserProfile
		role   string
		avatar sql.NullString
	)
	if err := r.Scan(&u.ID, &u.Email, &u.FullName, &role, &u.PointsBalance, &avatar, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return model.UserProfile{}, err
	}
	u.Role = model.Role(role)
	if avatar.Valid {
		u.AvatarURL = &avatar.String
	}
	return u, nil
}

func scanMatch(r rowScanner) (model.Match, error) {
	var (
		m          model.Match
		status     string
		home, away sql.NullInt64
	)
	if err := r.Scan(&m.ID, &m.HomeTeam, &m.AwayTeam, &m.MatchDate, &status, &home, &away, &m.ClosingTime, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return model.Match{}, err
	}
	m.Status = model.MatchStatus(status)
	m.HomeScore = nullInt(home)
	m.AwayScore = nullInt(away)
	return m, nil
}

func scanFunBet(r rowScanner) (model.FunBet, error) {
	var (
		f      model.FunBet
		result sql.NullString
	)
	if err := r.Scan(&f.ID, &f.Title, &f.Description, &f.Category, &f.ClosingTime, &result, &f.IsSettled, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return model.FunBet{}, err
	}
	if result.Valid {
		f.ResultText = &result.String
	}
	return f, nil
}

func scanOption(r rowScanner) (model.BetOption, error) {
	var (
		o              model.BetOption
		matchID, funID sql.NullString
	)
	if err := r.Scan(&o.ID, &matchID, &funID, &o.OptionText, &o.Odds, &o.IsWinner, &o.CreatedAt); err != nil {
		return model.BetOption{}, err
	}
	o.Market = marketRef(matchID, funID)
	return o, nil
}

func scanBet(r rowScanner) (model.Bet, error) {
	var b model.Bet
	err := r.Scan(betDest(&b)...)
	return b, err
}

func scanBetDetail(r rowScanner) (model.BetDetail, error) {
	var (
		d              model.BetDetail
		matchID, funID sql.NullString
	)
	dest := append(betDest(&d.Bet), &d.OptionText, &d.Odds, &matchID, &funID, &d.MarketTitle, &d.UserName)
	if err := r.Scan(dest...); err != nil {
		return model.BetDetail{}, err
	}
	d.Market = marketRef(matchID, funID)
	return d, nil
}

// betDest devolve os destinos na ordem de betCols
func betDest(b *model.Bet) []any {
	return []any{
		&b.ID, &b.UserID, &b.BetOptionID, &b.Stake, &b.PotentialPayout,
		(*string)(&b.Status), &b.ActualPayout, &b.PlacedAt, &b.SettledAt,
	}
}

func marketRef(matchID, funID sql.NullString) model.MarketRef {
	if matchID.Valid {
		return model.MarketRef{Kind: model.KindMatch, ID: matchID.String}
	}
	return model.MarketRef{Kind: model.KindFun, ID: funID.String}
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
