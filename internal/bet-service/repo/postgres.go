package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/radieske/club-bet-platform/internal/bet-service/model"
	"github.com/radieske/club-bet-platform/internal/bet-service/service"
	"github.com/radieske/club-bet-platform/internal/shared/apperr"
)

// Postgres implementa o store de apostas/ledger sobre database/sql + lib/pq
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// InTx abre uma transação; qualquer erro de fn (ou do commit) desfaz tudo
func (p *Postgres) InTx(ctx context.Context, fn func(q service.Queries) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&pgQueries{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", mapErr(err))
	}
	return nil
}

func (p *Postgres) View(ctx context.Context, fn func(q service.Queries) error) error {
	return fn(&pgQueries{q: p.db})
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// querier é satisfeito por *sql.DB e *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type pgQueries struct{ q querier }

// mapErr traduz violações de constraint para a taxonomia de erros
func mapErr(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "23505": // unique_violation
		return &apperr.Conflict{Message: pqErr.Message}
	case "23503": // foreign_key_violation
		return &apperr.Validation{Message: "referenced row does not exist: " + pqErr.Constraint}
	case "23514": // check_violation
		return &apperr.Validation{Message: "constraint violated: " + pqErr.Constraint}
	}
	return err
}

func notFound(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Missing(entity, id)
	}
	return err
}

// ---------- usuários ----------

const userCols = `id, email, full_name, role, points_balance, avatar_url, created_at, updated_at`

func (p *pgQueries) getUser(ctx context.Context, id, suffix string) (model.UserProfile, error) {
	u, err := scanUser(p.q.QueryRowContext(ctx, `SELECT `+userCols+` FROM user_profiles WHERE id=$1`+suffix, id))
	return u, notFound(err, "user", id)
}

func (p *pgQueries) GetUser(ctx context.Context, id string) (model.UserProfile, error) {
	return p.getUser(ctx, id, "")
}

func (p *pgQueries) LockUser(ctx context.Context, id string) (model.UserProfile, error) {
	return p.getUser(ctx, id, " FOR UPDATE")
}

func (p *pgQueries) ListUsers(ctx context.Context) ([]model.UserProfile, error) {
	rows, err := p.q.QueryContext(ctx, `SELECT `+userCols+` FROM user_profiles ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.UserProfile
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (p *pgQueries) InsertUser(ctx context.Context, u model.UserProfile) error {
	_, err := p.q.ExecContext(ctx, `
		INSERT INTO user_profiles (id,email,full_name,role,points_balance,avatar_url,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		u.ID, u.Email, u.FullName, string(u.Role), u.PointsBalance, u.AvatarURL, u.CreatedAt, u.UpdatedAt,
	)
	return mapErr(err)
}

// AddBalance é o único caminho de alteração de saldo: incremento atômico
func (p *pgQueries) AddBalance(ctx context.Context, userID string, delta int64) (int64, error) {
	var bal int64
	err := p.q.QueryRowContext(ctx, `
		UPDATE user_profiles
		   SET points_balance = points_balance + $1, updated_at = NOW()
		 WHERE id = $2
		RETURNING points_balance`, delta, userID).Scan(&bal)
	return bal, notFound(err, "user", userID)
}

func (p *pgQueries) SetAllBalances(ctx context.Context, value int64) (int64, error) {
	res, err := p.q.ExecContext(ctx, `UPDATE user_profiles SET points_balance=$1, updated_at=NOW()`, value)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteUsers apaga usuários; apostas e transações caem em cascata
func (p *pgQueries) DeleteUsers(ctx context.Context, ids []string) (int64, error) {
	res, err := p.q.ExecContext(ctx, `DELETE FROM user_profiles WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---------- mercados ----------

const (
	matchCols = `id, home_team, away_team, match_date, status, home_score, away_score, closing_time, created_at, updated_at`
	funCols   = `id, title, description, category, closing_time, result_text, is_settled, created_at, updated_at`
)

func (p *pgQueries) getMarket(ctx context.Context, ref model.MarketRef, suffix string) (model.Market, error) {
	switch ref.Kind {
	case model.KindMatch:
		m, err := scanMatch(p.q.QueryRowContext(ctx, `SELECT `+matchCols+` FROM matches WHERE id=$1`+suffix, ref.ID))
		if err != nil {
			return model.Market{}, notFound(err, "match", ref.ID)
		}
		return model.MatchMarket(m), nil
	case model.KindFun:
		f, err := scanFunBet(p.q.QueryRowContext(ctx, `SELECT `+funCols+` FROM fun_bets WHERE id=$1`+suffix, ref.ID))
		if err != nil {
			return model.Market{}, notFound(err, "fun bet", ref.ID)
		}
		return model.FunMarket(f), nil
	}
	return model.Market{}, apperr.Invalid("kind", "unknown market kind %q", ref.Kind)
}

func (p *pgQueries) GetMarket(ctx context.Context, ref model.MarketRef) (model.Market, error) {
	return p.getMarket(ctx, ref, "")
}

func (p *pgQueries) LockMarket(ctx context.Context, ref model.MarketRef) (model.Market, error) {
	return p.getMarket(ctx, ref, " FOR UPDATE")
}

func (p *pgQueries) ListMarkets(ctx context.Context, kind model.MarketKind) ([]model.Market, error) {
	var out []model.Market
	if kind == "" || kind == model.KindMatch {
		rows, err := p.q.QueryContext(ctx, `SELECT `+matchCols+` FROM matches ORDER BY match_date, id`)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			m, err := scanMatch(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			out = append(out, model.MatchMarket(m))
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	if kind == "" || kind == model.KindFun {
		rows, err := p.q.QueryContext(ctx, `SELECT `+funCols+` FROM fun_bets ORDER BY closing_time, id`)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			f, err := scanFunBet(rows)
			if err != nil {
				rows.Close()
				return nil, err
			}
			out = append(out, model.FunMarket(f))
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *pgQueries) FindMatch(ctx context.Context, home, away string, date *time.Time) (model.Match, bool, error) {
	m, err := scanMatch(p.q.QueryRowContext(ctx, `
		SELECT `+matchCols+` FROM matches
		 WHERE lower(home_team) = lower($1) AND lower(away_team) = lower($2)
		   AND ($3::timestamptz IS NULL OR match_date = $3)
		 ORDER BY created_at DESC
		 LIMIT 1`, home, away, date))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Match{}, false, nil
	}
	if err != nil {
		return model.Match{}, false, err
	}
	return m, true, nil
}

func (p *pgQueries) InsertMatch(ctx context.Context, m model.Match) error {
	_, err := p.q.ExecContext(ctx, `
		INSERT INTO matches (id,home_team,away_team,match_date,status,home_score,away_score,closing_time,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		m.ID, m.HomeTeam, m.AwayTeam, m.MatchDate, string(m.Status), m.HomeScore, m.AwayScore, m.ClosingTime, m.CreatedAt, m.UpdatedAt,
	)
	return mapErr(err)
}

func (p *pgQueries) UpdateMatchSchedule(ctx context.Context, id string, status model.MatchStatus, closing time.Time) error {
	res, err := p.q.ExecContext(ctx,
		`UPDATE matches SET status=$2, closing_time=$3, updated_at=NOW() WHERE id=$1`, id, string(status), closing)
	return affectedOrMissing(res, err, "match", id)
}

func (p *pgQueries) InsertFunBet(ctx context.Context, f model.FunBet) error {
	_, err := p.q.ExecContext(ctx, `
		INSERT INTO fun_bets (id,title,description,category,closing_time,result_text,is_settled,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		f.ID, f.Title, f.Description, f.Category, f.ClosingTime, f.ResultText, f.IsSettled, f.CreatedAt, f.UpdatedAt,
	)
	return mapErr(err)
}

func (p *pgQueries) MarkSettled(ctx context.Context, ref model.MarketRef, resultText string) error {
	var (
		res sql.Result
		err error
	)
	switch ref.Kind {
	case model.KindMatch:
		res, err = p.q.ExecContext(ctx, `UPDATE matches SET status='finished', updated_at=NOW() WHERE id=$1`, ref.ID)
	case model.KindFun:
		res, err = p.q.ExecContext(ctx,
			`UPDATE fun_bets SET is_settled=TRUE, result_text=$2, updated_at=NOW() WHERE id=$1`, ref.ID, resultText)
	default:
		return apperr.Invalid("kind", "unknown market kind %q", ref.Kind)
	}
	return affectedOrMissing(res, err, string(ref.Kind), ref.ID)
}

func (p *pgQueries) MarkCancelled(ctx context.Context, ref model.MarketRef) error {
	var (
		res sql.Result
		err error
	)
	switch ref.Kind {
	case model.KindMatch:
		res, err = p.q.ExecContext(ctx, `UPDATE matches SET status='cancelled', updated_at=NOW() WHERE id=$1`, ref.ID)
	case model.KindFun:
		res, err = p.q.ExecContext(ctx,
			`UPDATE fun_bets SET is_settled=TRUE, result_text=NULL, updated_at=NOW() WHERE id=$1`, ref.ID)
	default:
		return apperr.Invalid("kind", "unknown market kind %q", ref.Kind)
	}
	return affectedOrMissing(res, err, string(ref.Kind), ref.ID)
}

// DeleteMarket: opções e apostas caem via ON DELETE CASCADE
func (p *pgQueries) DeleteMarket(ctx context.Context, ref model.MarketRef) error {
	var (
		res sql.Result
		err error
	)
	switch ref.Kind {
	case model.KindMatch:
		res, err = p.q.ExecContext(ctx, `DELETE FROM matches WHERE id=$1`, ref.ID)
	case model.KindFun:
		res, err = p.q.ExecContext(ctx, `DELETE FROM fun_bets WHERE id=$1`, ref.ID)
	default:
		return apperr.Invalid("kind", "unknown market kind %q", ref.Kind)
	}
	return affectedOrMissing(res, err, string(ref.Kind), ref.ID)
}

func (p *pgQueries) DeleteAllMarkets(ctx context.Context) (int64, error) {
	if _, err := p.q.ExecContext(ctx, `DELETE FROM bet_options`); err != nil {
		return 0, err
	}
	var total int64
	for _, stmt := range []string{`DELETE FROM matches`, `DELETE FROM fun_bets`} {
		res, err := p.q.ExecContext(ctx, stmt)
		if err != nil {
			return 0, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

func affectedOrMissing(res sql.Result, err error, entity, id string) error {
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.Missing(entity, id)
	}
	return nil
}

// ---------- opções ----------

const optionCols = `id, match_id, fun_bet_id, option_text, odds, is_winner, created_at`

func parentColumn(kind model.MarketKind) (string, error) {
	switch kind {
	case model.KindMatch:
		return "match_id", nil
	case model.KindFun:
		return "fun_bet_id", nil
	}
	return "", apperr.Invalid("kind", "unknown market kind %q", kind)
}

func (p *pgQueries) GetOption(ctx context.Context, id string) (model.BetOption, error) {
	o, err := scanOption(p.q.QueryRowContext(ctx, `SELECT `+optionCols+` FROM bet_options WHERE id=$1`, id))
	return o, notFound(err, "bet option", id)
}

func (p *pgQueries) ListOptions(ctx context.Context, ref model.MarketRef) ([]model.BetOption, error) {
	col, err := parentColumn(ref.Kind)
	if err != nil {
		return nil, err
	}
	rows, err := p.q.QueryContext(ctx,
		`SELECT `+optionCols+` FROM bet_options WHERE `+col+`=$1 ORDER BY created_at, id`, ref.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.BetOption
	for rows.Next() {
		o, err := scanOption(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (p *pgQueries) InsertOption(ctx context.Context, o model.BetOption) error {
	var matchID, funID *string
	switch o.Market.Kind {
	case model.KindMatch:
		matchID = &o.Market.ID
	case model.KindFun:
		funID = &o.Market.ID
	default:
		return apperr.Invalid("kind", "unknown market kind %q", o.Market.Kind)
	}
	_, err := p.q.ExecContext(ctx, `
		INSERT INTO bet_options (id,match_id,fun_bet_id,option_text,odds,is_winner,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		o.ID, matchID, funID, o.OptionText, o.Odds, o.IsWinner, o.CreatedAt,
	)
	return mapErr(err)
}

// SetWinner marca exatamente uma opção vencedora num único UPDATE
func (p *pgQueries) SetWinner(ctx context.Context, ref model.MarketRef, optionID string) error {
	col, err := parentColumn(ref.Kind)
	if err != nil {
		return err
	}
	_, err = p.q.ExecContext(ctx, `UPDATE bet_options SET is_winner = (id = $2) WHERE `+col+`=$1`, ref.ID, optionID)
	return err
}

// ---------- apostas ----------

const betCols = `b.id, b.user_id, b.bet_option_id, b.stake, b.potential_payout, b.status, b.actual_payout, b.placed_at, b.settled_at`

func (p *pgQueries) InsertBet(ctx context.Context, b model.Bet) error {
	_, err := p.q.ExecContext(ctx, `
		INSERT INTO bets (id,user_id,bet_option_id,stake,potential_payout,status,actual_payout,placed_at,settled_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		b.ID, b.UserID, b.BetOptionID, b.Stake, b.PotentialPayout, string(b.Status), b.ActualPayout, b.PlacedAt, b.SettledAt,
	)
	return mapErr(err)
}

func (p *pgQueries) HasPendingBet(ctx context.Context, userID, optionID string) (bool, error) {
	var ok bool
	err := p.q.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM bets WHERE user_id=$1 AND bet_option_id=$2 AND status='pending')`,
		userID, optionID).Scan(&ok)
	return ok, err
}

func (p *pgQueries) ReservedStake(ctx context.Context, userID string) (int64, error) {
	var sum int64
	err := p.q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(stake),0) FROM bets WHERE user_id=$1 AND status='pending'`, userID).Scan(&sum)
	return sum, err
}

func (p *pgQueries) queryBets(ctx context.Context, query string, args ...any) ([]model.Bet, error) {
	rows, err := p.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (p *pgQueries) BetsForOptions(ctx context.Context, optionIDs []string, status model.BetStatus) ([]model.Bet, error) {
	return p.queryBets(ctx, `
		SELECT `+betCols+` FROM bets b
		 WHERE b.bet_option_id = ANY($1) AND ($2::text = '' OR b.status = $2::text)
		 ORDER BY b.placed_at, b.id`, pq.Array(optionIDs), string(status))
}

func (p *pgQueries) BetsForUsers(ctx context.Context, userIDs []string) ([]model.Bet, error) {
	return p.queryBets(ctx, `
		SELECT `+betCols+` FROM bets b
		 WHERE b.user_id = ANY($1)
		 ORDER BY b.placed_at, b.id`, pq.Array(userIDs))
}

func (p *pgQueries) AllBets(ctx context.Context) ([]model.Bet, error) {
	return p.queryBets(ctx, `SELECT `+betCols+` FROM bets b ORDER BY b.placed_at, b.id`)
}

// LockPendingBets segura as linhas pendentes até o fim da liquidação
func (p *pgQueries) LockPendingBets(ctx context.Context, optionIDs []string) ([]model.Bet, error) {
	return p.queryBets(ctx, `
		SELECT `+betCols+` FROM bets b
		 WHERE b.bet_option_id = ANY($1) AND b.status = 'pending'
		 ORDER BY b.placed_at, b.id
		 FOR UPDATE`, pq.Array(optionIDs))
}

// ResolveBet só altera apostas ainda pendentes; false = já resolvida
func (p *pgQueries) ResolveBet(ctx context.Context, betID string, status model.BetStatus, payout int64, at time.Time) (bool, error) {
	res, err := p.q.ExecContext(ctx, `
		UPDATE bets SET status=$2, actual_payout=$3, settled_at=$4
		 WHERE id=$1 AND status='pending'`, betID, string(status), payout, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

const betDetailQuery = `
	SELECT ` + betCols + `,
	       o.option_text, o.odds, o.match_id, o.fun_bet_id,
	       COALESCE(m.home_team || ' vs ' || m.away_team, f.title, ''),
	       COALESCE(u.full_name, '')
	  FROM bets b
	  JOIN bet_options o ON o.id = b.bet_option_id
	  LEFT JOIN matches m ON m.id = o.match_id
	  LEFT JOIN fun_bets f ON f.id = o.fun_bet_id
	  LEFT JOIN user_profiles u ON u.id = b.user_id`

func (p *pgQueries) queryDetails(ctx context.Context, query string, args ...any) ([]model.BetDetail, error) {
	rows, err := p.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.BetDetail
	for rows.Next() {
		d, err := scanBetDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *pgQueries) UserBets(ctx context.Context, userID string, status model.BetStatus) ([]model.BetDetail, error) {
	return p.queryDetails(ctx, betDetailQuery+`
		 WHERE b.user_id = $1 AND ($2::text = '' OR b.status = $2::text)
		 ORDER BY b.placed_at DESC, b.id DESC`, userID, string(status))
}

func (p *pgQueries) RecentBets(ctx context.Context, limit int) ([]model.BetDetail, error) {
	return p.queryDetails(ctx, betDetailQuery+`
		 ORDER BY b.placed_at DESC, b.id DESC
		 LIMIT $1`, limit)
}

func (p *pgQueries) StakePlacedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var sum int64
	err := p.q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(stake),0) FROM bets WHERE placed_at >= $1 AND placed_at < $2`, from, to).Scan(&sum)
	return sum, err
}

const totalsQuery = `
	SELECT user_id, status, COUNT(*), COALESCE(SUM(COALESCE(actual_payout,0) - stake),0)
	  FROM bets`

func (p *pgQueries) UserBetTotals(ctx context.Context, userID string) (model.BetTotals, error) {
	all, err := p.totals(ctx, totalsQuery+` WHERE user_id=$1 GROUP BY user_id, status`, userID)
	return all[userID], err
}

func (p *pgQueries) BetTotalsByUser(ctx context.Context) (map[string]model.BetTotals, error) {
	return p.totals(ctx, totalsQuery+` GROUP BY user_id, status`)
}

func (p *pgQueries) totals(ctx context.Context, query string, args ...any) (map[string]model.BetTotals, error) {
	rows, err := p.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]model.BetTotals{}
	for rows.Next() {
		var (
			userID, status string
			count          int
			net            int64
		)
		if err := rows.Scan(&userID, &status, &count, &net); err != nil {
			return nil, err
		}
		t := out[userID]
		t.Total += count
		switch model.BetStatus(status) {
		case model.BetPending:
			t.Pending += count
		case model.BetWon:
			t.Won += count
			t.Winnings += net
		case model.BetLost:
			t.Lost += count
		case model.BetCancelled:
			t.Cancelled += count
		}
		out[userID] = t
	}
	return out, rows.Err()
}

func (p *pgQueries) DeleteAllBetsAndTransactions(ctx context.Context) (int64, int64, error) {
	res, err := p.q.ExecContext(ctx, `DELETE FROM transactions`)
	if err != nil {
		return 0, 0, err
	}
	txs, _ := res.RowsAffected()
	res, err = p.q.ExecContext(ctx, `DELETE FROM bets`)
	if err != nil {
		return 0, 0, err
	}
	bets, _ := res.RowsAffected()
	return bets, txs, nil
}

// ---------- transações ----------

func (p *pgQueries) InsertTransaction(ctx context.Context, t model.Transaction) error {
	_, err := p.q.ExecContext(ctx, `
		INSERT INTO transactions (id,user_id,amount,transaction_type,description,bet_id,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		t.ID, t.UserID, t.Amount, string(t.Type), t.Description, t.BetID, t.CreatedAt,
	)
	return mapErr(err)
}

func (p *pgQueries) UserTransactions(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	rows, err := p.q.QueryContext(ctx, `
		SELECT id, user_id, amount, transaction_type, description, bet_id, created_at
		  FROM transactions
		 WHERE user_id=$1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Transaction
	for rows.Next() {
		var (
			t     model.Transaction
			typ   string
			betID sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &typ, &t.Description, &betID, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Type = model.TxType(typ)
		if betID.Valid {
			t.BetID = &betID.String
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

var _ service.Store = (*Postgres)(nil)
