package repo

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/club-bet-platform/internal/bet-service/model"
	"github.com/radieske/club-bet-platform/internal/bet-service/service"
	"github.com/radieske/club-bet-platform/internal/shared/apperr"
)

var betColumns = []string{"id", "user_id", "bet_option_id", "stake", "potential_payout", "status", "actual_payout", "placed_at", "settled_at"}

func newMockPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db), mock
}

func sqlText(s string) string { return regexp.QuoteMeta(s) }

func TestMapErr(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"unique violation", &pq.Error{Code: "23505", Message: "duplicate key value"}, apperr.IsConflict},
		{"foreign key", &pq.Error{Code: "23503", Constraint: "bets_user_id_fkey"}, apperr.IsValidation},
		{"check", &pq.Error{Code: "23514", Constraint: "bets_stake_check"}, apperr.IsValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(mapErr(tt.err)))
		})
	}

	other := &pq.Error{Code: "40P01"}
	assert.Same(t, other, mapErr(other))
	plain := errors.New("boom")
	assert.Same(t, plain, mapErr(plain))
	assert.Contains(t, mapErr(&pq.Error{Code: "23503", Constraint: "bets_user_id_fkey"}).Error(), "bets_user_id_fkey")
}

func TestPostgres_InsertUserDuplicateIsConflict(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectBegin()
	mock.ExpectExec(sqlText("INSERT INTO user_profiles")).
		WillReturnError(&pq.Error{Code: "23505", Message: `duplicate key value violates unique constraint "user_profiles_email_key"`})
	mock.ExpectRollback()

	// Execute
	err := p.InTx(context.Background(), func(q service.Queries) error {
		return q.InsertUser(context.Background(), model.UserProfile{ID: "u1", Email: "ana@club.test", Role: model.RoleUser, CreatedAt: t0, UpdatedAt: t0})
	})

	// Assert
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_InTxCommits(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectBegin()
	mock.ExpectQuery(sqlText("UPDATE user_profiles")).
		WithArgs(int64(180), "u1").
		WillReturnRows(sqlmock.NewRows([]string{"points_balance"}).AddRow(int64(1180)))
	mock.ExpectCommit()

	var bal int64
	err := p.InTx(context.Background(), func(q service.Queries) error {
		var err error
		bal, err = q.AddBalance(context.Background(), "u1", 180)
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1180), bal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_AddBalanceUnknownUser(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectBegin()
	mock.ExpectQuery(sqlText("UPDATE user_profiles")).
		WithArgs(int64(-50), "ghost").
		WillReturnRows(sqlmock.NewRows([]string{"points_balance"}))
	mock.ExpectRollback()

	err := p.InTx(context.Background(), func(q service.Queries) error {
		_, err := q.AddBalance(context.Background(), "ghost", -50)
		return err
	})

	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
	assert.Contains(t, err.Error(), "ghost")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_ResolveBetOnlyOnce(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"pending bet", 1, true},
		{"already resolved", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, mock := newMockPostgres(t)
			mock.ExpectExec(sqlText("UPDATE bets SET status=$2, actual_payout=$3, settled_at=$4") + `\s+WHERE id=\$1 AND status='pending'`).
				WithArgs("b1", "won", int64(180), t0).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			// Execute
			var ok bool
			err := p.View(context.Background(), func(q service.Queries) error {
				var err error
				ok, err = q.ResolveBet(context.Background(), "b1", model.BetWon, 180, t0)
				return err
			})

			// Assert
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgres_BetsForOptionsStatusFilter(t *testing.T) {
	p, mock := newMockPostgres(t)
	rows := sqlmock.NewRows(betColumns).
		AddRow("b1", "u1", "o1", int64(100), int64(180), "pending", nil, t0, nil).
		AddRow("b2", "u2", "o2", int64(50), int64(105), "won", int64(105), t0, t0)
	mock.ExpectQuery(sqlText("b.bet_option_id = ANY($1) AND ($2::text = '' OR b.status = $2::text)")).
		WithArgs(sqlmock.AnyArg(), "").
		WillReturnRows(rows)

	var bets []model.Bet
	err := p.View(context.Background(), func(q service.Queries) error {
		var err error
		bets, err = q.BetsForOptions(context.Background(), []string{"o1", "o2"}, "")
		return err
	})

	require.NoError(t, err)
	require.Len(t, bets, 2)
	assert.Equal(t, model.BetPending, bets[0].Status)
	assert.Nil(t, bets[0].ActualPayout)
	assert.Nil(t, bets[0].SettledAt)
	require.NotNil(t, bets[1].ActualPayout)
	assert.Equal(t, int64(105), *bets[1].ActualPayout)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_BetsForUsers(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectQuery(sqlText("WHERE b.user_id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(betColumns).AddRow("b1", "u1", "o1", int64(100), int64(180), "lost", int64(0), t0, t0))

	var bets []model.Bet
	err := p.View(context.Background(), func(q service.Queries) error {
		var err error
		bets, err = q.BetsForUsers(context.Background(), []string{"u1"})
		return err
	})

	require.NoError(t, err)
	require.Len(t, bets, 1)
	assert.Equal(t, "u1", bets[0].UserID)
	assert.Equal(t, model.BetLost, bets[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UserBetTotalsFoldsStatuses(t *testing.T) {
	p, mock := newMockPostgres(t)
	rows := sqlmock.NewRows([]string{"user_id", "status", "count", "net"}).
		AddRow("u1", "won", int64(2), int64(130)).
		AddRow("u1", "lost", int64(1), int64(-50)).
		AddRow("u1", "pending", int64(1), int64(-100)).
		AddRow("u1", "cancelled", int64(1), int64(-20))
	mock.ExpectQuery(sqlText("GROUP BY user_id, status")).
		WithArgs("u1").
		WillReturnRows(rows)

	// Execute
	var got model.BetTotals
	err := p.View(context.Background(), func(q service.Queries) error {
		var err error
		got, err = q.UserBetTotals(context.Background(), "u1")
		return err
	})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, model.BetTotals{Total: 5, Pending: 1, Won: 2, Lost: 1, Cancelled: 1, Winnings: 130}, got)
	assert.InDelta(t, 2.0/3.0, got.WinRate(), 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UserBetTotalsNoBets(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectQuery(sqlText("GROUP BY user_id, status")).
		WithArgs("u9").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "status", "count", "net"}))

	var got model.BetTotals
	err := p.View(context.Background(), func(q service.Queries) error {
		var err error
		got, err = q.UserBetTotals(context.Background(), "u9")
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, model.BetTotals{}, got)
}

func TestPostgres_UpdateMatchScheduleMissing(t *testing.T) {
	p, mock := newMockPostgres(t)
	mock.ExpectExec(sqlText("UPDATE matches SET status=$2, closing_time=$3")).
		WithArgs("m1", "live", t0).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := p.View(context.Background(), func(q service.Queries) error {
		return q.UpdateMatchSchedule(context.Background(), "m1", model.MatchLive, t0)
	})

	assert.True(t, apperr.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
