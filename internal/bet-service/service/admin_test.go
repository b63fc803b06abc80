package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/club-bet-platform/internal/bet-service/service"
	"github.com/radieske/club-bet-platform/internal/shared/apperr"
	"github.com/radieske/club-bet-platform/pkg/contracts/events"
)

func TestAdminOps_RequireExactConfirmation(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "Ana", 1500)

	ops := map[string]func(string) (service.BulkResult, error){
		service.ConfirmClearMarkets:  func(c string) (service.BulkResult, error) { return f.svc.ClearMarkets(f.ctx, c) },
		service.ConfirmClearBets:     func(c string) (service.BulkResult, error) { return f.svc.ClearBets(f.ctx, c) },
		service.ConfirmResetBalances: func(c string) (service.BulkResult, error) { return f.svc.ResetBalances(f.ctx, c) },
		service.ConfirmPurgeUsers:    func(c string) (service.BulkResult, error) { return f.svc.PurgeUsers(f.ctx, c) },
	}
	for name, op := range ops {
		for _, bad := range []string{"", "yes", "clear_markets", name + " "} {
			_, err := op(bad)
			require.Error(t, err, "%s with %q", name, bad)
			assert.True(t, apperr.IsValidation(err))
		}
	}

	assert.Equal(t, int64(1500), f.balance(t, u.ID))
}

func TestResetBalances(t *testing.T) {
	f := newFixture(t)
	a := f.user(t, "Ana", 1500)
	b := f.user(t, "Bruno", 20)
	c := f.user(t, "Carla", 1000)

	res, err := f.svc.ResetBalances(f.ctx, service.ConfirmResetBalances)

	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Affected)
	for _, id := range []string{a.ID, b.ID, c.ID} {
		assert.Equal(t, int64(1000), f.balance(t, id))
	}
}

func TestClearBets_RemovesBetsAndLedgerKeepsBalances(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "Ana", 1000)
	m := f.match(t, "Lions", "Tigers", "Lions", "1.80", "Tigers", "2.10")
	f.place(t, u.ID, m.Options[0].ID, 100)
	_, err := f.svc.AdjustPoints(f.ctx, u.ID, 10)
	require.NoError(t, err)

	res, err := f.svc.ClearBets(f.ctx, service.ConfirmClearBets)

	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Affected)
	assert.Equal(t, int64(2), res.Transactions)
	assert.Empty(t, f.transactions(t, u.ID))
	w, err := f.svc.Wallet(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1010), w.Balance)
	assert.Equal(t, int64(0), w.Reserved)

	_, err = f.svc.GetMarket(f.ctx, m.Ref)
	assert.NoError(t, err)
}

func TestClearMarkets_RemovesMarketsOptionsAndBets(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "Ana", 1000)
	m := f.match(t, "Lions", "Tigers", "Lions", "1.80", "Tigers", "2.10")
	f.funBet(t, "Cake?", "Yes", "1.50", "No", "2.50")
	f.place(t, u.ID, m.Options[0].ID, 100)

	res, err := f.svc.ClearMarkets(f.ctx, service.ConfirmClearMarkets)

	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Affected)
	all, err := f.svc.ListMarkets(f.ctx, service.MarketFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
	bets, err := f.svc.UserBets(f.ctx, u.ID, "")
	require.NoError(t, err)
	assert.Empty(t, bets)
	w, err := f.svc.Wallet(f.ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), w.Available)
}

func TestPurgeUsers_KeepsAdminsAndAllowList(t *testing.T) {
	f := newFixture(t, "ANA@club.test", "carla")
	root := f.admin(t, "Root")
	ana := f.user(t, "Ana", 1000)
	bruno := f.user(t, "Bruno", 1000)
	carla := f.user(t, "Carla", 1000)
	m := f.match(t, "Lions", "Tigers", "Lions", "1.80", "Tigers", "2.10")
	f.place(t, bruno.ID, m.Options[0].ID, 100)

	res, err := f.svc.PurgeUsers(f.ctx, service.ConfirmPurgeUsers)

	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Affected)
	for _, id := range []string{root.ID, ana.ID, carla.ID} {
		_, err := f.svc.Wallet(f.ctx, id)
		assert.NoError(t, err, id)
	}
	_, err = f.svc.Wallet(f.ctx, bruno.ID)
	assert.True(t, apperr.IsNotFound(err))

	act, err := f.svc.RecentBets(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, act.Items)
}

func TestBulkDeletes_PublishDeleteChanges(t *testing.T) {
	tests := []struct {
		name string
		run  func(f *fixture) (service.BulkResult, error)
	}{
		{"clear bets", func(f *fixture) (service.BulkResult, error) {
			return f.svc.ClearBets(f.ctx, service.ConfirmClearBets)
		}},
		{"clear markets", func(f *fixture) (service.BulkResult, error) {
			return f.svc.ClearMarkets(f.ctx, service.ConfirmClearMarkets)
		}},
		{"purge users", func(f *fixture) (service.BulkResult, error) {
			return f.svc.PurgeUsers(f.ctx, service.ConfirmPurgeUsers)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			u := f.user(t, "Ana", 1000)
			m := f.match(t, "Lions", "Tigers", "Lions", "1.80", "Tigers", "2.10")
			b1 := f.place(t, u.ID, m.Options[0].ID, 100)
			b2 := f.place(t, u.ID, m.Options[1].ID, 50)

			// Execute
			_, err := tt.run(f)

			// Assert
			require.NoError(t, err)
			assert.Len(t, f.pub.changesOfType(events.ChangeInsert), 2)
			deletes := f.pub.changesOfType(events.ChangeDelete)
			require.Len(t, deletes, 2)
			assert.ElementsMatch(t, []string{b1.ID, b2.ID}, []string{deletes[0].Bet.ID, deletes[1].Bet.ID})
			assert.Equal(t, u.ID, deletes[0].Bet.UserID)
		})
	}
}

func TestResetBalances_PublishesNoBetChanges(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, "Ana", 1000)
	m := f.match(t, "Lions", "Tigers", "Lions", "1.80", "Tigers", "2.10")
	f.place(t, u.ID, m.Options[0].ID, 100)

	_, err := f.svc.ResetBalances(f.ctx, service.ConfirmResetBalances)

	require.NoError(t, err)
	assert.Empty(t, f.pub.changesOfType(events.ChangeDelete))
}
