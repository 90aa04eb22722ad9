package event_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/turnstile/internal/event"
	"github.com/daap14/turnstile/internal/store"
	"github.com/daap14/turnstile/internal/store/storetest"
)

func TestGetForUpdate_RequiresTransaction(t *testing.T) {
	t.Parallel()

	repo := event.NewRepository(nil)

	ev, err := repo.GetForUpdate(context.Background(), 1)

	assert.Nil(t, ev)
	assert.ErrorIs(t, err, store.ErrNoTx)
}

func TestPostgres_GetByID(t *testing.T) {
	pool := storetest.NewPool(t)
	ctx := context.Background()
	repo := event.NewRepository(pool)

	creator := storetest.InsertUser(t, pool, "creator", "promoter")
	startsAt := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	id := storetest.InsertEvent(t, pool, "Open Air", 300, nil, startsAt, creator)

	ev, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Open Air", ev.Name)
	assert.Equal(t, 300, ev.Capacity)
	assert.Nil(t, ev.Price)
	assert.Zero(t, ev.UnitPrice())
	assert.True(t, ev.StartsAt.Equal(startsAt))
	assert.Equal(t, creator, ev.CreatorID)
	assert.False(t, ev.SalesPaused)

	_, err = repo.GetByID(ctx, id+1000)
	assert.ErrorIs(t, err, event.ErrEventNotFound)
}

func TestPostgres_ReplaceTeams(t *testing.T) {
	pool := storetest.NewPool(t)
	ctx := context.Background()
	repo := event.NewRepository(pool)

	creator := storetest.InsertUser(t, pool, "creator", "promoter")
	other := storetest.InsertUser(t, pool, "other", "owner")
	evID := storetest.InsertEvent(t, pool, "Open Air", 300, nil, time.Now().Add(24*time.Hour), creator)

	gateA := storetest.InsertTeam(t, pool, "Gate A", creator)
	gateB := storetest.InsertTeam(t, pool, "Gate B", creator)
	foreign := storetest.InsertTeam(t, pool, "Foreign", other)

	assigned, err := repo.ReplaceTeams(ctx, evID, creator, []int64{gateB, foreign, gateA})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{gateA, gateB}, assigned, "teams led by someone else are skipped")

	ids, err := repo.AuthorizedTeamIDs(ctx, evID)
	require.NoError(t, err)
	assert.Equal(t, []int64{gateA, gateB}, ids)

	teams, err := repo.ListTeams(ctx, evID)
	require.NoError(t, err)
	require.Len(t, teams, 2)
	assert.Equal(t, "Gate A", teams[0].Name)
	assert.Equal(t, creator, teams[0].LeaderID)

	assigned, err = repo.ReplaceTeams(ctx, evID, creator, []int64{})
	require.NoError(t, err)
	assert.Empty(t, assigned)

	ids, err = repo.AuthorizedTeamIDs(ctx, evID)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.NotNil(t, ids)
}
