package bridge_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hopes-corner-sync/internal/bridge"
	"hopes-corner-sync/internal/models"
	"hopes-corner-sync/internal/store"
)

func newMealStore() *store.Store[models.Meal] {
	return store.New[models.Meal]("meals", nil, zap.NewNop(), store.Options[models.Meal]{})
}

func addMeal(st *store.Store[models.Meal], m models.Meal) {
	st.ApplyRemote(store.Mutation[models.Meal]{Action: store.ActionAdd, Record: m})
}

func TestAttach_PushesEagerlyAndOnChange(t *testing.T) {
	st := newMealStore()
	addMeal(st, models.Meal{ID: "m1", GuestID: "g1", Kind: models.MealGuest})

	b := bridge.NewContextBridge(nil, zap.NewNop())
	var pushes [][]models.Meal
	bridge.Attach(b, "meals", st, func(snap []models.Meal) {
		pushes = append(pushes, snap)
	}, nil)

	// The current snapshot lands immediately.
	require.Len(t, pushes, 1)
	require.Len(t, pushes[0], 1)

	addMeal(st, models.Meal{ID: "m2", GuestID: "g2", Kind: models.MealGuest})
	require.Len(t, pushes, 2)
	assert.Len(t, pushes[1], 2)
}

func TestAttach_GuestMealFilter(t *testing.T) {
	st := newMealStore()
	addMeal(st, models.Meal{ID: "m1", GuestID: "g1", Kind: models.MealGuest})
	addMeal(st, models.Meal{ID: "m2", Kind: models.MealLunchBag, Quantity: 40})

	b := bridge.NewContextBridge(nil, zap.NewNop())
	var got []models.Meal
	bridge.Attach(b, "guest-meals", st, func(snap []models.Meal) {
		got = snap
	}, bridge.GuestMealsOnly)

	// Only the guest-attributed entry is forwarded; the bulk entry stays in
	// the store but out of this path.
	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, 2, st.Len())
}

func TestAttach_NilSetterSkipped(t *testing.T) {
	st := newMealStore()
	b := bridge.NewContextBridge(nil, zap.NewNop())

	// Must not panic and must not subscribe anything.
	bridge.Attach[models.Meal](b, "meals", st, nil, nil)
	addMeal(st, models.Meal{ID: "m1", GuestID: "g1", Kind: models.MealGuest})
}

func TestClose_StopsForwarding(t *testing.T) {
	st := newMealStore()
	b := bridge.NewContextBridge(nil, zap.NewNop())

	pushes := 0
	bridge.Attach(b, "meals", st, func([]models.Meal) { pushes++ }, nil)
	require.Equal(t, 1, pushes)

	b.Close()
	b.Close()

	addMeal(st, models.Meal{ID: "m1", GuestID: "g1", Kind: models.MealGuest})
	assert.Equal(t, 1, pushes)
}

func TestAttach_WritesSnapshotCache(t *testing.T) {
	st := newMealStore()
	kv := newFakeKVStore()
	cache := bridge.NewSnapshotCache(kv, "hopes:ctx:", 10*time.Second, zap.NewNop())
	b := bridge.NewContextBridge(cache, zap.NewNop())

	bridge.Attach(b, "guest-meals", st, nil, bridge.GuestMealsOnly)
	addMeal(st, models.Meal{ID: "m1", GuestID: "g1", Kind: models.MealGuest})
	addMeal(st, models.Meal{ID: "m2", Kind: models.MealLunchBag})

	var cached []models.Meal
	require.NoError(t, cache.Read(context.Background(), "guest-meals", &cached))
	require.Len(t, cached, 1)
	assert.Equal(t, "m1", cached[0].ID)
}

func TestSnapshotCache_MissAfterTTL(t *testing.T) {
	kv := newFakeKVStore()
	cache := bridge.NewSnapshotCache(kv, "hopes:ctx:", time.Millisecond, zap.NewNop())

	cache.Write("meals", []models.Meal{{ID: "m1"}})
	time.Sleep(5 * time.Millisecond)

	var out []models.Meal
	err := cache.Read(context.Background(), "meals", &out)
	assert.ErrorIs(t, err, bridge.ErrCacheMiss)
}
