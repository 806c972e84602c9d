package batch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/dispatchd/core/geo"
	"github.com/fleetops/dispatchd/core/logger"
	"github.com/fleetops/dispatchd/core/model"
	"github.com/fleetops/dispatchd/core/sla"
)

func newTestEngine(t *testing.T) (*Engine, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	e, err := NewEngine(Config{}, sla.Config{}, store, logger.Nop{})
	require.NoError(t, err)
	return e, store
}

func pendingOrder(id string, svc model.ServiceType, lat, lng float64) model.Order {
	return model.Order{
		ID:        id,
		Service:   svc,
		Status:    model.StatusPending,
		CreatedAt: time.Now(),
		Pickup:    model.LatLng{Lat: 24.70, Lng: 46.60},
		Dropoff:   model.LatLng{Lat: lat, Lng: lng},
	}
}

func TestPlan_TwelveStandardOrdersWithinTwoKm(t *testing.T) {
	e, store := newTestEngine(t)
	var orders []model.Order
	for i := 0; i < 12; i++ {
		// All dropoffs inside a ~2 km neighbourhood.
		orders = append(orders, pendingOrder(
			fmt.Sprintf("o%02d", i), model.ServiceBullet,
			24.700+float64(i%4)*0.004, 46.600+float64(i/4)*0.004))
	}

	res, err := e.Plan(context.Background(), orders)
	require.NoError(t, err)

	covered := map[string]int{}
	for _, b := range res.Batches {
		assert.LessOrEqual(t, b.Size(), 8, "no batch may exceed the standard max size")
		for _, o := range b.Orders {
			covered[o.ID]++
		}
	}
	for _, o := range res.Unbatchable {
		covered[o.ID]++
	}
	assert.Len(t, covered, 12, "every order appears somewhere")
	for id, n := range covered {
		assert.Equalf(t, 1, n, "order %s must appear exactly once", id)
	}

	stored, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, len(res.Batches))
}

func TestPlan_RespectsMaxBatchSize(t *testing.T) {
	e, _ := newTestEngine(t)
	var orders []model.Order
	for i := 0; i < 9; i++ {
		orders = append(orders, pendingOrder(fmt.Sprintf("u%d", i), model.ServiceBarq, 24.700+float64(i)*0.0005, 46.600))
	}
	res, err := e.Plan(context.Background(), orders)
	require.NoError(t, err)
	for _, b := range res.Batches {
		assert.LessOrEqual(t, b.Size(), 3, "urgent batches cap at 3")
	}
}

func TestPlan_SkipsNonPendingOrders(t *testing.T) {
	e, _ := newTestEngine(t)
	assigned := pendingOrder("a1", model.ServiceBullet, 24.70, 46.60)
	assigned.Status = model.StatusAssigned
	res, err := e.Plan(context.Background(), []model.Order{assigned})
	require.NoError(t, err)
	assert.Empty(t, res.Batches)
	require.Len(t, res.Unbatchable, 1)
	assert.Equal(t, "a1", res.Unbatchable[0].ID)
}

func TestPlan_MalformedOrderIsIsolated(t *testing.T) {
	e, _ := newTestEngine(t)
	bad := model.Order{ID: "", Service: model.ServiceBullet, Status: model.StatusPending}
	good1 := pendingOrder("g1", model.ServiceBullet, 24.700, 46.600)
	good2 := pendingOrder("g2", model.ServiceBullet, 24.701, 46.601)
	good3 := pendingOrder("g3", model.ServiceBullet, 24.702, 46.602)

	res, err := e.Plan(context.Background(), []model.Order{bad, good1, good2, good3})
	require.NoError(t, err, "a malformed order must not fail the run")

	total := 0
	for _, b := range res.Batches {
		total += b.Size()
	}
	assert.Equal(t, 3, total+len(res.Unbatchable)-1, "good orders all placed")
}

func TestPlan_BatchGeometryAndSequence(t *testing.T) {
	e, _ := newTestEngine(t)
	orders := []model.Order{
		pendingOrder("o1", model.ServiceBullet, 24.700, 46.600),
		pendingOrder("o2", model.ServiceBullet, 24.702, 46.602),
		pendingOrder("o3", model.ServiceBullet, 24.704, 46.604),
	}
	res, err := e.Plan(context.Background(), orders)
	require.NoError(t, err)
	require.Len(t, res.Batches, 1)

	b := res.Batches[0]
	assert.Len(t, b.Sequence, 3)
	assert.NotEmpty(t, b.ID)
	assert.Greater(t, b.Quality, 0.0)
	assert.Greater(t, b.Efficiency, 0.0)
	assert.Greater(t, b.EstimatedMinutes, 0.0)
	for _, o := range b.Orders {
		assert.LessOrEqual(t, geo.Haversine(b.Centroid, o.Dropoff), b.RadiusKm+1e-9)
	}
}

func TestMergeSmall_NeverExceedsCapOrRadius(t *testing.T) {
	e, _ := newTestEngine(t)
	rule := e.cfg.Rule(model.ServiceBullet)

	near1 := []model.Order{
		pendingOrder("a1", model.ServiceBullet, 24.700, 46.600),
		pendingOrder("a2", model.ServiceBullet, 24.701, 46.601),
	}
	near2 := []model.Order{
		pendingOrder("b1", model.ServiceBullet, 24.702, 46.602),
		pendingOrder("b2", model.ServiceBullet, 24.703, 46.603),
	}
	far := []model.Order{
		pendingOrder("c1", model.ServiceBullet, 25.500, 47.500),
		pendingOrder("c2", model.ServiceBullet, 25.501, 47.501),
	}

	merged := e.mergeSmall([][]model.Order{near1, near2, far}, rule)
	require.Len(t, merged, 2, "near clusters merge, far one stays")
	for _, c := range merged {
		assert.LessOrEqual(t, len(c), rule.MaxSize)
		center := geo.Centroid(dropoffs(c))
		assert.LessOrEqual(t, geo.Radius(center, dropoffs(c)), rule.RadiusKm)
	}
}

func TestSequenceStops_NearestNeighbour(t *testing.T) {
	pickup := model.LatLng{Lat: 24.700, Lng: 46.600}
	orders := []model.Order{
		orderAt("far", 24.720, 46.620),
		orderAt("near", 24.701, 46.601),
		orderAt("mid", 24.710, 46.610),
	}
	seq, km := sequenceStops(pickup, orders)
	require.Equal(t, []string{"near", "mid", "far"}, seq)
	assert.Greater(t, km, 0.0)
}

func TestMemoryStore_TTLEviction(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(context.Background(), Batch{ID: "b1"}, time.Minute))
	_, ok, err := store.Get(context.Background(), "b1")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, err = store.Get(context.Background(), "b1")
	require.NoError(t, err)
	assert.False(t, ok, "expired batch must be evicted")

	list, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}
