package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"catalog-sync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncData_RequiresConnectivity(t *testing.T) {
	h := newHarness(t, false)

	_, err := h.engine.CreateCategory(context.Background(), model.Category{Name: "Drinks"})
	require.NoError(t, err)

	report, err := h.engine.SyncData(context.Background())
	assert.ErrorIs(t, err, model.ErrNoConnectivity)
	assert.Nil(t, report)
	assert.Zero(t, h.remote.inserts.Load())
	assert.Zero(t, h.remote.fetches.Load())
}

// After a healthy run every pending row is synced and every pending tombstone purged.
func TestSyncData_Converges(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)

	doomed, err := h.engine.CreateProduct(ctx, newProduct("Discontinued", ""))
	require.NoError(t, err)

	h.conn.online.Store(false)
	c, err := h.engine.CreateCategory(ctx, model.Category{Name: "Drinks"})
	require.NoError(t, err)
	_, err = h.engine.CreateProduct(ctx, newProduct("Cola", c.ID))
	require.NoError(t, err)
	_, err = h.engine.CreateProduct(ctx, newProduct("Water", c.ID))
	require.NoError(t, err)
	require.NoError(t, h.engine.DeleteProduct(ctx, doomed.ID))

	h.conn.online.Store(true)
	report, err := h.engine.SyncData(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Kinds[model.KindCategory].Pushed)
	assert.Equal(t, 2, report.Kinds[model.KindProduct].Pushed)
	assert.Equal(t, 1, report.Kinds[model.KindProduct].Deleted)
	assert.Equal(t, int64(1), report.Kinds[model.KindProduct].Purged)
	assert.Zero(t, report.Failures())

	for _, kind := range model.Kinds {
		unsynced, err := h.local.ListUnsynced(ctx, kind)
		require.NoError(t, err)
		assert.Empty(t, unsynced, kind)

		pending, err := h.local.ListPendingDeletes(ctx, kind)
		require.NoError(t, err)
		assert.Empty(t, pending, kind)
	}

	assert.Equal(t, 1, h.remote.count(model.KindCategory))
	assert.Equal(t, 2, h.remote.count(model.KindProduct))
	assert.Nil(t, h.remote.get(model.KindProduct, doomed.ID))
}

func TestSyncData_PullDoesNotClobberLocalEdit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)

	c, err := h.engine.CreateCategory(ctx, model.Category{Name: "Drinks"})
	require.NoError(t, err)

	h.conn.online.Store(false)
	c.Name = "Beverages"
	_, err = h.engine.UpdateCategory(ctx, *c)
	require.NoError(t, err)

	h.conn.online.Store(true)
	_, err = h.engine.SyncData(ctx)
	require.NoError(t, err)

	got, err := h.local.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Beverages", got.Name)
	assert.True(t, got.IsSynced)
	assert.Equal(t, "Beverages", h.remote.get(model.KindCategory, c.ID).(*model.Category).Name)
}

func TestSyncData_FailedPushSurvivesPull(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)

	c, err := h.engine.CreateCategory(ctx, model.Category{Name: "Drinks"})
	require.NoError(t, err)

	h.remote.failUpdate.Store(true)
	h.remote.failInsert.Store(true)
	c.Name = "Beverages"
	_, err = h.engine.UpdateCategory(ctx, *c)
	require.NoError(t, err)

	report, err := h.engine.SyncData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Kinds[model.KindCategory].PushFailed)
	assert.Equal(t, 1, report.Kinds[model.KindCategory].PullSkipped)
	assert.Equal(t, 1, report.Failures())

	got, err := h.local.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Beverages", got.Name)
	assert.False(t, got.IsSynced, "left for the next run")

	h.remote.failInsert.Store(false)
	_, err = h.engine.SyncData(ctx)
	require.NoError(t, err)

	got, err = h.local.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, got.IsSynced)
	assert.Equal(t, "Beverages", h.remote.get(model.KindCategory, c.ID).(*model.Category).Name)
}

// An edit made while its row's push is in flight must not be confirmed by that
// push or replaced by the pull that follows it.
func TestSyncData_EditDuringPushIsKept(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)

	c, err := h.engine.CreateCategory(ctx, model.Category{Name: "Drinks"})
	require.NoError(t, err)

	h.conn.online.Store(true)
	h.remote.insertGate = make(chan struct{})
	h.remote.insertStarted = make(chan struct{}, 1)

	done := make(chan *Report, 1)
	go func() {
		report, err := h.engine.SyncData(ctx)
		assert.NoError(t, err)
		done <- report
	}()

	select {
	case <-h.remote.insertStarted:
	case <-time.After(5 * time.Second):
		t.Fatal("push never reached the remote")
	}

	c.Name = "Beverages"
	_, err = h.engine.UpdateCategory(ctx, *c)
	require.NoError(t, err)

	close(h.remote.insertGate)
	var report *Report
	select {
	case report = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sync did not finish")
	}
	require.NotNil(t, report)

	kr := report.Kinds[model.KindCategory]
	assert.Zero(t, kr.Pushed)
	assert.Equal(t, 1, kr.Superseded)
	assert.Equal(t, 1, kr.PullSkipped)

	got, err := h.local.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Beverages", got.Name)
	assert.False(t, got.IsSynced, "newer edit stays pending")
	assert.Equal(t, "Drinks", h.remote.get(model.KindCategory, c.ID).(*model.Category).Name)

	h.remote.insertGate = nil
	report, err = h.engine.SyncData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Kinds[model.KindCategory].Pushed)

	got, err = h.local.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Beverages", got.Name)
	assert.True(t, got.IsSynced)
	assert.Equal(t, "Beverages", h.remote.get(model.KindCategory, c.ID).(*model.Category).Name)
}

func TestSyncData_DeleteDuringPushIsDelivered(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)

	c, err := h.engine.CreateCategory(ctx, model.Category{Name: "Drinks"})
	require.NoError(t, err)

	h.conn.online.Store(true)
	h.remote.insertGate = make(chan struct{})
	h.remote.insertStarted = make(chan struct{}, 1)

	done := make(chan *Report, 1)
	go func() {
		report, err := h.engine.SyncData(ctx)
		assert.NoError(t, err)
		done <- report
	}()

	select {
	case <-h.remote.insertStarted:
	case <-time.After(5 * time.Second):
		t.Fatal("push never reached the remote")
	}

	// The immediate delete fails, leaving the tombstone to the delete pass.
	h.remote.failDelete.Store(true)
	require.NoError(t, h.engine.DeleteCategory(ctx, c.ID))
	h.remote.failDelete.Store(false)

	close(h.remote.insertGate)
	var report *Report
	select {
	case report = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sync did not finish")
	}
	require.NotNil(t, report)

	kr := report.Kinds[model.KindCategory]
	assert.Equal(t, 1, kr.Superseded)
	assert.Equal(t, 1, kr.Deleted)
	assert.Equal(t, int64(1), kr.Purged)

	got, err := h.local.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Nil(t, h.remote.get(model.KindCategory, c.ID))
}

func TestSyncData_PullsRemoteRows(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)

	h.remote.put(&model.Category{Metadata: model.Metadata{ID: "remote-1", CreatedAt: 5, UpdatedAt: 5}, Name: "Snacks"})

	report, err := h.engine.SyncData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Kinds[model.KindCategory].Pulled)

	got, err := h.local.GetCategory(ctx, "remote-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Snacks", got.Name)
	assert.True(t, got.IsSynced)
}

func TestSyncData_FetchFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)

	_, err := h.engine.CreateCategory(ctx, model.Category{Name: "Drinks"})
	require.NoError(t, err)

	h.conn.online.Store(true)
	h.remote.failFetch.Store(true)

	report, err := h.engine.SyncData(ctx)
	require.NoError(t, err)
	assert.True(t, report.Kinds[model.KindCategory].PullFailed)
	assert.True(t, report.Kinds[model.KindProduct].PullFailed)
	assert.Equal(t, 1, report.Kinds[model.KindCategory].Pushed, "push runs regardless of pull")
}

// Deleting then syncing twice leaves no trace of the row locally.
func TestSyncData_TombstoneLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)

	p, err := h.engine.CreateProduct(ctx, newProduct("Cola", ""))
	require.NoError(t, err)

	h.conn.online.Store(false)
	require.NoError(t, h.engine.DeleteProduct(ctx, p.ID))
	h.conn.online.Store(true)

	h.remote.failDelete.Store(true)
	report, err := h.engine.SyncData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Kinds[model.KindProduct].DeleteFailed)

	got, err := h.local.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "a pending tombstone is not resurrected by the pull")

	h.remote.failDelete.Store(false)
	_, err = h.engine.SyncData(ctx)
	require.NoError(t, err)
	_, err = h.engine.SyncData(ctx)
	require.NoError(t, err)

	pending, err := h.local.ListPendingDeletes(ctx, model.KindProduct)
	require.NoError(t, err)
	assert.Empty(t, pending)

	n, err := h.local.PurgeSyncedTombstones(ctx, model.KindProduct)
	require.NoError(t, err)
	assert.Zero(t, n, "already purged")

	counts, err := h.local.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts[model.KindProduct].Active)
	assert.Nil(t, h.remote.get(model.KindProduct, p.ID))
}

func TestSyncData_IdempotentPush(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)

	c, err := h.engine.CreateCategory(ctx, model.Category{Name: "Drinks"})
	require.NoError(t, err)

	h.conn.online.Store(true)
	_, err = h.engine.SyncData(ctx)
	require.NoError(t, err)

	// Simulate a retried cycle: the same row is pending again.
	c.IsSynced = false
	require.NoError(t, h.local.Upsert(ctx, c))

	report, err := h.engine.SyncData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Kinds[model.KindCategory].Pushed)

	assert.Equal(t, 1, h.remote.count(model.KindCategory))
	categories, err := h.local.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}

func TestSyncData_DrinksScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, false)

	created, err := h.engine.CreateCategory(ctx, model.Category{Name: "Drinks", Description: "Beverages"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.IsSynced)

	h.conn.online.Store(true)
	_, err = h.engine.SyncData(ctx)
	require.NoError(t, err)

	local, err := h.local.GetCategory(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, local)
	assert.True(t, local.IsSynced)

	remote := h.remote.get(model.KindCategory, created.ID).(*model.Category)
	assert.Equal(t, created.ID, remote.ID)
	assert.Equal(t, local.Name, remote.Name)
	assert.Equal(t, local.Description, remote.Description)
}

func TestSyncData_SingleFlight(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, true)
	h.remote.fetchGate = make(chan struct{})

	const callers = 4
	var wg sync.WaitGroup
	reports := make([]*Report, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			reports[i], errs[i] = h.engine.SyncData(ctx)
		}(i)
	}

	// Wait until the leader is parked on the first fetch, then give followers time to join.
	require.Eventually(t, func() bool { return h.remote.fetches.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(h.remote.fetchGate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, reports[0], reports[i])
	}
	assert.Equal(t, int32(len(model.Kinds)), h.remote.fetches.Load())
}

func TestSyncData_RunSurvivesCallerCancel(t *testing.T) {
	h := newHarness(t, false)

	_, err := h.engine.CreateCategory(context.Background(), model.Category{Name: "Drinks"})
	require.NoError(t, err)
	h.conn.online.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := h.engine.SyncData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Kinds[model.KindCategory].Pushed)
}
