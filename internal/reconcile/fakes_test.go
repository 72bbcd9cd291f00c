package reconcile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"catalog-sync/internal/localstore"
	"catalog-sync/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var errRemoteDown = errors.New("remote unavailable")

// fakeRemote is an in-memory authoritative store with switchable failures.
type fakeRemote struct {
	mu   sync.Mutex
	rows map[model.Kind]map[string]model.Record

	failInsert atomic.Bool
	failUpdate atomic.Bool
	failDelete atomic.Bool
	failFetch  atomic.Bool

	// fetchGate, when set, blocks FetchAll until closed.
	fetchGate chan struct{}
	// insertGate, when set, blocks Insert until closed. insertStarted, when
	// set, receives a signal as each gated Insert begins waiting.
	insertGate    chan struct{}
	insertStarted chan struct{}

	inserts atomic.Int32
	fetches atomic.Int32
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{rows: map[model.Kind]map[string]model.Record{
		model.KindCategory: {},
		model.KindProduct:  {},
	}}
}

// clone copies rec the way the server stores it: without client sync flags.
func clone(rec model.Record) model.Record {
	var out model.Record
	switch r := rec.(type) {
	case *model.Category:
		c := *r
		out = &c
	case *model.Product:
		p := *r
		out = &p
	default:
		panic(fmt.Sprintf("unexpected record %T", rec))
	}
	out.Meta().IsSynced = false
	out.Meta().IsDeleted = false
	return out
}

func (f *fakeRemote) Insert(_ context.Context, rec model.Record) error {
	f.inserts.Add(1)
	if f.insertGate != nil {
		select {
		case f.insertStarted <- struct{}{}:
		default:
		}
		<-f.insertGate
	}
	if f.failInsert.Load() {
		return errRemoteDown
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[rec.Kind()][rec.Meta().ID] = clone(rec)
	return nil
}

func (f *fakeRemote) Update(_ context.Context, rec model.Record) error {
	if f.failUpdate.Load() {
		return errRemoteDown
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[rec.Kind()][rec.Meta().ID]; !ok {
		return errors.New("not found")
	}
	f.rows[rec.Kind()][rec.Meta().ID] = clone(rec)
	return nil
}

func (f *fakeRemote) Delete(_ context.Context, kind model.Kind, id string) error {
	if f.failDelete.Load() {
		return errRemoteDown
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows[kind], id)
	return nil
}

func (f *fakeRemote) FetchAll(_ context.Context, kind model.Kind) ([]model.Record, error) {
	f.fetches.Add(1)
	if f.fetchGate != nil {
		<-f.fetchGate
	}
	if f.failFetch.Load() {
		return nil, errRemoteDown
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Record, 0, len(f.rows[kind]))
	for _, rec := range f.rows[kind] {
		out = append(out, clone(rec))
	}
	return out, nil
}

func (f *fakeRemote) get(kind model.Kind, id string) model.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[kind][id]
}

func (f *fakeRemote) count(kind model.Kind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows[kind])
}

// put stores rec as if another client had written it.
func (f *fakeRemote) put(rec model.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[rec.Kind()][rec.Meta().ID] = clone(rec)
}

// toggle is a switchable connectivity source.
type toggle struct {
	online atomic.Bool
}

func (t *toggle) IsConnected() bool { return t.online.Load() }

func (t *toggle) Subscribe(ctx context.Context) <-chan bool {
	ch := make(chan bool, 1)
	ch <- t.online.Load()
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}

type harness struct {
	engine *Engine
	local  *localstore.Store
	remote *fakeRemote
	conn   *toggle
	clock  *atomic.Int64
}

func newHarness(t *testing.T, online bool) *harness {
	t.Helper()

	local, err := localstore.Open(context.Background(), filepath.Join(t.TempDir(), "catalog.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = local.Close() })

	h := &harness{
		local:  local,
		remote: newFakeRemote(),
		conn:   &toggle{},
		clock:  &atomic.Int64{},
	}
	h.conn.online.Store(online)
	h.clock.Store(1_000)

	var ids atomic.Int32
	h.engine = New(local, h.remote, h.conn, zerolog.Nop(),
		WithClock(func() time.Time { return time.UnixMilli(h.clock.Add(1)) }),
		WithIDGenerator(func() string { return fmt.Sprintf("id-%d", ids.Add(1)) }),
	)
	return h
}
