// Package reconcile keeps the local catalogue and the remote server
// eventually consistent.
//
// Every write commits locally and tries the remote store on the way; a remote
// failure only leaves the row unsynced for the next SyncData run. SyncData
// pushes pending local changes, pulls the remote snapshot and purges
// confirmed tombstones, one kind at a time.
package reconcile

import (
	"context"
	"time"

	"catalog-sync/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// LocalStore is the durable on-device cache.
type LocalStore interface {
	Upsert(ctx context.Context, rec model.Record) error
	ApplyRemote(ctx context.Context, recs []model.Record) (int, error)
	GetCategory(ctx context.Context, id string) (*model.Category, error)
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	WatchCategories(ctx context.Context) (<-chan []model.Category, error)
	WatchProducts(ctx context.Context) (<-chan []model.Product, error)
	WatchProductsByCategory(ctx context.Context, categoryID string) (<-chan []model.Product, error)
	SoftDelete(ctx context.Context, kind model.Kind, id string, ts int64) (bool, error)
	MarkSynced(ctx context.Context, kind model.Kind, m model.Metadata) (bool, error)
	ListUnsynced(ctx context.Context, kind model.Kind) ([]model.Record, error)
	ListPendingDeletes(ctx context.Context, kind model.Kind) ([]model.Record, error)
	PurgeSyncedTombstones(ctx context.Context, kind model.Kind) (int64, error)
}

// RemoteStore is the authoritative server. Insert replaces rows with the same ID.
type RemoteStore interface {
	Insert(ctx context.Context, rec model.Record) error
	Update(ctx context.Context, rec model.Record) error
	Delete(ctx context.Context, kind model.Kind, id string) error
	FetchAll(ctx context.Context, kind model.Kind) ([]model.Record, error)
}

// Connectivity gates remote calls.
type Connectivity interface {
	IsConnected() bool
	Subscribe(ctx context.Context) <-chan bool
}

// Engine routes every catalogue mutation and runs bulk reconciliation.
type Engine struct {
	local  LocalStore
	remote RemoteStore
	conn   Connectivity
	logger zerolog.Logger

	now   func() time.Time
	newID func() string

	flight singleflight.Group
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces the UUID generator used for new records.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// New creates an engine. The engine does not own local; the caller closes it.
func New(local LocalStore, remote RemoteStore, conn Connectivity, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		local:  local,
		remote: remote,
		conn:   conn,
		logger: logger.With().Str("component", "reconcile").Logger(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsConnected reports the current connectivity state.
func (e *Engine) IsConnected() bool {
	return e.conn.IsConnected()
}

// ObserveConnectivity streams deduplicated connectivity changes until ctx is done.
func (e *Engine) ObserveConnectivity(ctx context.Context) <-chan bool {
	return e.conn.Subscribe(ctx)
}

// GetCategory returns the active category with id, or model.ErrNotFound.
func (e *Engine) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	c, err := e.local.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, model.ErrNotFound
	}
	return c, nil
}

// GetProduct returns the active product with id, or model.ErrNotFound.
func (e *Engine) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	p, err := e.local.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, model.ErrNotFound
	}
	return p, nil
}

// GetAllCategories streams the active categories, newest first.
func (e *Engine) GetAllCategories(ctx context.Context) (<-chan []model.Category, error) {
	return e.local.WatchCategories(ctx)
}

// GetAllProducts streams the active products, newest first.
func (e *Engine) GetAllProducts(ctx context.Context) (<-chan []model.Product, error) {
	return e.local.WatchProducts(ctx)
}

// GetProductsByCategory streams the active products in categoryID.
func (e *Engine) GetProductsByCategory(ctx context.Context, categoryID string) (<-chan []model.Product, error) {
	return e.local.WatchProductsByCategory(ctx, categoryID)
}

func (e *Engine) nowMillis() int64 {
	return e.now().UnixMilli()
}
