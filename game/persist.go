package game

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/s0930s44/BINGO/domain"
	"github.com/s0930s44/BINGO/logger"
)

// Persistence keeps gameplay off the storage path: the hub posts operations
// here and never waits for the backend.
type Persistence interface {
	UpsertRoom(room domain.RoomRecord)
	DeleteRoom(name string)
	UpsertUser(user domain.UserRecord)
	DeleteUser(connID string)
	InsertDrawnNumber(roomName string, number, position int)
	SyncRooms(snapshot []RoomSnapshot)
}

const (
	persistQueueSize = 256
	persistOpTimeout = 5 * time.Second
)

type persistOp struct {
	name string
	fn   func(ctx context.Context) error
}

// Persister applies storage operations asynchronously in arrival order.
// Failures are logged and dropped: the registry stays authoritative and the
// periodic sync pass repairs what it can.
type Persister struct {
	store domain.Store

	queue     chan persistOp
	done      chan struct{}
	closeOnce sync.Once
	syncing   atomic.Bool
}

func NewPersister(store domain.Store) *Persister {
	p := &Persister{
		store: store,
		queue: make(chan persistOp, persistQueueSize),
		done:  make(chan struct{}),
	}
	go p.worker()
	return p
}

func (p *Persister) UpsertRoom(room domain.RoomRecord) {
	p.enqueue("upsert room", func(ctx context.Context) error {
		return p.store.UpsertRoom(ctx, room)
	})
}

func (p *Persister) DeleteRoom(name string) {
	p.enqueue("delete room", func(ctx context.Context) error {
		return p.store.DeleteRoom(ctx, name)
	})
}

func (p *Persister) UpsertUser(user domain.UserRecord) {
	p.enqueue("upsert user", func(ctx context.Context) error {
		return p.store.UpsertUser(ctx, user)
	})
}

func (p *Persister) DeleteUser(connID string) {
	p.enqueue("delete user", func(ctx context.Context) error {
		return p.store.DeleteUser(ctx, connID)
	})
}

func (p *Persister) InsertDrawnNumber(roomName string, number, position int) {
	p.enqueue("insert drawn number", func(ctx context.Context) error {
		return p.store.InsertDrawnNumber(ctx, roomName, number, position)
	})
}

// SyncRooms re-aligns the backend with a registry snapshot in the
// background. At most one pass runs at a time; a pass requested while the
// previous one is still in flight is skipped.
func (p *Persister) SyncRooms(snapshot []RoomSnapshot) {
	if !p.syncing.CompareAndSwap(false, true) {
		logger.Debug("storage: sync pass still in flight, skipping")
		return
	}
	go func() {
		defer p.syncing.Store(false)
		for _, snap := range snapshot {
			p.syncRoom(snap)
		}
	}()
}

// Close stops the worker after the queued operations drain. Posting after
// Close is a caller bug; the hub is stopped first.
func (p *Persister) Close() {
	p.closeOnce.Do(func() { close(p.queue) })
	<-p.done
}

func (p *Persister) worker() {
	defer close(p.done)
	for op := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), persistOpTimeout)
		if err := op.fn(ctx); err != nil {
			logger.Warningf("storage: %s failed: %v", op.name, err)
		}
		cancel()
	}
}

func (p *Persister) enqueue(name string, fn func(ctx context.Context) error) {
	select {
	case p.queue <- persistOp{name: name, fn: fn}:
	default:
		logger.Warningf("storage: queue full, dropped %s", name)
	}
}

func (p *Persister) syncRoom(snap RoomSnapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), persistOpTimeout)
	defer cancel()

	name := snap.Record.Name
	count, err := p.store.CountUsersInRoom(ctx, name)
	if err != nil {
		logger.Warningf("storage: count users in %q failed: %v", name, err)
		return
	}
	if count != snap.Record.MemberCount {
		logger.Warningf("storage: room %q count drifted (stored %d, live %d)", name, count, snap.Record.MemberCount)
	}
	if err := p.store.UpsertRoom(ctx, snap.Record); err != nil {
		logger.Warningf("storage: re-upsert room %q failed: %v", name, err)
		return
	}

	drawn, err := p.store.ListDrawnNumbers(ctx, name)
	if err != nil {
		logger.Warningf("storage: list drawn numbers for %q failed: %v", name, err)
		return
	}
	// A backfill can race the same insert still sitting in the worker queue.
	// Stores ignore a replayed number, so applying it twice is harmless.
	for i := len(drawn); i < len(snap.Drawn); i++ {
		if err := p.store.InsertDrawnNumber(ctx, name, snap.Drawn[i], i); err != nil {
			logger.Warningf("storage: backfill drawn number for %q failed: %v", name, err)
			return
		}
	}
}
