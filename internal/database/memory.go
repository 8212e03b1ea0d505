package database

import (
	"context"
	"sync"
)

// Snapshotter is implemented by in-memory repositories. Snapshot captures
// the current state and returns a func that puts it back.
type Snapshotter interface {
	Snapshot() (restore func())
}

type memTxKey struct{}

// MemoryTransactor gives in-memory repositories all-or-nothing semantics:
// every registered repository is snapshotted before fn runs and restored if
// fn returns an error. Units run one at a time.
type MemoryTransactor struct {
	mu    sync.Mutex
	repos []Snapshotter
}

func NewMemoryTransactor(repos ...Snapshotter) *MemoryTransactor {
	return &MemoryTransactor{repos: repos}
}

// Register adds repositories after construction.
func (t *MemoryTransactor) Register(repos ...Snapshotter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.repos = append(t.repos, repos...)
}

func (t *MemoryTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	restores := make([]func(), 0, len(t.repos))
	for _, r := range t.repos {
		restores = append(restores, r.Snapshot())
	}

	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		return err
	}
	return nil
}
