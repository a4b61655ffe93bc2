package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rkocherlakota/pepsico-dpod-target/internal/common"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/entity"
)

// Locked serializes every call to the wrapped store with a mutex.
type Locked struct {
	mu    sync.Mutex
	inner Store
}

func NewLocked(s Store) *Locked {
	if l, ok := s.(*Locked); ok {
		return l
	}
	return &Locked{inner: s}
}

// Unwrap returns the underlying store.
func (l *Locked) Unwrap() Store { return l.inner }

func (l *Locked) Upsert(ctx context.Context, rows ...entity.LedgerRow) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Upsert(ctx, rows...)
}

func (l *Locked) Lookup(ctx context.Context, filename string) (entity.LedgerRow, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Lookup(ctx, filename)
}

func (l *Locked) List(ctx context.Context) ([]entity.LedgerRow, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.List(ctx)
}

func (l *Locked) Inspect(ctx context.Context) (Report, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	in, ok := l.inner.(Inspector)
	if !ok {
		return Report{}, fmt.Errorf("%w: store does not support inspection", common.ErrInvalidInput)
	}
	return in.Inspect(ctx)
}

func (l *Locked) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inner.Close()
}

// ErrWriterClosed is returned by Writer.Upsert after Close.
var ErrWriterClosed = errors.New("ledger writer closed")

type writeReq struct {
	ctx  context.Context
	rows []entity.LedgerRow
	done chan error
}

// Writer funnels upserts from many goroutines through a single goroutine that
// owns the store. Reads go straight to the store.
type Writer struct {
	store   Store
	reqs    chan writeReq
	quit    chan struct{}
	// stopped closes when loop has returned.
	stopped chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func NewWriter(s Store, buffer int) *Writer {
	if buffer < 0 {
		buffer = 0
	}
	w := &Writer{
		store:   s,
		reqs:    make(chan writeReq, buffer),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

func (w *Writer) loop() {
	defer w.wg.Done()
	defer close(w.stopped)
	for {
		select {
		case req := <-w.reqs:
			req.done <- w.store.Upsert(req.ctx, req.rows...)
		case <-w.quit:
			// Drain what was queued before Close.
			for {
				select {
				case req := <-w.reqs:
					req.done <- w.store.Upsert(req.ctx, req.rows...)
				default:
					return
				}
			}
		}
	}
}

// Upsert queues rows and waits for the write to finish.
func (w *Writer) Upsert(ctx context.Context, rows ...entity.LedgerRow) error {
	req := writeReq{ctx: ctx, rows: rows, done: make(chan error, 1)}
	select {
	case <-w.quit:
		return ErrWriterClosed
	default:
	}
	select {
	case w.reqs <- req:
	case <-w.quit:
		return ErrWriterClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-w.stopped:
		select {
		case err := <-req.done:
			return err
		default:
			return ErrWriterClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) Lookup(ctx context.Context, filename string) (entity.LedgerRow, error) {
	return w.store.Lookup(ctx, filename)
}

func (w *Writer) List(ctx context.Context) ([]entity.LedgerRow, error) {
	return w.store.List(ctx)
}

// Close stops the writer after pending writes finish. The wrapped store is
// not closed.
func (w *Writer) Close() error {
	w.once.Do(func() { close(w.quit) })
	w.wg.Wait()
	return nil
}
