package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rkocherlakota/pepsico-dpod-target/constants"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/common"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/core"
	"github.com/rkocherlakota/pepsico-dpod-target/internal/entity"
)

type recordingProcessor struct {
	mu    sync.Mutex
	paths []string
	ids   []string
}

func (r *recordingProcessor) ProcessFile(ctx context.Context, path string, opts core.FileOptions) (entity.DocumentResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	r.ids = append(r.ids, common.RequestIDFromContext(ctx))
	if opts.ProcessType != constants.ProcessSingle {
		return entity.DocumentResult{}, fmt.Errorf("process type = %s", opts.ProcessType)
	}
	return entity.DocumentResult{Filename: path, ProcessingStatus: constants.StatusSuccess}, nil
}

func TestQueueProcessesEveryJob(t *testing.T) {
	proc := &recordingProcessor{}
	var (
		mu   sync.Mutex
		errs []error
	)
	q := NewProcessorQueue(proc, nil,
		WithWorkers(3),
		WithQueueSize(2),
		WithProcessTimeout(time.Second),
		WithResultHook(func(_ Job, _ entity.DocumentResult, err error) {
			mu.Lock()
			defer mu.Unlock()
			errs = append(errs, err)
		}),
	)

	for i := 0; i < 10; i++ {
		job := Job{Path: fmt.Sprintf("/in/%d.pdf", i), RequestID: fmt.Sprintf("req-%d", i)}
		if err := q.Enqueue(context.Background(), job); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	q.Shutdown(context.Background())

	if len(proc.paths) != 10 {
		t.Fatalf("processed %d files, want 10", len(proc.paths))
	}
	for _, id := range proc.ids {
		if id == "" {
			t.Errorf("request id not propagated")
		}
	}
	for _, err := range errs {
		if err != nil {
			t.Errorf("job error: %v", err)
		}
	}
}

func TestEnqueueAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&recordingProcessor{}, nil, WithWorkers(1))
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), Job{Path: "/in/late.pdf"})
	if !errors.Is(err, ErrQueueClosed) {
		t.Errorf("err = %v, want ErrQueueClosed", err)
	}
}

type blockingProcessor struct{ release chan struct{} }

func (b blockingProcessor) ProcessFile(context.Context, string, core.FileOptions) (entity.DocumentResult, error) {
	<-b.release
	return entity.DocumentResult{}, nil
}

func TestEnqueueBackpressureHonorsContext(t *testing.T) {
	proc := blockingProcessor{release: make(chan struct{})}
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithQueueSize(1))
	defer func() {
		close(proc.release)
		q.Shutdown(context.Background())
	}()

	// One job occupies the worker, one fills the buffer.
	_ = q.Enqueue(context.Background(), Job{Path: "a.pdf"})
	deadline := time.Now().Add(time.Second)
	for q.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	_ = q.Enqueue(context.Background(), Job{Path: "b.pdf"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := q.Enqueue(ctx, Job{Path: "c.pdf"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}
