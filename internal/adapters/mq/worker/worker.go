// Package worker applies queued match results to the leaderboard.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/acerace/internal/adapters/mq/queue"
	"github.com/okian/acerace/internal/domain/model"
	"github.com/okian/acerace/internal/domain/scoring"
	"github.com/okian/acerace/pkg/logger"
	"github.com/okian/acerace/pkg/metrics"
)

// Event is what workers read off the queue.
type Event = queue.Event

// Scorer computes the points of a result.
type Scorer interface {
	Score(ctx context.Context, in scoring.Input) (scoring.Result, error)
}

// Awarder finds the users who picked a player and credits them.
type Awarder interface {
	PickersOf(ctx context.Context, tournamentID, playerID string) ([]string, error)
	// AddAward returns false when the award was already stored.
	AddAward(ctx context.Context, a model.Award) (bool, error)
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// ErrUnscorable marks a result the scorer rejected. Retrying it cannot
// succeed, so it is not reported to the failure hook.
var ErrUnscorable = errors.New("unscorable result")

// AwardFunc is called after every newly stored award.
type AwardFunc func(ctx context.Context, a model.Award)

// FailureFunc is called when a result could not be applied because the
// store failed. Some of its awards may already be stored.
type FailureFunc func(ctx context.Context, e Event, err error)

// Worker processes events until the queue closes or it is shut down.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker without waiting for the queue to drain.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	scorer    Scorer
	awarder   Awarder
	onAward   AwardFunc
	onFailure FailureFunc
	name      string
	now       func() time.Time

	processed atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, scorer Scorer, awarder Awarder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		scorer:   scorer,
		awarder:  awarder,
		name:     "worker",
		now:      time.Now,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := w.processEvent(ctx, event); err != nil {
				w.logger.Error(ctx, "error processing result", logger.Error(err))
				if w.onFailure != nil && !errors.Is(err, ErrUnscorable) {
					w.onFailure(ctx, event, err)
				}
			}
		}
	}
}

// Shutdown stops the worker and waits for the current event to finish.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Processed returns how many events this worker has applied.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

// processEvent scores one result and awards every picker of the player.
func (w *InMemoryWorker) processEvent(ctx context.Context, event Event) error { //nolint:gocritic // hugeParam: events travel by value over the channel
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	res, err := w.scorer.Score(ctx, scoring.Input{
		TournamentID: event.TournamentID,
		PlayerID:     event.PlayerID,
		Round:        event.Round,
	})
	if err != nil {
		metrics.RecordWorkerError("scoring")
		if ctx.Err() != nil {
			return fmt.Errorf("score result %s: %w", event.EventID, err)
		}
		return fmt.Errorf("%w: score result %s: %w", ErrUnscorable, event.EventID, err)
	}

	users, err := w.awarder.PickersOf(ctx, event.TournamentID, event.PlayerID)
	if err != nil {
		metrics.RecordWorkerError("pickers")
		return fmt.Errorf("pickers of %s/%s: %w", event.TournamentID, event.PlayerID, err)
	}

	awardedAt := event.TS
	if awardedAt.IsZero() {
		awardedAt = w.now()
	}

	var stored int
	for _, user := range users {
		award := model.Award{
			ID:           uuid.NewString(),
			UserID:       user,
			TournamentID: event.TournamentID,
			PlayerID:     event.PlayerID,
			EventID:      event.EventID,
			Points:       res.Points,
			AwardedAt:    awardedAt.UTC(),
		}
		ok, err := w.awarder.AddAward(ctx, award)
		if err != nil {
			metrics.RecordWorkerError("award")
			return fmt.Errorf("award %s for result %s: %w", user, event.EventID, err)
		}
		if !ok {
			continue
		}
		stored++
		metrics.RecordAward(award.Points)
		if w.onAward != nil {
			w.onAward(ctx, award)
		}
	}

	w.processed.Add(1)
	w.logger.Debug(ctx, "result applied",
		logger.String("event_id", event.EventID),
		logger.String("player_id", event.PlayerID),
		logger.String("round", event.Round),
		logger.Float64("points", res.Points),
		logger.Int("awards", stored),
	)
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates workerCount workers sharing q. Options apply to every worker.
// A workerCount below 1 means one worker per CPU.
func NewPool(workerCount int, q Queue, scorer Scorer, awarder Awarder, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(q, scorer, awarder, wopts...)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the events applied by all workers.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Shutdown closes the queue and lets the workers drain it. Workers still
// busy when ctx expires are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			w.shutdownOnce.Do(func() { close(w.shutdown) })
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut {
		return fmt.Errorf("pool shutdown: %w", ctx.Err())
	}
	return nil
}
