// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	eventqueue "github.com/okian/acerace/internal/adapters/mq/queue"
	workerpool "github.com/okian/acerace/internal/adapters/mq/worker"
	"github.com/okian/acerace/internal/adapters/repository"
	"github.com/okian/acerace/internal/domain/dedupe"
	"github.com/okian/acerace/internal/domain/model"
	"github.com/okian/acerace/internal/domain/picks"
	"github.com/okian/acerace/internal/domain/ranking"
	"github.com/okian/acerace/internal/domain/scoring"
	"github.com/okian/acerace/pkg/logger"
	"github.com/okian/acerace/pkg/metrics"
)

const defaultStopTimeout = 30 * time.Second

// Service implements the API dependencies for the pick game.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	deduper    dedupe.Deduper
	eventQueue eventqueue.Queue
	scorer     scoring.Scorer
	workerPool *workerpool.Pool

	// Configuration
	workerCount        int
	queueSize          int
	dedupeSize         int
	roundPoints        map[string]float64
	defaultRoundPoints float64
	onAward            workerpool.AwardFunc
	now                func() time.Time

	started bool
	logger  logger.Logger
}

// New constructs a new Service. A store must be supplied with WithStore
// before Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   10_000,
		dedupeSize:  100_000,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// Start builds the scoring pipeline and starts the workers. The workers do
// not stop with ctx: accepted results are only dropped by Stop, after the
// queue has been drained or Stop's own deadline has passed.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.store == nil {
		return ErrNoStore
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))

	scorerOpts := []scoring.Option{}
	if s.roundPoints != nil {
		scorerOpts = append(scorerOpts, scoring.WithRoundPoints(s.roundPoints, s.defaultRoundPoints))
	}
	s.scorer = scoring.NewRoundScorer(scorerOpts...)

	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s.scorer, s.store,
		workerpool.WithOnAward(s.onAward),
		workerpool.WithClock(s.now),
		workerpool.WithOnFailure(s.forgetFailed),
	)
	s.workerPool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
	)
	return nil
}

// Stop drains the queue and stops the workers. The store stays open; its
// owner closes it.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultStopTimeout)
		defer cancel()
	}

	s.logger.Info(ctx, "stopping service")
	err := s.workerPool.Shutdown(ctx)
	s.started = false
	if err != nil {
		return fmt.Errorf("stop workers: %w", err)
	}
	s.logger.Info(ctx, "service stopped", logger.Int64("results_applied", s.workerPool.Processed()))
	return nil
}

func (s *Service) running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// SeenAndRecord reports whether a result event id was already accepted and
// records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	if s.deduper == nil {
		return false
	}
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordResultDuplicate()
	}
	return seen
}

// Unrecord forgets a result event id so the client can retry it.
func (s *Service) Unrecord(ctx context.Context, id string) {
	if s.deduper != nil {
		s.deduper.Unrecord(ctx, id)
	}
}

// forgetFailed lets a client retry a result whose awards could not be stored.
// Awards are unique per (event, user), so a replay cannot double-count.
func (s *Service) forgetFailed(ctx context.Context, e model.ResultEvent, err error) { //nolint:gocritic // hugeParam: matches worker.FailureFunc
	s.Unrecord(ctx, e.EventID)
	s.logger.Warn(ctx, "result failed, id released for retry",
		logger.String("event_id", e.EventID),
		logger.Error(err),
	)
}

// Size returns the number of remembered result event ids.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Enqueue hands a result event to the workers. It returns false on
// backpressure or when the service is not running.
func (s *Service) Enqueue(ctx context.Context, e model.ResultEvent) bool { //nolint:gocritic // hugeParam: events travel by value over the queue
	if !s.running() {
		return false
	}
	ok := s.eventQueue.Enqueue(ctx, e)
	if ok {
		metrics.RecordResultAccepted()
		s.logger.Debug(ctx, "result queued",
			logger.String("event_id", e.EventID),
			logger.String("tournament_id", e.TournamentID),
			logger.String("player_id", e.PlayerID),
			logger.String("round", e.Round),
		)
	}
	return ok
}

// ListTournaments returns every tournament.
func (s *Service) ListTournaments(ctx context.Context) ([]model.Tournament, error) {
	return s.store.ListTournaments(ctx)
}

// CreateTournament stores a new tournament.
func (s *Service) CreateTournament(ctx context.Context, t model.Tournament) error {
	return s.store.CreateTournament(ctx, t)
}

// Draw returns the draw of a tournament.
func (s *Service) Draw(ctx context.Context, tournamentID string) ([]model.DrawEntry, error) {
	return s.store.Draw(ctx, tournamentID)
}

// ReplaceDraw swaps the draw of a tournament.
func (s *Service) ReplaceDraw(ctx context.Context, tournamentID string, entries []model.DrawEntry) error {
	return s.store.ReplaceDraw(ctx, tournamentID, entries)
}

// AddSelection stores one pick after server-side validation.
func (s *Service) AddSelection(ctx context.Context, sel model.Selection) (model.Selection, error) {
	stored, err := s.store.AddSelection(ctx, sel)
	if err != nil {
		metrics.RecordPickRejected(rejectReason(err))
		return model.Selection{}, err
	}
	metrics.RecordSelectionStored(string(stored.DrawHalf))
	return stored, nil
}

// SubmitPicks stores a complete pick set, two players from each half, in
// one transaction.
func (s *Service) SubmitPicks(ctx context.Context, userID, tournamentID string, playerIDs []string) ([]model.Selection, error) {
	set := picks.New(tournamentID)
	seen := make(map[string]struct{}, len(playerIDs))
	for _, id := range playerIDs {
		if _, dup := seen[id]; dup {
			metrics.RecordPickRejected("duplicate")
			return nil, fmt.Errorf("%w: %w", repository.ErrInvalid, picks.ErrDuplicatePick)
		}
		seen[id] = struct{}{}

		entry, err := s.store.DrawEntry(ctx, tournamentID, id)
		if err != nil {
			metrics.RecordPickRejected("not_found")
			return nil, err
		}
		if _, err := set.Toggle(entry); err != nil {
			metrics.RecordPickRejected(rejectReason(err))
			return nil, fmt.Errorf("%w: %w", repository.ErrInvalid, err)
		}
	}

	sels, err := set.Selections(userID, s.now())
	if err != nil {
		metrics.RecordPickRejected("incomplete")
		return nil, fmt.Errorf("%w: %w", repository.ErrInvalid, err)
	}
	stored, err := s.store.AddSelections(ctx, sels)
	if err != nil {
		metrics.RecordPickRejected(rejectReason(err))
		return nil, err
	}
	for _, sel := range stored {
		metrics.RecordSelectionStored(string(sel.DrawHalf))
	}
	s.logger.Info(ctx, "picks stored",
		logger.String("user_id", userID),
		logger.String("tournament_id", tournamentID),
	)
	return stored, nil
}

// SelectionsByUser returns a user's pick history.
func (s *Service) SelectionsByUser(ctx context.Context, userID string) ([]model.Selection, error) {
	return s.store.SelectionsByUser(ctx, userID)
}

// Leaderboard returns the rows sorted by key for the current calendar windows.
func (s *Service) Leaderboard(ctx context.Context, key ranking.SortKey) ([]model.LeaderboardRow, error) {
	rows, err := s.store.Leaderboard(ctx, ranking.Windows(s.now()))
	if err != nil {
		return nil, err
	}
	metrics.UpdateLeaderboardUsers(len(rows))
	return ranking.Sort(rows, key), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}
	if !s.started {
		return stats
	}

	queueLen := s.eventQueue.Len(ctx)
	stats["queueLength"] = queueLen
	stats["resultsApplied"] = s.workerPool.Processed()
	stats["seenResults"] = s.deduper.Size()
	if users, err := s.store.Count(ctx); err == nil {
		stats["totalUsers"] = users
		metrics.UpdateLeaderboardUsers(users)
	}
	metrics.UpdateQueueSize(queueLen)
	return stats
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, picks.ErrHalfFull):
		return "half_full"
	case errors.Is(err, picks.ErrDuplicatePick):
		return "duplicate"
	case errors.Is(err, picks.ErrHalfMismatch):
		return "half_mismatch"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	case errors.Is(err, repository.ErrInvalid):
		return "invalid"
	default:
		return "error"
	}
}
