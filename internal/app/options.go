package service

import (
	"time"

	workerpool "github.com/okian/acerace/internal/adapters/mq/worker"
	"github.com/okian/acerace/internal/adapters/repository"
	"github.com/okian/acerace/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence layer.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the result queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many result event ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithRoundPoints sets the points per round and the fallback for unknown rounds.
func WithRoundPoints(points map[string]float64, defaultPoints float64) Option {
	return func(s *Service) {
		s.roundPoints = points
		s.defaultRoundPoints = defaultPoints
	}
}

// WithOnAward registers a callback for every newly stored award.
func WithOnAward(fn workerpool.AwardFunc) Option {
	return func(s *Service) {
		s.onAward = fn
	}
}

// WithClock sets the time source for selection dates and leaderboard windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
