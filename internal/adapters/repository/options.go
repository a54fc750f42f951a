package repository

import "time"

// Option applies a configuration option to the SQLStore.
type Option func(*SQLStore)

// WithClock sets the time source used for selection dates left empty.
func WithClock(now func() time.Time) Option {
	return func(s *SQLStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets how ids are minted for new rows.
func WithIDGenerator(newID func() string) Option {
	return func(s *SQLStore) {
		if newID != nil {
			s.newID = newID
		}
	}
}
