package api

import "github.com/okian/acerace/pkg/logger"

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithAllowedOrigins enables CORS for the given browser origins.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.allowedOrigins = append(s.allowedOrigins, origins...)
	}
}

// WithAdminSecret protects admin routes with HS256 bearer tokens signed by
// secret. An empty secret leaves them open.
func WithAdminSecret(secret string) Option {
	return func(s *Server) {
		s.adminSecret = []byte(secret)
	}
}

// WithLogger sets the logger used for failed requests.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStatsProvider adds p to the sources merged into GET /stats.
func WithStatsProvider(p StatsProvider) Option {
	return func(s *Server) {
		s.extraStats = append(s.extraStats, p)
	}
}
