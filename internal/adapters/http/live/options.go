package live

import "github.com/okian/acerace/pkg/logger"

// Option configures a Hub.
type Option func(*Hub)

// WithAllowedOrigins restricts websocket upgrades to the given origins. With
// none set, only same-host requests are upgraded.
func WithAllowedOrigins(origins ...string) Option {
	return func(h *Hub) {
		h.allowedOrigins = append(h.allowedOrigins, origins...)
	}
}

// WithLogger sets the hub logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.log = l
		}
	}
}
