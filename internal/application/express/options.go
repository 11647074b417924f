// Package express implements the disposable express cart, the receipt
// history it is archived into, and the guest-mode cart kept in one blob.
package express

import (
	"github.com/pocketbook/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Option configures the services in this package
type Option func(*config)

type config struct {
	stamper *shared.Stamper
	logger  *zap.Logger
}

// WithStamper sets the clock and layouts used for stamps
func WithStamper(s *shared.Stamper) Option {
	return func(c *config) {
		if s != nil {
			c.stamper = s
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func newConfig(opts []Option) config {
	c := config{stamper: shared.NewStamper(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
