package timerservice

import (
	"github.com/davidvella/timerstate/metrics"
	"go.uber.org/zap"
)

// options defines all configuration options for the service.
type options struct {
	name    string             // Name used in logs
	logger  *zap.Logger        // Structured logger
	metrics *metrics.Collector // Optional metrics sink
}

// Option is a function that configures the service options.
type Option func(*options)

// WithName sets the name of the timer service.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) {
		o.metrics = c
	}
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		name:   "timers",
		logger: zap.NewNop(),
	}
}
