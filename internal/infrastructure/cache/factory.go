package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/config"
	"go.uber.org/zap"
)

// ConfirmationCounter counts repeated clicks per key inside a fixed window
type ConfirmationCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int, time.Duration, error)
	Reset(ctx context.Context, key string) error
	Close() error
}

// CounterFactory creates confirmation counters based on configuration
type CounterFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// CounterFactoryOption is a functional option for configuring the factory
type CounterFactoryOption func(*CounterFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) CounterFactoryOption {
	return func(f *CounterFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory counter
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) CounterFactoryOption {
	return func(f *CounterFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewCounterFactory creates a new factory
func NewCounterFactory(cfg config.RedisConfig, opts ...CounterFactoryOption) *CounterFactory {
	f := &CounterFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCounter creates a Redis-backed counter
func (f *CounterFactory) CreateRedisCounter() (ConfirmationCounter, error) {
	counter, err := NewRedisConfirmationCounter(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis confirmation counter: %w", err)
	}
	return counter, nil
}

// CreateInMemoryCounter creates a process-local counter.
// Clicks spread over several instances are not summed.
func (f *CounterFactory) CreateInMemoryCounter() ConfirmationCounter {
	return NewInMemoryConfirmationCounter()
}

// CreateCounter tries Redis first and falls back to the in-memory counter
// when allowed
func (f *CounterFactory) CreateCounter() (ConfirmationCounter, error) {
	if f.redisConfig.Host != "" {
		counter, err := f.CreateRedisCounter()
		if err == nil {
			f.logger.Info("using Redis confirmation counter")
			return counter, nil
		}
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("Redis required for delete confirmations but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory confirmation counter. "+
			"Delete confirmations will not be shared between instances.",
			zap.Error(err),
		)
	} else if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for delete confirmations but no host is configured")
	}

	return f.CreateInMemoryCounter(), nil
}
