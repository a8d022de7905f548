package bets

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper drives the engine's expiry sweep on a fixed interval.
type Sweeper struct {
	engine   *Engine
	interval time.Duration
	log      *zap.Logger
	stop     chan struct{}
}

// NewSweeper creates a sweeper that ticks every interval.
func NewSweeper(engine *Engine, interval time.Duration, log *zap.Logger) *Sweeper {
	return &Sweeper{
		engine:   engine,
		interval: interval,
		log:      log,
		stop:     make(chan struct{}),
	}
}

// Start begins the sweep loop in a goroutine.
func (s *Sweeper) Start() {
	s.log.Info("starting expiry sweep", zap.Duration("interval", s.interval))
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.engine.Sweep(context.Background(), time.Now())
			case <-s.stop:
				s.log.Info("expiry sweep stopped")
				return
			}
		}
	}()
}

// Stop halts the sweep loop.
func (s *Sweeper) Stop() {
	close(s.stop)
}
