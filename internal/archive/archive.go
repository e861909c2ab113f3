// Package archive periodically exports the activity journal, with the
// dashboard state at export time, as JSONL to one or more destinations.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/lotwatch/internal/clock"
	"github.com/alfredjeanlab/lotwatch/internal/journal"
	"github.com/alfredjeanlab/lotwatch/internal/model"
)

// Destination is the interface for an archive target (S3, git, etc.).
type Destination interface {
	// Write sends the JSONL payload to the destination.
	Write(ctx context.Context, data []byte) error
}

// Source supplies what gets archived. The engine satisfies it.
type Source interface {
	Journal() *journal.Journal
	CurrentState() model.CombinedState
}

// Scheduler runs periodic exports to one or more destinations.
type Scheduler struct {
	source       Source
	destinations []Destination
	interval     time.Duration
	clock        clock.Clock
	logger       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that exports from source to the given
// destinations at the specified interval. A nil clock selects the real one.
func NewScheduler(src Source, destinations []Destination, interval time.Duration, c clock.Clock, logger *slog.Logger) *Scheduler {
	if c == nil {
		c = clock.Real()
	}
	return &Scheduler{
		source:       src,
		destinations: destinations,
		interval:     interval,
		clock:        c,
		logger:       logger,
	}
}

// Start begins periodic export. It runs an initial export immediately, then
// on each tick.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	ticker := s.clock.NewTicker(s.interval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		s.run(ctx, ticker)
	}()
}

// Stop cancels the scheduler and waits for the current export (if any) to
// finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context, ticker *clock.Ticker) {
	s.ExportOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ExportOnce(ctx)
		}
	}
}

// ExportOnce writes one export to every destination. Destination failures
// are logged and do not stop the remaining writes.
func (s *Scheduler) ExportOnce(ctx context.Context) {
	var buf bytes.Buffer
	state := s.source.CurrentState()
	if err := ExportJSONL(s.source.Journal().Entries(), &state, s.clock.Now(), &buf); err != nil {
		s.logger.Error("archive export failed", "err", err)
		return
	}
	data := buf.Bytes()

	for i, dest := range s.destinations {
		if err := dest.Write(ctx, data); err != nil {
			s.logger.Error("archive destination write failed", "destination", fmt.Sprintf("%d", i), "err", err)
		}
	}

	s.logger.Info("archive completed", "destinations", len(s.destinations), "bytes", len(data))
}
