package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/relabs-tech/hitl_bridge/internal/exchange"
	"github.com/relabs-tech/hitl_bridge/internal/link"
	"github.com/relabs-tech/hitl_bridge/internal/sim"
)

// statusReporter logs a one-line health summary of the bridge.
type statusReporter struct {
	interval time.Duration
	loop     *sim.Stats
	link     *link.Stats
	controls *exchange.Controls
	logger   *slog.Logger
}

func (s *statusReporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("final status", s.attrs()...)
			return ctx.Err()
		case <-ticker.C:
			s.logger.Info("status", s.attrs()...)
		}
	}
}

func (s *statusReporter) attrs() []any {
	ls := s.link.Snapshot()
	source, _ := s.loop.Source.Load().(exchange.ControlSource)
	return []any{
		slog.String("steps", humanize.Comma(int64(s.loop.Steps.Load()))),
		slog.Uint64("faults", s.loop.Faults.Load()),
		slog.Duration("lag", time.Duration(s.loop.Lag.Load()).Round(time.Microsecond)),
		slog.String("control", string(source)),
		slog.Bool("link_active", s.controls.LinkActive()),
		slog.String("tx", humanize.Comma(int64(ls.FramesSent))+" frames/"+humanize.Bytes(ls.BytesSent)),
		slog.String("rx", humanize.Comma(int64(ls.FramesReceived))+" frames/"+humanize.Bytes(ls.BytesReceived)),
		slog.Uint64("rejected", ls.Rejected),
	}
}
