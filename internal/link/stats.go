package link

import "sync/atomic"

// Stats counts link traffic. Safe for concurrent use.
type Stats struct {
	FramesSent     atomic.Uint64
	BytesSent      atomic.Uint64
	FramesReceived atomic.Uint64
	BytesReceived  atomic.Uint64
	Rejected       atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	FramesSent     uint64
	BytesSent      uint64
	FramesReceived uint64
	BytesReceived  uint64
	Rejected       uint64
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		FramesSent:     s.FramesSent.Load(),
		BytesSent:      s.BytesSent.Load(),
		FramesReceived: s.FramesReceived.Load(),
		BytesReceived:  s.BytesReceived.Load(),
		Rejected:       s.Rejected.Load(),
	}
}
