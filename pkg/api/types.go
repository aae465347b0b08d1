package api

import (
	"github.com/open-teleop/joyteleop/pkg/processing"
	"github.com/open-teleop/joyteleop/pkg/remote"
	"github.com/open-teleop/joyteleop/pkg/teleop"
)

// --- Dependencies ---

// StatusProvider reports the teleop loop state. *teleop.Loop implements it.
type StatusProvider interface {
	Status() teleop.LoopStatus
}

// SnapshotSubmitter accepts controller snapshots. *teleop.Loop implements it.
type SnapshotSubmitter interface {
	Submit(s teleop.Snapshot) bool
}

// RemoteHistory exposes recorded remote calls. *remote.Dispatcher implements it.
type RemoteHistory interface {
	History() *remote.ResponseLog
	Metrics() processing.PoolMetrics
}

var (
	_ StatusProvider    = (*teleop.Loop)(nil)
	_ SnapshotSubmitter = (*teleop.Loop)(nil)
	_ RemoteHistory     = (*remote.Dispatcher)(nil)
)

// --- Response bodies ---

// RemoteResponses is the body of GET /api/v1/teleop/remote/responses.
type RemoteResponses struct {
	Enabled bool                   `json:"enabled"`
	Entries []remote.Entry         `json:"entries"`
	Metrics processing.PoolMetrics `json:"metrics"`
}
