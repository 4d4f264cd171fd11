// Package api serves the watcher's health, stats and metrics endpoints.
package api

import (
	"net/http"
	"time"

	"github.com/ignite/seatwatch/internal/catalog"
	"github.com/ignite/seatwatch/internal/pkg/httputil"
	"github.com/ignite/seatwatch/internal/worker"
)

// PollerStatus is the read-only view of the poll loop used by the API.
type PollerStatus interface {
	IsRunning() bool
	Stats() map[string]int64
	LastCycle() *worker.CycleSummary
	LastSuccess() time.Time
	Snapshot() *catalog.Snapshot
}

type snapshotView struct {
	Term     string    `json:"term"`
	Window   int       `json:"window"`
	Codes    int       `json:"codes"`
	Chunks   int       `json:"chunks"`
	Cached   bool      `json:"cached"`
	LoadedAt time.Time `json:"loaded_at"`
}

type statsResponse struct {
	Running   bool                 `json:"running"`
	Stats     map[string]int64     `json:"stats"`
	LastCycle *worker.CycleSummary `json:"last_cycle,omitempty"`
	Catalog   *snapshotView        `json:"catalog,omitempty"`
}

// Handlers serves the stats endpoints.
type Handlers struct {
	poller PollerStatus
}

// NewHandlers creates the stats handlers.
func NewHandlers(poller PollerStatus) *Handlers {
	return &Handlers{poller: poller}
}

// HandleStats returns cumulative poller counters, the last cycle and the
// catalog snapshot shape.
//
//	GET /stats
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	if h.poller == nil {
		httputil.Unavailable(w, "watcher not running")
		return
	}

	resp := statsResponse{
		Running:   h.poller.IsRunning(),
		Stats:     h.poller.Stats(),
		LastCycle: h.poller.LastCycle(),
	}
	if snap := h.poller.Snapshot(); snap != nil {
		resp.Catalog = &snapshotView{
			Term:     snap.Term,
			Window:   snap.Window,
			Codes:    len(snap.Codes),
			Chunks:   len(snap.Chunks),
			Cached:   snap.Cached,
			LoadedAt: snap.LoadedAt,
		}
	}
	httputil.OK(w, resp)
}

// HandleChunks lists the catalog chunks with their query expressions.
//
//	GET /stats/chunks
func (h *Handlers) HandleChunks(w http.ResponseWriter, r *http.Request) {
	if h.poller == nil || h.poller.Snapshot() == nil {
		httputil.Unavailable(w, "catalog not loaded")
		return
	}

	type chunkView struct {
		First string `json:"first"`
		Last  string `json:"last"`
		Codes int    `json:"codes"`
		Query string `json:"query"`
	}
	chunks := h.poller.Snapshot().Chunks
	out := make([]chunkView, len(chunks))
	for i, c := range chunks {
		out[i] = chunkView{First: c.First().String(), Last: c.Last().String(), Codes: c.Len(), Query: c.QueryParam()}
	}
	httputil.OK(w, out)
}
