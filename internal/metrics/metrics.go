// Package metrics exposes Prometheus counters and gauges for the canvas
// history engine: message throughput, byte accounting, resets, bans,
// invites, and thumbnail handshakes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every metric the history engine reports. A single
// Registry is shared across all sessions; each metric is labeled by
// session id where that distinction is useful.
type Registry struct {
	MessagesAppended *prometheus.CounterVec
	BytesAppended    *prometheus.CounterVec
	HistorySize      *prometheus.GaugeVec

	Resets          *prometheus.CounterVec
	ResetStreamOpen *prometheus.GaugeVec

	BansAdded   *prometheus.CounterVec
	BansRemoved *prometheus.CounterVec

	InvitesCreated *prometheus.CounterVec
	InvitesUsed    *prometheus.CounterVec
	InvitesActive  *prometheus.GaugeVec

	ThumbnailsGenerated *prometheus.CounterVec
}

// New registers and returns a Registry against reg. Pass
// prometheus.DefaultRegisterer for the global registry.
func New(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		MessagesAppended: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "canvasd",
			Subsystem: "history",
			Name:      "messages_appended_total",
			Help:      "Number of messages appended to a session's history log.",
		}, []string{"session_id"}),

		BytesAppended: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "canvasd",
			Subsystem: "history",
			Name:      "bytes_appended_total",
			Help:      "Number of payload bytes appended to a session's history log.",
		}, []string{"session_id"}),

		HistorySize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "canvasd",
			Subsystem: "history",
			Name:      "size_bytes",
			Help:      "Current size in bytes of a session's history log.",
		}, []string{"session_id"}),

		Resets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "canvasd",
			Subsystem: "history",
			Name:      "resets_total",
			Help:      "Number of times a session's history was reset, labeled by trigger.",
		}, []string{"session_id", "trigger"}),

		ResetStreamOpen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "canvasd",
			Subsystem: "history",
			Name:      "reset_stream_open",
			Help:      "1 while a session has an in-progress streamed reset, 0 otherwise.",
		}, []string{"session_id"}),

		BansAdded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "canvasd",
			Subsystem: "bans",
			Name:      "added_total",
			Help:      "Number of bans added, per session.",
		}, []string{"session_id"}),

		BansRemoved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "canvasd",
			Subsystem: "bans",
			Name:      "removed_total",
			Help:      "Number of bans removed, per session.",
		}, []string{"session_id"}),

		InvitesCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "canvasd",
			Subsystem: "invites",
			Name:      "created_total",
			Help:      "Number of invites created, per session.",
		}, []string{"session_id"}),

		InvitesUsed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "canvasd",
			Subsystem: "invites",
			Name:      "used_total",
			Help:      "Number of successful invite checks that recorded a use, per session.",
		}, []string{"session_id"}),

		InvitesActive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "canvasd",
			Subsystem: "invites",
			Name:      "active",
			Help:      "Number of outstanding invites, per session.",
		}, []string{"session_id"}),

		ThumbnailsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "canvasd",
			Subsystem: "thumbnail",
			Name:      "generated_total",
			Help:      "Number of thumbnail generation handshakes completed, per session.",
		}, []string{"session_id"}),
	}
}
