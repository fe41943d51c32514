// Package metrics exposes Prometheus counters and histograms for the
// ratchet, contacts, and steganography layers, so a compose invocation can
// dump a snapshot of what happened during the run (--metrics-file).
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "steganochat"

// Metrics holds every counter and histogram the ratchet, contacts, and
// stego packages report against.
type Metrics struct {
	MessagesSent     prometheus.Counter
	MessagesReceived prometheus.Counter
	SendErrors       *prometheus.CounterVec
	ReceiveErrors    *prometheus.CounterVec

	GenerationRotations prometheus.Counter

	ContactsInvited  prometheus.Counter
	ContactsAccepted prometheus.Counter
	ContactsNormal   prometheus.Gauge

	ImagesDropped     prometheus.Counter
	EmbedCapacityUsed prometheus.Histogram
	EmbedDuration     prometheus.Histogram
	ExtractDuration   prometheus.Histogram
}

var (
	defaultMetrics *Metrics
	metricsOnce    sync.Once
)

// Default returns the process-wide metrics instance, registered against
// the default Prometheus registry.
func Default() *Metrics {
	metricsOnce.Do(func() {
		defaultMetrics = NewMetrics()
	})
	return defaultMetrics
}

// NewMetrics creates a Metrics instance registered against the default
// Prometheus registerer.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates a Metrics instance registered against
// reg, so tests can use an isolated registry instead of the global one.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		MessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Total number of ratchet messages sent",
		}),
		MessagesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of ratchet messages received",
		}),
		SendErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_errors_total",
			Help:      "Total send failures by reason",
		}, []string{"reason"}),
		ReceiveErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receive_errors_total",
			Help:      "Total receive failures by reason",
		}, []string{"reason"}),

		GenerationRotations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_rotations_total",
			Help:      "Total key generation rotations performed",
		}),

		ContactsInvited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contacts_invited_total",
			Help:      "Total invitations created",
		}),
		ContactsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contacts_accepted_total",
			Help:      "Total invitations accepted",
		}),
		ContactsNormal: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "contacts_normal",
			Help:      "Number of contacts currently in normal status",
		}),

		ImagesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_dropped_total",
			Help:      "Total cover images dropped by precompute for insufficient capacity",
		}),
		EmbedCapacityUsed: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embed_capacity_used_ratio",
			Help:      "Fraction of a cover image's usable capacity consumed by an embed",
			Buckets:   []float64{.1, .25, .5, .75, .9, .95, 1},
		}),
		EmbedDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "embed_duration_seconds",
			Help:      "Histogram of Embed call latency",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}),
		ExtractDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extract_duration_seconds",
			Help:      "Histogram of Extract call latency",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}),
	}
}

// RecordSend records a successful ratchet send.
func (m *Metrics) RecordSend() {
	m.MessagesSent.Inc()
}

// RecordSendError records a failed send by reason.
func (m *Metrics) RecordSendError(reason string) {
	m.SendErrors.WithLabelValues(reason).Inc()
}

// RecordReceive records a successful ratchet receive.
func (m *Metrics) RecordReceive() {
	m.MessagesReceived.Inc()
}

// RecordReceiveError records a failed receive by reason.
func (m *Metrics) RecordReceiveError(reason string) {
	m.ReceiveErrors.WithLabelValues(reason).Inc()
}

// RecordRotation records a generation rotation (new -> crt -> pst).
func (m *Metrics) RecordRotation() {
	m.GenerationRotations.Inc()
}

// RecordInvite records an invitation created.
func (m *Metrics) RecordInvite() {
	m.ContactsInvited.Inc()
}

// RecordInvitationAccepted records an invitation accepted.
func (m *Metrics) RecordInvitationAccepted() {
	m.ContactsAccepted.Inc()
}

// SetContactsNormal sets the current count of normal-status contacts.
func (m *Metrics) SetContactsNormal(count int) {
	m.ContactsNormal.Set(float64(count))
}

// RecordImageDropped records a cover image precompute excluded.
func (m *Metrics) RecordImageDropped() {
	m.ImagesDropped.Inc()
}

// RecordEmbedCapacityUsed records the fraction of usable capacity an
// embed consumed.
func (m *Metrics) RecordEmbedCapacityUsed(ratio float64) {
	m.EmbedCapacityUsed.Observe(ratio)
}

// RecordEmbedDuration records how long an Embed call took.
func (m *Metrics) RecordEmbedDuration(seconds float64) {
	m.EmbedDuration.Observe(seconds)
}

// RecordExtractDuration records how long an Extract call took.
func (m *Metrics) RecordExtractDuration(seconds float64) {
	m.ExtractDuration.Observe(seconds)
}
