package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/mezonai/mnlight/logx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HeaderRejectedReason string

var (
	HeaderMalformed       HeaderRejectedReason = "malformed"
	HeaderBadTarget       HeaderRejectedReason = "bad_target"
	HeaderBadProofOfWork  HeaderRejectedReason = "bad_proof_of_work"
	HeaderTimeTooNew      HeaderRejectedReason = "time_too_new"
	HeaderBadDifficulty   HeaderRejectedReason = "bad_difficulty"
	HeaderBadGenesis      HeaderRejectedReason = "bad_genesis"
	HeaderCheckpoint      HeaderRejectedReason = "checkpoint_violation"
	HeaderOrphan          HeaderRejectedReason = "orphan"
	HeaderRejectedUnknown HeaderRejectedReason = "other"
)

type nodePromMetrics struct {
	nodeUpUnixSeconds   prometheus.Gauge
	bestHeight          prometheus.Gauge
	acceptedHeaders     *prometheus.CounterVec
	rejectedHeaders     *prometheus.CounterVec
	reorgCount          prometheus.Counter
	reorgDepth          prometheus.Histogram
	orphanPoolSize      prometheus.Gauge
	orphansEvicted      prometheus.Counter
	masternodeListSize  prometheus.Gauge
	masternodeValid     prometheus.Gauge
	masternodeHeight    prometheus.Gauge
	commitmentMismatch  prometheus.Counter
	listenerErrors      prometheus.Counter
	droppedEvents       prometheus.Counter
	snapshotSaveSeconds prometheus.Histogram
	panicCount          prometheus.Counter
}

func newNodePromMetrics() *nodePromMetrics {
	return &nodePromMetrics{
		nodeUpUnixSeconds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mnlight_up_timestamp_unix_seconds",
				Help: "Unix timestamp of the process start",
			},
		),
		bestHeight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mnlight_best_height",
				Help: "Height of the best known header chain",
			},
		),
		acceptedHeaders: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mnlight_accepted_headers_total",
				Help: "The total number of accepted headers by outcome",
			},
			[]string{"status"},
		),
		rejectedHeaders: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mnlight_rejected_headers_total",
				Help: "The total number of rejected headers",
			},
			[]string{"reason"},
		),
		reorgCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mnlight_reorg_total",
				Help: "The total number of chain reorganizations",
			},
		),
		reorgDepth: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mnlight_reorg_depth",
				Help:    "Number of blocks disconnected per reorganization",
				Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 50, 100},
			},
		),
		orphanPoolSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mnlight_orphan_pool_size",
				Help: "Headers held while waiting for their parent",
			},
		),
		orphansEvicted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mnlight_orphans_evicted_total",
				Help: "Held orphan headers dropped because the pool was full",
			},
		),
		masternodeListSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mnlight_masternode_list_size",
				Help: "Entries in the current masternode list",
			},
		),
		masternodeValid: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mnlight_masternode_valid_count",
				Help: "Valid entries in the current masternode list",
			},
		),
		masternodeHeight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mnlight_masternode_list_height",
				Help: "Height of the current masternode list",
			},
		),
		commitmentMismatch: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mnlight_commitment_mismatch_total",
				Help: "Masternode list updates rejected because the root did not match the header",
			},
		),
		listenerErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mnlight_listener_errors_total",
				Help: "Errors returned by block connect/disconnect listeners",
			},
		),
		droppedEvents: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mnlight_dropped_events_total",
				Help: "Events dropped because a subscriber channel was full",
			},
		),
		snapshotSaveSeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "mnlight_snapshot_save_seconds",
				Help: "Duration of masternode list snapshot writes",
			},
		),
		panicCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mnlight_panic_total",
				Help: "Recovered panics in background goroutines",
			},
		),
	}
}

var (
	nodeMetrics *nodePromMetrics
	initOnce    sync.Once
)

// InitMetrics registers the collectors. Recording before InitMetrics is a no-op.
func InitMetrics() {
	initOnce.Do(func() {
		m := newNodePromMetrics()
		m.nodeUpUnixSeconds.SetToCurrentTime()
		nodeMetrics = m
	})
}

func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("MONITORING", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.Handler())
}

func SetBestHeight(height uint32) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.bestHeight.Set(float64(height))
}

func RecordAcceptedHeader(status string) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.acceptedHeaders.With(prometheus.Labels{"status": status}).Inc()
}

func RecordRejectedHeader(reason HeaderRejectedReason) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.rejectedHeaders.With(prometheus.Labels{"reason": string(reason)}).Inc()
}

func RecordReorg(depth int) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.reorgCount.Inc()
	nodeMetrics.reorgDepth.Observe(float64(depth))
}

func SetOrphanPoolSize(size int) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.orphanPoolSize.Set(float64(size))
}

func IncreaseOrphansEvicted() {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.orphansEvicted.Inc()
}

func SetMasternodeList(height uint32, size, valid int) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.masternodeHeight.Set(float64(height))
	nodeMetrics.masternodeListSize.Set(float64(size))
	nodeMetrics.masternodeValid.Set(float64(valid))
}

func IncreaseCommitmentMismatch() {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.commitmentMismatch.Inc()
}

func IncreaseListenerErrors() {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.listenerErrors.Inc()
}

func IncreaseDroppedEvents() {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.droppedEvents.Inc()
}

func RecordSnapshotSave(duration time.Duration) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.snapshotSaveSeconds.Observe(duration.Seconds())
}

func IncreasePanicCount() {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.panicCount.Inc()
}
