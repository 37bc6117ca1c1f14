package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Vault metrics
	// ============================================
	VaultTotalValueLocked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hedgevault_vault_total_value_locked",
		Help: "Aggregate value locked in the proxy vault",
	})

	VaultTotalProxies = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hedgevault_vault_total_proxies",
		Help: "Number of proxy bindings created",
	})

	VaultOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hedgevault_vault_operations_total",
			Help: "Total vault operations processed successfully",
		},
		[]string{"operation"},
	)

	VaultOperationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hedgevault_vault_operation_failures_total",
			Help: "Total vault operations rejected",
		},
		[]string{"operation", "reason"},
	)

	PendingWithdrawals = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hedgevault_vault_pending_withdrawals",
		Help: "Time-locked withdrawals currently pending",
	})

	// ============================================
	// Hedge registry metrics
	// ============================================
	HedgeCommitmentsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hedgevault_hedge_commitments_stored_total",
		Help: "Total hedge commitments stored",
	})

	HedgeCommitmentsSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hedgevault_hedge_commitments_settled_total",
		Help: "Total hedge commitments settled",
	})

	HedgeOperationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hedgevault_hedge_operation_failures_total",
			Help: "Total hedge registry operations rejected",
		},
		[]string{"operation", "reason"},
	)

	HedgePendingCommitments = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hedgevault_hedge_pending_commitments",
		Help: "Commitments queued for the next batch",
	})

	BatchesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hedgevault_hedge_batches_created_total",
		Help: "Total batches formed",
	})

	BatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hedgevault_hedge_batch_size",
		Help:    "Number of commitments per formed batch",
		Buckets: []float64{1, 5, 10, 25, 50, 75, 100},
	})

	// ============================================
	// Notification pipeline metrics
	// ============================================
	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hedgevault_notifications_published_total",
			Help: "Notifications delivered to observers",
		},
		[]string{"kind"},
	)

	NotificationPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hedgevault_notification_publish_failures_total",
			Help: "Notification deliveries that failed",
		},
		[]string{"kind"},
	)

	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hedgevault_websocket_clients",
		Help: "Connected websocket observers",
	})
)
