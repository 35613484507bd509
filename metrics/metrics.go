package metrics

import (
	"net/http"
	"time"

	"github.com/codexbot/codex/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CommandsExecuted increases after each slash command execution
	CommandsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codex_commands_executed_total",
			Help: "Total number of executed slash commands",
		},
		[]string{"command"},
	)

	// JoinDecisions counts the outcome of the join gate
	JoinDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codex_join_decisions_total",
			Help: "Total number of join gate decisions",
		},
		[]string{"decision"},
	)

	// WhitelistActions counts whitelist mutations by subcommand and result
	WhitelistActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codex_whitelist_actions_total",
			Help: "Total number of whitelist actions",
		},
		[]string{"action", "result"},
	)

	// RoleOperations counts marker role grants and revocations
	RoleOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codex_role_operations_total",
			Help: "Total number of marker role operations",
		},
		[]string{"operation", "result"},
	)

	// CleanupSteps counts executed cleanup steps
	CleanupSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codex_cleanup_steps_total",
			Help: "Total number of cleanup steps by action and result",
		},
		[]string{"action", "result"},
	)

	// CleanupDuration tracks how long a cleanup run takes
	CleanupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "codex_cleanup_duration_seconds",
			Help:    "Cleanup run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// DirectMessages counts DMs by kind and result
	DirectMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codex_direct_messages_total",
			Help: "Total number of direct messages",
		},
		[]string{"kind", "result"},
	)

	// Uptime stores the timestamp of the bot's boot
	Uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "codex_start_time_seconds",
			Help: "Unix timestamp of the bot's boot",
		},
	)
)

// Result maps an error to a result label
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Init serves the metrics on $address
func Init(address string) {
	Uptime.Set(float64(time.Now().Unix()))

	if address == "" {
		return
	}

	cache.GetLogger().WithField("module", "metrics").Info("Listening on " + address)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		err := http.ListenAndServe(address, mux)
		if err != nil {
			cache.GetLogger().WithField("module", "metrics").Error("metrics server stopped: ", err.Error())
		}
	}()
}
