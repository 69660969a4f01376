package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(jobTriggersTotal, sweepRunsTotal, sweepJobsTotal, jobRetriesTotal) }

var jobTriggersTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "job_triggers_total",
		Help: "Total provider submissions attempted, labeled by outcome.",
	},
	[]string{"outcome"}, // 'submitted', 'noop', 'timeout', 'provider_api_error', 'missing_config', 'storage_error'
)

var sweepRunsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "sweep_runs_total",
		Help: "Total cron sweep invocations.",
	},
)

var sweepJobsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "sweep_jobs_total",
		Help: "Jobs handled by the cron sweep, labeled by result.",
	},
	[]string{"result"}, // 'succeeded', 'failed'
)

var jobRetriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "job_retries_total",
		Help: "Retry controller decisions, labeled by decision.",
	},
	[]string{"decision"}, // 'forwarded', 'rejected', 'check_status'
)

func IncTrigger(outcome string) { jobTriggersTotal.WithLabelValues(norm(outcome)).Inc() }

func ObserveSweep(succeeded, failed int) {
	sweepRunsTotal.Inc()
	sweepJobsTotal.WithLabelValues("succeeded").Add(float64(succeeded))
	sweepJobsTotal.WithLabelValues("failed").Add(float64(failed))
}

func IncRetry(decision string) { jobRetriesTotal.WithLabelValues(norm(decision)).Inc() }
