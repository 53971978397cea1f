package pool

import "github.com/prometheus/client_golang/prometheus"

var (
	tasksDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conveyor_pool_tasks_dispatched_total",
			Help: "Total number of tasks accepted by Dispatch.",
		},
		[]string{"pool"},
	)

	tasksRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conveyor_pool_tasks_rejected_total",
			Help: "Total number of dispatches rejected because the pool had stopped.",
		},
		[]string{"pool"},
	)

	tasksExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conveyor_pool_tasks_executed_total",
			Help: "Total number of tasks that ran to completion.",
		},
		[]string{"pool"},
	)

	taskPanics = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conveyor_pool_task_panics_total",
			Help: "Total number of tasks that panicked during execution.",
		},
		[]string{"pool"},
	)

	queueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "conveyor_pool_queue_depth",
			Help: "Current number of pending tasks in each worker queue.",
		},
		[]string{"pool", "queue"},
	)
)

func init() {
	prometheus.MustRegister(tasksDispatched)
	prometheus.MustRegister(tasksRejected)
	prometheus.MustRegister(tasksExecuted)
	prometheus.MustRegister(taskPanics)
	prometheus.MustRegister(queueDepth)
}
