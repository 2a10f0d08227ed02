package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "filecatalog"

	metricLabelHandler = "handler"
	metricLabelStatus  = "status"
	metricLabelSource  = "source"
	metricLabelKind    = "kind"
	metricLabelRemote  = "remote"
)

var (
	// ServiceRequestCounter count the number of requests for each service function
	ServiceRequestCounter = newCounterVec(
		"service_request_count",
		"Count of requests for each handler",
		metricLabelHandler, metricLabelStatus, metricLabelSource,
	)
	// ServiceRequestDuration observe the duration of requests for each service function
	ServiceRequestDuration = newSummaryVec(
		"service_request_duration_seconds",
		"Seconds to unmarshal a request, execute its listing task and marshal the response",
		metricLabelHandler, metricLabelStatus, metricLabelSource,
	)
	// ListingRequestCounter count the total number of listing requests
	ListingRequestCounter = newCounterVec(
		"listing_request_count",
		"Number of listing requests",
		metricLabelSource,
	)
	// TasksCompletedCounter count the number of catalog tasks that completed
	TasksCompletedCounter = newCounterVec(
		"tasks_completed_count",
		"Number of catalog tasks that completed successfully",
		metricLabelKind,
	)
	// TasksFailedCounter count the number of catalog tasks that had an error
	TasksFailedCounter = newCounterVec(
		"tasks_failed_count",
		"Number of catalog tasks that failed due to an error",
		metricLabelKind,
	)
	// TaskDuration observe the duration of each catalog task execution
	TaskDuration = newSummaryVec(
		"task_duration_seconds",
		"Duration in seconds for each catalog task execution",
		metricLabelKind,
	)
	// NumSocketsGauge keep track of the total number of open sockets
	NumSocketsGauge = newGaugeVec(
		"num_sockets_total",
		"Total number of currently open socket connections",
		metricLabelRemote,
	)
	// IndexRefreshFailedCounter count the number of failed attempts to refresh a local fileset index
	IndexRefreshFailedCounter = newCounterVec(
		"index_refresh_failed_count",
		"Number of failures to refresh the local fileset index",
	)
)

func newSummaryVec(name, help string, labels ...string) *prometheus.SummaryVec {
	vec := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}

func newCounterVec(name, help string, labels ...string) *prometheus.CounterVec {
	vec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}

func newGaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	vec := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, labels)
	prometheus.MustRegister(vec)
	return vec
}
