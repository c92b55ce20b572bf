package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "taskboard"

// Metrics holds all taskboard metric instruments.
type Metrics struct {
	TasksCreated  metric.Int64Counter
	TasksUpdated  metric.Int64Counter
	TasksDeleted  metric.Int64Counter
	StoreFailures metric.Int64Counter
	ListSize      metric.Int64Histogram
	ListPages     metric.Int64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TasksCreated, err = meter.Int64Counter("taskboard.tasks.created",
		metric.WithDescription("Number of tasks created"))
	if err != nil {
		return nil, err
	}

	m.TasksUpdated, err = meter.Int64Counter("taskboard.tasks.updated",
		metric.WithDescription("Number of tasks updated"))
	if err != nil {
		return nil, err
	}

	m.TasksDeleted, err = meter.Int64Counter("taskboard.tasks.deleted",
		metric.WithDescription("Number of delete calls"))
	if err != nil {
		return nil, err
	}

	m.StoreFailures, err = meter.Int64Counter("taskboard.store.failures",
		metric.WithDescription("Number of failed storage operations"))
	if err != nil {
		return nil, err
	}

	m.ListSize, err = meter.Int64Histogram("taskboard.tasks.list.size",
		metric.WithDescription("Tasks returned per list call"))
	if err != nil {
		return nil, err
	}

	m.ListPages, err = meter.Int64Histogram("taskboard.tasks.list.pages",
		metric.WithDescription("Scan pages read per list call"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
