package pipeline

import (
	"fleet-sentinel/internal/domain"
	"fleet-sentinel/internal/metrics"
)

// Dispatcher fans each accepted telemetry message out to the batching DB
// writer and the Redis state writer. Full channels drop rather than block
// the ingest path.
type Dispatcher struct {
	DBChan    chan *domain.TelemetryMessage
	StateChan chan *domain.TelemetryMessage
}

func NewDispatcher(dbSize, stateSize int) *Dispatcher {
	return &Dispatcher{
		DBChan:    make(chan *domain.TelemetryMessage, dbSize),
		StateChan: make(chan *domain.TelemetryMessage, stateSize),
	}
}

func (d *Dispatcher) Dispatch(msg *domain.TelemetryMessage) {
	select {
	case d.DBChan <- msg:
	default:
		metrics.DBChannelDrops.Add(1)
	}

	select {
	case d.StateChan <- msg:
	default:
		metrics.StateChannelDrops.Add(1)
	}
}
