package usecase

import (
	"sync/atomic"

	"github.com/user/sitewatch-service/pkg/metrics"
)

// MonitoringState is the global on/off switch for site checks. It is owned
// by the scheduler and shared with the checker and the API; the scheduler
// loop keeps running while monitoring is off.
type MonitoringState struct {
	enabled atomic.Bool
}

func NewMonitoringState(enabled bool) *MonitoringState {
	m := &MonitoringState{}
	m.set(enabled)
	return m
}

func (m *MonitoringState) Enable()  { m.set(true) }
func (m *MonitoringState) Disable() { m.set(false) }

func (m *MonitoringState) Enabled() bool {
	return m.enabled.Load()
}

func (m *MonitoringState) set(v bool) {
	m.enabled.Store(v)
	if v {
		metrics.MonitoringEnabled.Set(1)
	} else {
		metrics.MonitoringEnabled.Set(0)
	}
}
