package session

import "time"

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordTransition(string, string, string)       {}
func (n *NoopMetricsCollector) RecordRejection(string, string)                {}
func (n *NoopMetricsCollector) RecordOperationDuration(string, time.Duration) {}
func (n *NoopMetricsCollector) RecordSettlement(float64, bool)                {}
