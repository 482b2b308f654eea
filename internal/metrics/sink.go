// Package metrics defines the injected sink for per-request counters.
// Request metrics are deliberately not process-wide mutable state; the
// server owns one sink and hands it to the middleware that records into it.
package metrics

import "go.uber.org/zap"

// Sink receives request events.
type Sink interface {
	// RecordRequest counts one handled request for a principal. subjectID is
	// empty for unauthenticated requests.
	RecordRequest(subjectID, method, route string, statusCode int)
}

// NopSink discards all events.
type NopSink struct{}

// RecordRequest implements Sink.
func (NopSink) RecordRequest(string, string, string, int) {}

// LogSink emits request events as structured debug logs, for deployments
// that scrape metrics off the log stream.
type LogSink struct {
	log *zap.Logger
}

// NewLogSink creates a log-backed sink.
func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

// RecordRequest implements Sink.
func (s *LogSink) RecordRequest(subjectID, method, route string, statusCode int) {
	s.log.Debug("request_metric",
		zap.String("subject_id", subjectID),
		zap.String("method", method),
		zap.String("route", route),
		zap.Int("status_code", statusCode),
	)
}
