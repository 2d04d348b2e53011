package api

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tasksSpanName    = "api.tasks.list"
	tasksEventName   = "tasks.list"
	tasksEventDomain = "board"
	tracerName       = "github.com/ellevenagent/project-dashboard/api"
)

// taskRequestMetrics captures one GET /api/tasks request as an otel span
// plus a structured observability event logged through logrus.
type taskRequestMetrics struct {
	logger         *log.Logger
	span           trace.Span
	start          time.Time
	fetchDuration  time.Duration
	encodeDuration time.Duration
	tasksReturned  int
	source         string
	errorStage     string
}

func newTaskRequestMetrics(ctx context.Context, logger *log.Logger) (*taskRequestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, tasksSpanName)
	m := &taskRequestMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
	}
	return m, spanCtx
}

func (m *taskRequestMetrics) ObserveFetch(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.fetchDuration = duration
}

func (m *taskRequestMetrics) ObserveEncode(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.encodeDuration = duration
}

func (m *taskRequestMetrics) SetTasksReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.tasksReturned = count
}

func (m *taskRequestMetrics) SetSource(source string) {
	m.source = source
}

func (m *taskRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log finalizes the span and emits the observability event. Call exactly
// once, after the response is written.
func (m *taskRequestMetrics) Log(status int, err error) {
	if m == nil || m.logger == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("http.route", "/api/tasks"),
		attribute.Int("http.status_code", status),
		attribute.Float64("board.tasks.total_ms", durationToMillis(time.Since(m.start))),
		attribute.Int("board.tasks.tasks_returned", m.tasksReturned),
	}
	if m.fetchDuration > 0 {
		attrs = append(attrs, attribute.Float64("board.tasks.fetch_ms", durationToMillis(m.fetchDuration)))
	}
	if m.encodeDuration > 0 {
		attrs = append(attrs, attribute.Float64("board.tasks.encode_ms", durationToMillis(m.encodeDuration)))
	}
	if m.source != "" {
		attrs = append(attrs, attribute.String("board.tasks.source", m.source))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("board.tasks.error_stage", m.errorStage))
	}

	severityText, severityNumber := severityForStatus(status, err)

	eventAttrs := append([]attribute.KeyValue{
		attribute.String("event.name", tasksEventName),
		attribute.String("event.domain", tasksEventDomain),
		attribute.String("severity_text", severityText),
		attribute.Int("severity_number", severityNumber),
	}, attrs...)
	if err != nil {
		eventAttrs = append(eventAttrs, attribute.String("error.message", err.Error()))
	}

	if m.span != nil {
		m.span.SetAttributes(attrs...)
		m.span.AddEvent("observability.event", trace.WithAttributes(eventAttrs...))
		if err != nil {
			m.span.SetStatus(codes.Error, err.Error())
		} else if severityText == "ERROR" {
			m.span.SetStatus(codes.Error, "request failed")
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	fieldAttrs := map[string]any{
		"http.route":                 "/api/tasks",
		"http.status_code":           status,
		"board.tasks.total_ms":       durationToMillis(time.Since(m.start)),
		"board.tasks.tasks_returned": m.tasksReturned,
	}
	if m.fetchDuration > 0 {
		fieldAttrs["board.tasks.fetch_ms"] = durationToMillis(m.fetchDuration)
	}
	if m.encodeDuration > 0 {
		fieldAttrs["board.tasks.encode_ms"] = durationToMillis(m.encodeDuration)
	}
	if m.source != "" {
		fieldAttrs["board.tasks.source"] = m.source
	}
	if m.errorStage != "" {
		fieldAttrs["board.tasks.error_stage"] = m.errorStage
	}

	fields := log.Fields{
		"event.name":      tasksEventName,
		"event.domain":    tasksEventDomain,
		"attributes":      fieldAttrs,
		"severity_text":   severityText,
		"severity_number": severityNumber,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
	}

	m.logger.WithFields(fields).Info("observability.event")
}

func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= 500:
		return "ERROR", 17
	case status >= 400:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
