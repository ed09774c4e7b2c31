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

// PATCH /api/tasks/:id is the board's critical path, so it carries per-stage
// timings emitted both as a span and as a structured log event.
const (
	moveSpanName    = "tasks.move"
	moveEventName   = "tasks.move.metrics"
	moveEventDomain = "trellis"
	moveRoute       = "/api/tasks/:id"
)

const (
	severityInfo        = "INFO"
	severityInfoNumber  = 9
	severityError       = "ERROR"
	severityErrorNumber = 17
)

type moveRequestMetrics struct {
	logger         *log.Logger
	span           trace.Span
	start          time.Time
	authDuration   time.Duration
	updateDuration time.Duration
	encodeDuration time.Duration
	targetStatus   string
	errorStage     string
}

func newMoveRequestMetrics(ctx context.Context, logger *log.Logger) (*moveRequestMetrics, context.Context) {
	spanCtx, span := otel.Tracer("trellis-api").Start(ctx, moveSpanName)
	return &moveRequestMetrics{logger: logger, span: span, start: time.Now()}, spanCtx
}

func (m *moveRequestMetrics) ObserveAuth(d time.Duration) {
	if d > 0 {
		m.authDuration = d
	}
}

func (m *moveRequestMetrics) ObserveUpdate(d time.Duration) {
	if d > 0 {
		m.updateDuration = d
	}
}

func (m *moveRequestMetrics) ObserveEncode(d time.Duration) {
	if d > 0 {
		m.encodeDuration = d
	}
}

func (m *moveRequestMetrics) SetTargetStatus(status string) {
	m.targetStatus = status
}

func (m *moveRequestMetrics) SetErrorStage(stage string) {
	if stage != "" {
		m.errorStage = stage
	}
}

// Log finalizes the span and emits one observability event.
func (m *moveRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	attrs := map[string]any{
		"http.route":            moveRoute,
		"http.status_code":      status,
		"trellis.move.total_ms": durationToMillis(time.Since(m.start)),
	}
	if m.authDuration > 0 {
		attrs["trellis.move.auth_ms"] = durationToMillis(m.authDuration)
	}
	if m.updateDuration > 0 {
		attrs["trellis.move.update_ms"] = durationToMillis(m.updateDuration)
	}
	if m.encodeDuration > 0 {
		attrs["trellis.move.encode_ms"] = durationToMillis(m.encodeDuration)
	}
	if m.targetStatus != "" {
		attrs["trellis.move.target_status"] = m.targetStatus
	}
	if m.errorStage != "" {
		attrs["trellis.move.error_stage"] = m.errorStage
	}

	if m.span != nil {
		spanAttrs := []attribute.KeyValue{
			attribute.String("http.route", moveRoute),
			attribute.Int("http.status_code", status),
		}
		if m.targetStatus != "" {
			spanAttrs = append(spanAttrs, attribute.String("trellis.move.target_status", m.targetStatus))
		}
		if m.errorStage != "" {
			spanAttrs = append(spanAttrs, attribute.String("trellis.move.error_stage", m.errorStage))
		}
		m.span.SetAttributes(spanAttrs...)
		m.span.AddEvent("observability.event")
		if err != nil {
			m.span.RecordError(err)
			m.span.SetStatus(codes.Error, err.Error())
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"event.name":   moveEventName,
		"event.domain": moveEventDomain,
		"attributes":   attrs,
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
	}
	if err != nil {
		fields["severity_text"] = severityError
		fields["severity_number"] = severityErrorNumber
		fields["error"] = err.Error()
		m.logger.WithFields(fields).Error("observability.event")
		return
	}
	fields["severity_text"] = severityInfo
	fields["severity_number"] = severityInfoNumber
	m.logger.WithFields(fields).Info("observability.event")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
