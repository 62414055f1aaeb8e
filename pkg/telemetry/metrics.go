package telemetry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricOpts holds options for creating metrics
type MetricOpts struct {
	Name        string
	Description string
	Unit        string
}

// Counter wraps an OTel counter
type Counter struct {
	counter metric.Int64Counter
}

// NewCounter creates a new counter metric
func NewCounter(opts MetricOpts) (*Counter, error) {
	counter, err := GetMeter().Int64Counter(
		opts.Name,
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	)
	if err != nil {
		return nil, err
	}
	return &Counter{counter: counter}, nil
}

// Add increments the counter by the given value
func (c *Counter) Add(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

// Inc increments the counter by 1
func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// Histogram wraps an OTel float histogram
type Histogram struct {
	histogram metric.Float64Histogram
}

// NewHistogram creates a histogram, optionally with explicit bucket boundaries
func NewHistogram(opts MetricOpts, boundaries ...float64) (*Histogram, error) {
	options := []metric.Float64HistogramOption{
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	}
	if len(boundaries) > 0 {
		options = append(options, metric.WithExplicitBucketBoundaries(boundaries...))
	}

	histogram, err := GetMeter().Float64Histogram(opts.Name, options...)
	if err != nil {
		return nil, err
	}
	return &Histogram{histogram: histogram}, nil
}

// Record records a value in the histogram
func (h *Histogram) Record(ctx context.Context, value float64, attrs ...attribute.KeyValue) {
	h.histogram.Record(ctx, value, metric.WithAttributes(attrs...))
}

// UpDownCounter wraps an OTel up-down counter
type UpDownCounter struct {
	counter metric.Int64UpDownCounter
}

// NewUpDownCounter creates a new up-down counter metric
func NewUpDownCounter(opts MetricOpts) (*UpDownCounter, error) {
	counter, err := GetMeter().Int64UpDownCounter(
		opts.Name,
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	)
	if err != nil {
		return nil, err
	}
	return &UpDownCounter{counter: counter}, nil
}

// Add adds the given value to the counter (can be negative)
func (c *UpDownCounter) Add(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

// RegistrationMetrics groups the instruments the registration flow records
type RegistrationMetrics struct {
	Applies       *Counter
	Transitions   *Counter
	Promotions    *Counter
	WaitlistSize  *UpDownCounter
	LockWaitMilli *Histogram
}

// NewRegistrationMetrics creates every registration instrument from the global meter
func NewRegistrationMetrics() (*RegistrationMetrics, error) {
	applies, err1 := NewCounter(MetricOpts{
		Name:        "moiming.registration.applies",
		Description: "Apply attempts by outcome",
		Unit:        "{request}",
	})
	transitions, err2 := NewCounter(MetricOpts{
		Name:        "moiming.registration.transitions",
		Description: "Registration status transitions",
		Unit:        "{transition}",
	})
	promotions, err3 := NewCounter(MetricOpts{
		Name:        "moiming.registration.promotions",
		Description: "Waitlisted registrations promoted to confirmed",
		Unit:        "{registration}",
	})
	waitlist, err4 := NewUpDownCounter(MetricOpts{
		Name:        "moiming.registration.waitlist_size",
		Description: "Registrations currently waitlisted",
		Unit:        "{registration}",
	})
	lockWait, err5 := NewHistogram(MetricOpts{
		Name:        "moiming.registration.lock_wait",
		Description: "Time spent waiting for the per-event lock",
		Unit:        "ms",
	}, 1, 5, 10, 25, 50, 100, 250, 500, 1000)

	if err := errors.Join(err1, err2, err3, err4, err5); err != nil {
		return nil, err
	}

	return &RegistrationMetrics{
		Applies:       applies,
		Transitions:   transitions,
		Promotions:    promotions,
		WaitlistSize:  waitlist,
		LockWaitMilli: lockWait,
	}, nil
}

// Common attribute keys
const (
	AttrMethod         = "http.method"
	AttrPath           = "http.path"
	AttrStatusCode     = "http.status_code"
	AttrErrorType      = "error.type"
	AttrEventID        = "event.id"
	AttrRegistrationID = "registration.id"
	AttrUserID         = "user.id"
	AttrOutcome        = "registration.outcome"
	AttrStatusFrom     = "registration.status_from"
	AttrStatusTo       = "registration.status_to"
	AttrViewType       = "event.view_type"
)

func MethodAttr(method string) attribute.KeyValue {
	return attribute.String(AttrMethod, method)
}

func PathAttr(path string) attribute.KeyValue {
	return attribute.String(AttrPath, path)
}

func StatusCodeAttr(code int) attribute.KeyValue {
	return attribute.Int(AttrStatusCode, code)
}

func ErrorTypeAttr(errType string) attribute.KeyValue {
	return attribute.String(AttrErrorType, errType)
}

func EventIDAttr(eventID string) attribute.KeyValue {
	return attribute.String(AttrEventID, eventID)
}

func RegistrationIDAttr(id string) attribute.KeyValue {
	return attribute.String(AttrRegistrationID, id)
}

func UserIDAttr(userID int64) attribute.KeyValue {
	return attribute.Int64(AttrUserID, userID)
}

func OutcomeAttr(outcome string) attribute.KeyValue {
	return attribute.String(AttrOutcome, outcome)
}

func TransitionAttrs(from, to string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrStatusFrom, from),
		attribute.String(AttrStatusTo, to),
	}
}

func ViewTypeAttr(viewType string) attribute.KeyValue {
	return attribute.String(AttrViewType, viewType)
}
