package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func setupTelemetryDisabled(t *testing.T) {
	t.Helper()
	_, err := Init(context.Background(), &Config{Enabled: false, ServiceName: "test-service"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Shutdown(context.Background()) })
}

func TestInstruments_Disabled(t *testing.T) {
	setupTelemetryDisabled(t)
	ctx := context.Background()

	counter, err := NewCounter(MetricOpts{Name: "test_counter", Unit: "1"})
	require.NoError(t, err)
	counter.Add(ctx, 5, EventIDAttr("evt"))
	counter.Inc(ctx)

	histogram, err := NewHistogram(MetricOpts{Name: "test_histogram", Unit: "ms"}, 1, 10, 100)
	require.NoError(t, err)
	histogram.Record(ctx, 42)

	plain, err := NewHistogram(MetricOpts{Name: "test_histogram_plain"})
	require.NoError(t, err)
	plain.Record(ctx, 1.5)

	updown, err := NewUpDownCounter(MetricOpts{Name: "test_updown"})
	require.NoError(t, err)
	updown.Add(ctx, 3)
	updown.Add(ctx, -1)
}

func TestNewRegistrationMetrics_Disabled(t *testing.T) {
	setupTelemetryDisabled(t)

	m, err := NewRegistrationMetrics()
	require.NoError(t, err)
	require.NotNil(t, m)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.Applies.Inc(ctx, OutcomeAttr("CONFIRMED"))
		m.Transitions.Inc(ctx, TransitionAttrs("CONFIRMED", "CANCELED")...)
		m.Promotions.Inc(ctx)
		m.WaitlistSize.Add(ctx, 1)
		m.LockWaitMilli.Record(ctx, 3)
	})
}

func TestAttributeHelpers(t *testing.T) {
	tests := []struct {
		name     string
		got      attribute.KeyValue
		expected attribute.KeyValue
	}{
		{"MethodAttr", MethodAttr("GET"), attribute.String(AttrMethod, "GET")},
		{"PathAttr", PathAttr("/events/:publicId"), attribute.String(AttrPath, "/events/:publicId")},
		{"StatusCodeAttr", StatusCodeAttr(409), attribute.Int(AttrStatusCode, 409)},
		{"ErrorTypeAttr", ErrorTypeAttr("EVENT_FULL"), attribute.String(AttrErrorType, "EVENT_FULL")},
		{"EventIDAttr", EventIDAttr("evt_123"), attribute.String(AttrEventID, "evt_123")},
		{"RegistrationIDAttr", RegistrationIDAttr("reg_1"), attribute.String(AttrRegistrationID, "reg_1")},
		{"UserIDAttr", UserIDAttr(7), attribute.Int64(AttrUserID, 7)},
		{"OutcomeAttr", OutcomeAttr("WAITLISTED"), attribute.String(AttrOutcome, "WAITLISTED")},
		{"ViewTypeAttr", ViewTypeAttr("ADMIN"), attribute.String(AttrViewType, "ADMIN")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected.Key, tt.got.Key)
			assert.Equal(t, tt.expected.Value, tt.got.Value)
		})
	}

	attrs := TransitionAttrs("WAITLISTED", "CONFIRMED")
	require.Len(t, attrs, 2)
	assert.Equal(t, attribute.Key(AttrStatusFrom), attrs[0].Key)
	assert.Equal(t, "CONFIRMED", attrs[1].Value.AsString())
}
