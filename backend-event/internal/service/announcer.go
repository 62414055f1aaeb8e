package service

import (
	"context"
	"time"

	"github.com/wafflestudio/moiming-web/backend-event/internal/domain"
	"github.com/wafflestudio/moiming-web/backend-event/internal/dto"
	"github.com/wafflestudio/moiming-web/pkg/kafka"
	"github.com/wafflestudio/moiming-web/pkg/logger"
	"github.com/wafflestudio/moiming-web/pkg/telemetry"
	"go.uber.org/zap"
)

// announcer reports committed registration changes to Kafka, stream
// subscribers and metrics. Failures are logged; the database stays authoritative.
type announcer struct {
	publisher kafka.Publisher
	notifier  Notifier
	metrics   *telemetry.RegistrationMetrics
}

func newAnnouncer(publisher kafka.Publisher, notifier Notifier, metrics *telemetry.RegistrationMetrics) *announcer {
	if publisher == nil {
		publisher = kafka.NopPublisher{}
	}
	if notifier == nil {
		notifier = NewLocalNotifier()
	}
	return &announcer{publisher: publisher, notifier: notifier, metrics: metrics}
}

func (a *announcer) publish(ctx context.Context, topic string, msg kafka.Message) {
	if err := a.publisher.Publish(ctx, topic, msg); err != nil {
		logger.WithContext(ctx).Warn("failed to publish event",
			zap.String("topic", topic),
			zap.String("key", msg.Key()),
			zap.Error(err),
		)
	}
}

func (a *announcer) notify(ctx context.Context, event *domain.Event, reg *domain.Registration) {
	update := &dto.WaitlistUpdate{
		RegistrationID:   reg.PublicID,
		Status:           reg.Status,
		WaitlistPosition: reg.WaitlistPosition,
		ConfirmedCount:   event.ConfirmedCount,
		WaitlistCount:    event.WaitlistCount,
	}
	if err := a.notifier.Notify(ctx, update); err != nil {
		logger.WithContext(ctx).Warn("failed to notify registration update",
			logger.RegistrationID(reg.PublicID), zap.Error(err))
	}
}

// applied announces a new registration
func (a *announcer) applied(ctx context.Context, event *domain.Event, reg *domain.Registration) {
	a.metrics.Applies.Inc(ctx, telemetry.OutcomeAttr(string(reg.Status)))
	if reg.Status == domain.StatusWaitlisted {
		a.metrics.WaitlistSize.Add(ctx, 1)
	}
	a.publish(ctx, dto.TopicRegistrationApplied, dto.NewRegistrationEvent(dto.TopicRegistrationApplied, event, reg, nil))
	a.notify(ctx, event, reg)
}

// rejected counts a refused apply
func (a *announcer) rejected(ctx context.Context, outcome string) {
	a.metrics.Applies.Inc(ctx, telemetry.OutcomeAttr(outcome))
}

// changed announces every transition and position change in out
func (a *announcer) changed(ctx context.Context, event *domain.Event, out *domain.Outcome) {
	if out == nil {
		return
	}
	byID := make(map[int64]*domain.Registration, len(out.Changed))
	for _, reg := range out.Changed {
		byID[reg.ID] = reg
	}

	for i := range out.Transitions {
		t := out.Transitions[i]
		a.metrics.Transitions.Inc(ctx, telemetry.TransitionAttrs(string(t.From), string(t.To))...)
		if t.From == domain.StatusWaitlisted {
			a.metrics.WaitlistSize.Add(ctx, -1)
		}
		if reg, ok := byID[t.RegistrationID]; ok {
			topic := dto.TopicForTransition(t.To)
			a.publish(ctx, topic, dto.NewRegistrationEvent(topic, event, reg, &t))
		}
	}
	if n := len(out.Promoted); n > 0 {
		a.metrics.Promotions.Add(ctx, int64(n), telemetry.EventIDAttr(event.PublicID))
	}

	for _, reg := range out.Changed {
		a.notify(ctx, event, reg)
	}
}

// deleted announces an event deletion
func (a *announcer) deleted(ctx context.Context, event *domain.Event, affected int, now time.Time) {
	if event.WaitlistCount > 0 {
		a.metrics.WaitlistSize.Add(ctx, -int64(event.WaitlistCount))
	}
	a.publish(ctx, dto.TopicEventDeleted, &dto.EventDeletedEvent{
		EventType:     dto.TopicEventDeleted,
		EventPublicID: event.PublicID,
		HostID:        event.CreatedBy,
		Affected:      affected,
		Timestamp:     now,
	})
}
