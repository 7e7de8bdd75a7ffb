package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/dropout-watch-api/internal/dto"
	"github.com/noah-isme/dropout-watch-api/internal/models"
	"github.com/noah-isme/dropout-watch-api/internal/observability"
	"github.com/noah-isme/dropout-watch-api/internal/repository"
	"github.com/noah-isme/dropout-watch-api/internal/risk"
)

const (
	notificationBufferSize = 16
	defaultChannel         = "app"

	// EventNotificationSent is pushed after a simulated send.
	EventNotificationSent = "notification.sent"
	// EventNotificationRead is pushed after an alert is marked read.
	EventNotificationRead = "notification.read"
)

// ErrNotificationNotFound indicates no current alert carries the requested id.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService derives alerts from student metrics, simulates sends and
// streams delivery events to websocket subscribers.
type NotificationService interface {
	List(ctx context.Context, query dto.NotificationQuery) ([]dto.NotificationResponse, error)
	Send(ctx context.Context, req dto.NotificationSendRequest) (dto.NotificationSendResponse, error)
	MarkRead(ctx context.Context, alertID string) (dto.NotificationResponse, error)
	Subscribe(mentorID string) (<-chan dto.NotificationEvent, func())
	Start(ctx context.Context)
}

// NotificationOptions configures fan-out and alert thresholds.
type NotificationOptions struct {
	Redis       *redis.Client
	NATS        *nats.Conn
	ChannelBase string
	Thresholds  risk.AlertThresholds
}

type notificationService struct {
	students    repository.StudentRepository
	deliveries  repository.NotificationRepository
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	thresholds  risk.AlertThresholds
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	sanitizer   *bluemonday.Policy
	broker      *notificationBroker
	nodeID      string
	now         func() time.Time
}

type notificationEnvelope struct {
	Source string                `json:"source"`
	Event  dto.NotificationEvent `json:"event"`
}

type notificationBroker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan dto.NotificationEvent]struct{}
}

// NewNotificationService constructs a notification service.
func NewNotificationService(students repository.StudentRepository, deliveries repository.NotificationRepository, opts NotificationOptions, validate *validator.Validate, logger zerolog.Logger) NotificationService {
	stream := ""
	subject := ""
	if opts.ChannelBase != "" {
		stream = opts.ChannelBase + ":events"
		subject = strings.ReplaceAll(opts.ChannelBase, ":", ".") + ".events"
	}

	thresholds := opts.Thresholds
	if thresholds == (risk.AlertThresholds{}) {
		thresholds = risk.DefaultAlertThresholds()
	}

	return &notificationService{
		students:    students,
		deliveries:  deliveries,
		redis:       opts.Redis,
		redisStream: stream,
		nats:        opts.NATS,
		natsSubject: subject,
		thresholds:  thresholds,
		validator:   validate,
		logger:      logger.With().Str("component", "notification_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/dropout-watch-api/internal/service/notification"),
		sanitizer:   bluemonday.StrictPolicy(),
		broker: &notificationBroker{
			subscribers: make(map[string]map[chan dto.NotificationEvent]struct{}),
		},
		nodeID: uuid.NewString(),
		now:    time.Now,
	}
}

func (s *notificationService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

// List recomputes every alert from the current records and overlays the
// latest delivery status of each.
func (s *notificationService) List(ctx context.Context, query dto.NotificationQuery) ([]dto.NotificationResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	alerts, statuses, err := s.currentAlerts(ctx, s.thresholds.With(query.Thresholds()))
	if err != nil {
		return nil, err
	}

	out := make([]dto.NotificationResponse, 0, len(alerts))
	for _, alert := range alerts {
		status := statusFor(statuses, alert.ID)
		if query.Status != "" && status != query.Status {
			continue
		}
		if query.Type != "" && alert.Type != query.Type {
			continue
		}
		out = append(out, dto.NotificationResponse{Alert: alert, Status: status})
	}
	return out, nil
}

// Send simulates delivery to a student and their parents. It always succeeds
// once the student exists; without an alert id every current alert of the
// student is marked sent.
func (s *notificationService) Send(ctx context.Context, req dto.NotificationSendRequest) (dto.NotificationSendResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.NotificationSendResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "notifications.send", trace.WithAttributes(
		attribute.String("notification.student_id", req.StudentID),
		attribute.String("notification.alert_id", req.AlertID),
	))
	defer span.End()

	student, err := s.students.GetByStudentID(ctx, strings.TrimSpace(req.StudentID))
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.NotificationSendResponse{}, ErrStudentNotFound
		}
		return dto.NotificationSendResponse{}, err
	}

	alerts := risk.StudentAlerts(student, s.thresholds)
	if req.AlertID != "" {
		alert, ok := findAlert(alerts, req.AlertID)
		if !ok {
			return dto.NotificationSendResponse{}, ErrNotificationNotFound
		}
		alerts = []risk.Alert{alert}
	}

	channel := req.Channel
	if channel == "" {
		channel = defaultChannel
	}
	message := strings.TrimSpace(s.sanitizer.Sanitize(req.Message))
	if message == "" {
		message = fmt.Sprintf("Notification sent to %s and parents", student.Name)
	}

	notificationID := uuid.NewString()
	sentAt := s.now().UTC()

	targets := alerts
	if len(targets) == 0 {
		targets = []risk.Alert{{ID: "manual-" + student.StudentID, Type: "manual", StudentID: student.StudentID, Mentor: student.MentorID}}
	}
	for _, alert := range targets {
		delivery := models.NotificationDelivery{
			AlertID:   alert.ID,
			StudentID: student.StudentID,
			Type:      alert.Type,
			Channel:   channel,
			Message:   message,
			Status:    models.NotificationStatusSent,
			Metadata:  datatypes.JSONMap{"notification_id": notificationID},
		}
		if err := s.deliveries.Record(ctx, &delivery); err != nil {
			span.RecordError(err)
			return dto.NotificationSendResponse{}, err
		}
		observability.NotificationsSent().WithLabelValues(alert.Type).Inc()

		s.emit(ctx, dto.NotificationEvent{
			Event:     EventNotificationSent,
			AlertID:   alert.ID,
			StudentID: student.StudentID,
			Mentor:    student.MentorID,
			Status:    models.NotificationStatusSent,
			Message:   message,
			Timestamp: sentAt,
		})
	}

	s.logger.Info().
		Str("notification_id", notificationID).
		Str("student_id", student.StudentID).
		Int("alerts", len(targets)).
		Msg("notification sent")

	return dto.NotificationSendResponse{
		NotificationID: notificationID,
		StudentID:      student.StudentID,
		Channel:        channel,
		Message:        message,
		SentAt:         sentAt,
	}, nil
}

func (s *notificationService) MarkRead(ctx context.Context, alertID string) (dto.NotificationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "notifications.mark_read", trace.WithAttributes(attribute.String("notification.alert_id", alertID)))
	defer span.End()

	alerts, _, err := s.currentAlerts(ctx, s.thresholds)
	if err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	alert, ok := findAlert(alerts, strings.TrimSpace(alertID))
	if !ok {
		return dto.NotificationResponse{}, ErrNotificationNotFound
	}

	delivery := models.NotificationDelivery{
		AlertID:   alert.ID,
		StudentID: alert.StudentID,
		Type:      alert.Type,
		Status:    models.NotificationStatusRead,
	}
	if err := s.deliveries.Record(ctx, &delivery); err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	s.emit(ctx, dto.NotificationEvent{
		Event:     EventNotificationRead,
		AlertID:   alert.ID,
		StudentID: alert.StudentID,
		Mentor:    alert.Mentor,
		Status:    models.NotificationStatusRead,
		Message:   alert.Message,
		Timestamp: s.now().UTC(),
	})

	return dto.NotificationResponse{Alert: alert, Status: models.NotificationStatusRead}, nil
}

// Subscribe streams events for one mentor, or for everyone when mentorID is empty.
func (s *notificationService) Subscribe(mentorID string) (<-chan dto.NotificationEvent, func()) {
	channel := make(chan dto.NotificationEvent, notificationBufferSize)
	key := strings.TrimSpace(mentorID)

	s.broker.subscribe(key, channel)
	cleanup := func() {
		s.broker.unsubscribe(key, channel)
	}

	return channel, cleanup
}

func (s *notificationService) currentAlerts(ctx context.Context, thresholds risk.AlertThresholds) ([]risk.Alert, map[string]string, error) {
	students, err := s.students.List(ctx, repository.StudentFilter{})
	if err != nil {
		return nil, nil, err
	}
	statuses, err := s.deliveries.LatestStatuses(ctx)
	if err != nil {
		return nil, nil, err
	}
	return risk.Alerts(students, thresholds), statuses, nil
}

func (s *notificationService) emit(ctx context.Context, event dto.NotificationEvent) {
	s.broker.broadcast(event)
	if err := s.publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish notification event")
	}
}

func (s *notificationService) publish(ctx context.Context, event dto.NotificationEvent) error {
	if (s.redis == nil || s.redisStream == "") && (s.nats == nil || s.natsSubject == "") {
		return nil
	}

	payload, err := json.Marshal(notificationEnvelope{Source: s.nodeID, Event: event})
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *notificationService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			s.logger.Error().Err(err).Msg("notification redis subscription closed")
			return
		}
		s.handleEnvelope([]byte(msg.Payload))
	}
}

func (s *notificationService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleEnvelope(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats notification subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain notification nats subscription")
		}
	}()
}

// handleEnvelope relays events published by other nodes to local subscribers.
func (s *notificationService) handleEnvelope(payload []byte) {
	var envelope notificationEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid notification event payload")
		return
	}
	if envelope.Source == s.nodeID {
		return
	}
	s.broker.broadcast(envelope.Event)
}

func findAlert(alerts []risk.Alert, id string) (risk.Alert, bool) {
	for _, alert := range alerts {
		if alert.ID == id {
			return alert, true
		}
	}
	return risk.Alert{}, false
}

func statusFor(statuses map[string]string, alertID string) string {
	if status, ok := statuses[alertID]; ok && status != "" {
		return status
	}
	return models.NotificationStatusPending
}

func (b *notificationBroker) subscribe(key string, ch chan dto.NotificationEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[key]; !exists {
		b.subscribers[key] = make(map[chan dto.NotificationEvent]struct{})
	}
	b.subscribers[key][ch] = struct{}{}
}

func (b *notificationBroker) unsubscribe(key string, ch chan dto.NotificationEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[key]; ok {
		if _, present := subscribers[ch]; !present {
			return
		}
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, key)
		}
	}
}

// broadcast delivers to catch-all subscribers and to the alert's mentor.
// Slow subscribers drop events rather than block senders.
func (b *notificationBroker) broadcast(event dto.NotificationEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := []string{""}
	if event.Mentor != "" {
		keys = append(keys, event.Mentor)
	}
	for _, key := range keys {
		for ch := range b.subscribers[key] {
			select {
			case ch <- event:
			default:
			}
		}
	}
}
