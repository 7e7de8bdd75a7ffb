package service

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/dropout-watch-api/internal/dto"
	"github.com/noah-isme/dropout-watch-api/internal/models"
	"github.com/noah-isme/dropout-watch-api/internal/repository"
	"github.com/noah-isme/dropout-watch-api/internal/risk"
)

func newNotificationService(t *testing.T, db *gorm.DB, client *redis.Client) NotificationService {
	t.Helper()
	return NewNotificationService(
		repository.NewStudentRepository(db),
		repository.NewNotificationRepository(db),
		NotificationOptions{Redis: client, ChannelBase: "dropout-watch.test"},
		testValidator(),
		testLogger(),
	)
}

func TestNotificationServiceListDerivesAlerts(t *testing.T) {
	db := newServiceDB(t)
	seededStudents(t, db)
	svc := newNotificationService(t, db, nil)
	ctx := context.Background()

	all, err := svc.List(ctx, dto.NotificationQuery{})
	require.NoError(t, err)
	require.Len(t, all, 11)
	for _, item := range all {
		require.Equal(t, models.NotificationStatusPending, item.Status)
	}

	fees, err := svc.List(ctx, dto.NotificationQuery{Type: risk.AlertFees})
	require.NoError(t, err)
	require.Len(t, fees, 3)
	require.Equal(t, "fee-S00003", fees[0].ID)
	require.Equal(t, "high", fees[0].Priority)

	_, err = svc.List(ctx, dto.NotificationQuery{Status: "archived"})
	require.Error(t, err)
}

func TestNotificationServiceListAppliesThresholdOverrides(t *testing.T) {
	db := newServiceDB(t)
	seededStudents(t, db)
	svc := newNotificationService(t, db, nil)
	ctx := context.Background()

	fees, err := svc.List(ctx, dto.NotificationQuery{Type: risk.AlertFees, FeeDays: 100})
	require.NoError(t, err)
	require.Len(t, fees, 1)
	require.Equal(t, "fee-S00020", fees[0].ID)

	fees, err = svc.List(ctx, dto.NotificationQuery{Type: risk.AlertFees, FeeDays: 20})
	require.NoError(t, err)
	require.Len(t, fees, 4)

	attendance, err := svc.List(ctx, dto.NotificationQuery{Type: risk.AlertAttendance, Attendance: 50})
	require.NoError(t, err)
	require.Len(t, attendance, 2)

	attendance, err = svc.List(ctx, dto.NotificationQuery{Type: risk.AlertAttendance})
	require.NoError(t, err)
	require.Len(t, attendance, 4)

	_, err = svc.List(ctx, dto.NotificationQuery{Marks: 120})
	require.Error(t, err)
}

func TestNotificationServiceSendAndMarkRead(t *testing.T) {
	db := newServiceDB(t)
	seededStudents(t, db)
	svc := newNotificationService(t, db, nil)
	ctx := context.Background()

	events, cancel := svc.Subscribe("M055")
	defer cancel()

	sent, err := svc.Send(ctx, dto.NotificationSendRequest{StudentID: "S00010"})
	require.NoError(t, err)
	require.NotEmpty(t, sent.NotificationID)
	require.Equal(t, "app", sent.Channel)
	require.Equal(t, "Notification sent to Priya Sharma and parents", sent.Message)

	select {
	case event := <-events:
		require.Equal(t, EventNotificationSent, event.Event)
		require.Equal(t, "S00010", event.StudentID)
	case <-time.After(time.Second):
		t.Fatal("expected a notification event")
	}

	sentItems, err := svc.List(ctx, dto.NotificationQuery{Status: models.NotificationStatusSent})
	require.NoError(t, err)
	require.Len(t, sentItems, 2)

	read, err := svc.MarkRead(ctx, "att-S00010")
	require.NoError(t, err)
	require.Equal(t, models.NotificationStatusRead, read.Status)

	readItems, err := svc.List(ctx, dto.NotificationQuery{Status: models.NotificationStatusRead})
	require.NoError(t, err)
	require.Len(t, readItems, 1)
	require.Equal(t, "att-S00010", readItems[0].ID)

	_, err = svc.MarkRead(ctx, "att-S00015")
	require.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestNotificationServiceSendTargets(t *testing.T) {
	db := newServiceDB(t)
	seededStudents(t, db)
	svc := newNotificationService(t, db, nil)
	deliveries := repository.NewNotificationRepository(db)
	ctx := context.Background()

	_, err := svc.Send(ctx, dto.NotificationSendRequest{StudentID: "S00404"})
	require.ErrorIs(t, err, ErrStudentNotFound)

	_, err = svc.Send(ctx, dto.NotificationSendRequest{StudentID: "S00007", AlertID: "trend-S00007"})
	require.ErrorIs(t, err, ErrNotificationNotFound)

	sent, err := svc.Send(ctx, dto.NotificationSendRequest{
		StudentID: "S00007",
		AlertID:   "fee-S00007",
		Channel:   "sms",
		Message:   "<script>x</script>Please clear dues",
	})
	require.NoError(t, err)
	require.Equal(t, "Please clear dues", sent.Message)

	history, err := deliveries.ListByStudent(ctx, "S00007", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "sms", history[0].Channel)
	require.Equal(t, sent.NotificationID, history[0].Metadata["notification_id"])

	_, err = svc.Send(ctx, dto.NotificationSendRequest{StudentID: "S00015"})
	require.NoError(t, err)
	history, err = deliveries.ListByStudent(ctx, "S00015", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "manual-S00015", history[0].AlertID)
}

func TestNotificationServiceRedisFanOut(t *testing.T) {
	server, client := newTestRedis(t)
	db := newServiceDB(t)
	seededStudents(t, db)

	sender := newNotificationService(t, db, client)
	receiver := newNotificationService(t, db, client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	receiver.Start(ctx)

	require.Eventually(t, func() bool {
		return server.PubSubNumSub("dropout-watch.test:events")["dropout-watch.test:events"] > 0
	}, time.Second, 10*time.Millisecond)

	events, unsubscribe := receiver.Subscribe("")
	defer unsubscribe()

	_, err := sender.MarkRead(context.Background(), "fee-S00020")
	require.NoError(t, err)

	select {
	case event := <-events:
		require.Equal(t, EventNotificationRead, event.Event)
		require.Equal(t, "fee-S00020", event.AlertID)
		require.Equal(t, "M088", event.Mentor)
	case <-time.After(2 * time.Second):
		t.Fatal("expected relayed notification event")
	}
}

func TestNotificationBrokerRoutesByMentor(t *testing.T) {
	broker := &notificationBroker{subscribers: make(map[string]map[chan dto.NotificationEvent]struct{})}
	mine := make(chan dto.NotificationEvent, 1)
	other := make(chan dto.NotificationEvent, 1)
	broker.subscribe("M1", mine)
	broker.subscribe("M2", other)

	broker.broadcast(dto.NotificationEvent{AlertID: "att-S1", Mentor: "M1"})
	require.Len(t, mine, 1)
	require.Empty(t, other)

	broker.unsubscribe("M1", mine)
	broker.unsubscribe("M1", mine)
	_, open := <-mine
	require.True(t, open, "buffered event is still readable")
	_, open = <-mine
	require.False(t, open)
}
