package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "github.com/fudign/kfa-sub000/pkg/domain"
	audit "github.com/fudign/kfa-sub000/pkg/platform/audit"
	"github.com/fudign/kfa-sub000/pkg/platform/audit/store/memory"
	"github.com/fudign/kfa-sub000/pkg/requestcontext"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("outbox unavailable")
}

func TestPublisher_EnrichesFromContext(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	admin := id.Actor{UserID: id.NewUserID(), Role: id.RoleAdmin}
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "req-42")
	ctx = requestcontext.WithClientMetadata(ctx, "10.1.1.1", "Firefox 120 (Linux)")
	ctx = requestcontext.WithActor(ctx, admin)

	subject := id.NewUserID()
	err := pub.Emit(ctx, audit.Event{
		UserID:  subject,
		Subject: id.NewApplicationID().String(),
		Action:  string(audit.EventApplicationApproved),
	})
	require.NoError(t, err)

	events, err := store.ListByUser(ctx, subject)
	require.NoError(t, err)
	require.Len(t, events, 1)
	e := events[0]
	assert.Equal(t, now, e.Timestamp)
	assert.Equal(t, "req-42", e.RequestID)
	assert.Equal(t, "10.1.1.1", e.IP)
	assert.Equal(t, "Firefox 120 (Linux)", e.Client)
	assert.Equal(t, admin.UserID.String(), e.ActorID)
	assert.Equal(t, audit.CategoryCompliance, e.Category)
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)

	customTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	userID := id.NewUserID()
	err := pub.Emit(context.Background(), audit.Event{
		UserID:    userID,
		Subject:   "x",
		Action:    string(audit.EventCPESubmitted),
		Timestamp: customTime,
	})
	require.NoError(t, err)

	events, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
}

func TestPublisher_RequiresActionAndSubject(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore())
	assert.Error(t, pub.Emit(context.Background(), audit.Event{Subject: "x"}))
	assert.Error(t, pub.Emit(context.Background(), audit.Event{Action: "a"}))
}

func TestPublisher_FailClosed(t *testing.T) {
	pub := NewPublisher(failingStore{})
	err := pub.Emit(context.Background(), audit.Event{Subject: "x", Action: "cpe_activity_submitted"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outbox unavailable")
}
