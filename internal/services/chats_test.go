package services

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zenith-backend/internal/models"
	"zenith-backend/internal/store/memstore"
)

func TestChatFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.signup(t, "alice", models.RoleStudent)
	bob := f.signup(t, "bob", models.RoleInstructor)
	eve := f.signup(t, "eve", models.RoleStudent)

	_, err := f.chats.Create(ctx, alice, alice.UserID)
	requireServiceError(t, err, http.StatusBadRequest)
	_, err = f.chats.Create(ctx, alice, 999)
	requireServiceError(t, err, http.StatusNotFound)

	chat, err := f.chats.Create(ctx, alice, bob.UserID)
	require.NoError(t, err)
	same, err := f.chats.Create(ctx, bob, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, same.ID)

	_, err = f.chats.Send(ctx, alice, chat.ID, "   ")
	requireServiceError(t, err, http.StatusBadRequest)
	_, err = f.chats.Send(ctx, eve, chat.ID, "let me in")
	requireServiceError(t, err, http.StatusForbidden)

	msg, err := f.chats.Send(ctx, alice, chat.ID, "hello")
	require.NoError(t, err)
	_, err = f.chats.Send(ctx, bob, chat.ID, "hi there")
	require.NoError(t, err)

	messages, err := f.chats.Messages(ctx, bob, chat.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "hello", messages[0].Content)
	assert.Equal(t, "hi there", messages[1].Content)
	_, err = f.chats.Messages(ctx, eve, chat.ID)
	requireServiceError(t, err, http.StatusForbidden)

	sent := f.notifier.all()
	require.Len(t, sent, 2)
	assert.Equal(t, ChatRoom(chat.ID), sent[0].Room)
	assert.Equal(t, EventNewMessage, sent[0].Event)
	assert.Equal(t, msg.ID, sent[0].Payload.(MessageView).ID)

	summaries, err := f.chats.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "bob", summaries[0].OtherUsername)
	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, "hi there", *summaries[0].LastMessage)
}

func TestConcurrentChatCreationYieldsOneChat(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.signup(t, "alice", models.RoleStudent)
	bob := f.signup(t, "bob", models.RoleStudent)

	ids := make(chan int64, 10)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			caller, other := alice, bob.UserID
			if i%2 == 1 {
				caller, other = bob, alice.UserID
			}
			chat, err := f.chats.Create(ctx, caller, other)
			if assert.NoError(t, err) {
				ids <- chat.ID
			}
		}(i)
	}
	wg.Wait()
	close(ids)
	unique := map[int64]bool{}
	for id := range ids {
		unique[id] = true
	}
	assert.Len(t, unique, 1)
}

func TestMetricsSample(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	notifier := &recordingNotifier{}
	metrics := NewMetricsService(st, notifier, "/", nil)

	sample, err := metrics.Sample(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, sample.ID)
	assert.False(t, sample.CapturedAt.IsZero())

	history, err := metrics.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, sample.ID, history[0].ID)

	sent := notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, MetricsRoom, sent[0].Room)
	view, ok := sent[0].Payload.(MetricSampleView)
	require.True(t, ok)
	assert.Equal(t, sample.ID, view.ID)
}
