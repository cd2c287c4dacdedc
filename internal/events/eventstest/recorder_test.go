package eventstest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alexjoshwa/agri-1.0/internal/events"
)

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Publish(context.Background(), events.SubjectOrderCreated, events.OrderCreated{}))
	require.NoError(t, r.Publish(context.Background(), events.SubjectMessagePosted, events.MessagePosted{ConversationID: "c_1"}))

	assert.Equal(t, []string{events.SubjectOrderCreated, events.SubjectMessagePosted}, r.Subjects())
	ev, ok := r.Events()[1].Event.(events.MessagePosted)
	require.True(t, ok)
	assert.Equal(t, "c_1", ev.ConversationID)
}
