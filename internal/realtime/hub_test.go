package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"task-workflow-api/internal/events"
)

type fakeClient struct {
	mu     sync.Mutex
	msgs   [][]byte
	broken bool
}

func (c *fakeClient) Send(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return false
	}
	c.msgs = append(c.msgs, message)
	return true
}

func (c *fakeClient) Close() {}

func TestHubRegisterAndBroadcast(t *testing.T) {
	require := require.New(t)
	h := NewHub(nil)

	a, b, broken := &fakeClient{}, &fakeClient{}, &fakeClient{broken: true}
	h.Register("u-1", a)
	h.Register("u-1", b)
	h.Register("u-1", broken)
	require.Equal(3, h.Connected("u-1"))

	require.Equal(2, h.Broadcast("u-1", []byte("hi")))
	require.Equal(0, h.Broadcast("u-2", []byte("hi")))
	require.Len(a.msgs, 1)

	h.Unregister("u-1", a)
	h.Unregister("u-1", b)
	h.Unregister("u-1", broken)
	require.Equal(0, h.Connected("u-1"))
	require.Empty(h.userIDToClients)
}

func TestHubPublishSendsOncePerRecipient(t *testing.T) {
	require := require.New(t)
	h := NewHub(nil)

	creator, assignee, outsider := &fakeClient{}, &fakeClient{}, &fakeClient{}
	h.Register("mgr-1", creator)
	h.Register("emp-1", assignee)
	h.Register("emp-9", outsider)

	err := h.Publish(context.Background(), events.Event{
		Type:       events.TypeTaskStatusChanged,
		TaskID:     "t-1",
		Status:     "Accepted",
		Version:    3,
		Recipients: []string{"mgr-1", "emp-1", "emp-1", ""},
	})
	require.NoError(err)

	require.Len(creator.msgs, 1)
	require.Len(assignee.msgs, 1)
	require.Empty(outsider.msgs)

	var got map[string]any
	require.NoError(json.Unmarshal(assignee.msgs[0], &got))
	require.Equal("task_status_changed", got["type"])
	require.Equal("t-1", got["taskId"])
	require.EqualValues(3, got["version"])
}
