package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifierSendAndReceive(t *testing.T) {
	n := NewNotifier()
	defer n.Close()

	n.Send(ToolsListChanged())

	select {
	case event := <-n.Events():
		assert.Equal(t, EventToolsListChanged, event.Method)
	default:
		t.Fatal("expected a buffered event")
	}
}

func TestNotifierDropsWhenFull(t *testing.T) {
	n := NewNotifier()
	defer n.Close()

	for i := 0; i < defaultNotifierBuffer+10; i++ {
		n.Send(PromptsListChanged())
	}

	count := 0
	for {
		select {
		case <-n.Events():
			count++
			continue
		default:
		}
		break
	}
	assert.Equal(t, defaultNotifierBuffer, count)
}

func TestNotifierSendAfterClose(t *testing.T) {
	n := NewNotifier()
	n.Close()
	n.Close()

	// Must not panic on a closed channel.
	n.Send(ResourcesListChanged())

	_, open := <-n.Events()
	assert.False(t, open)
}

func TestContextNotifyNilSafe(t *testing.T) {
	var nilCtx *Context
	nilCtx.Notify(ToolsListChanged())
	assert.False(t, nilCtx.CanNotify())

	noPush := NewContext("s1", "2025-06-18", nil, nil)
	noPush.Notify(ToolsListChanged())
	assert.False(t, noPush.CanNotify())
}

func TestContextNotifyDelivers(t *testing.T) {
	n := NewNotifier()
	defer n.Close()

	total := 10.0
	hctx := NewContext("s1", "2025-06-18", nil, n)
	require.True(t, hctx.CanNotify())
	hctx.Notify(Progress("tok-1", 3, &total, "indexing"))

	event := <-n.Events()
	assert.Equal(t, EventProgress, event.Method)
	params, ok := event.Params.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "tok-1", params["progressToken"])
	assert.Equal(t, 3.0, params["progress"])
	assert.Equal(t, 10.0, params["total"])
	assert.Equal(t, "indexing", params["message"])
}

func TestResultHelpers(t *testing.T) {
	ok := TextResult("done")
	require.Len(t, ok.Content, 1)
	assert.Equal(t, "text", ok.Content[0].Type)
	assert.False(t, ok.IsError)

	bad := ErrorResult("tool blew up")
	assert.True(t, bad.IsError)
	assert.Equal(t, "tool blew up", bad.Content[0].Text)
}
