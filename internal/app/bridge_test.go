package app

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/clinic-chat/internal/model"
	chatsync "github.com/nhle/clinic-chat/internal/sync"
)

func waitUpdate(t *testing.T, b *Bridge) UpdateMsg {
	t.Helper()
	done := make(chan UpdateMsg, 1)
	go func() { done <- b.Wait()().(UpdateMsg) }()
	select {
	case msg := <-done:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not deliver an update")
		return UpdateMsg{}
	}
}

func TestBridgeCoalescesRendersPerChannel(t *testing.T) {
	b := NewBridge()

	b.Render(chatsync.RenderBatch{ChannelID: "a", Messages: []model.Message{{Text: "1"}}})
	b.Render(chatsync.RenderBatch{ChannelID: "b", Empty: true})
	b.Render(chatsync.RenderBatch{ChannelID: "a", Messages: []model.Message{{Text: "1"}, {Text: "2"}}})
	b.RenderChannels([]model.Channel{{ID: "a"}, {ID: "b"}})

	msg := waitUpdate(t, b)
	require.Len(t, msg.Renders, 2)
	assert.Equal(t, "a", msg.Renders[0].ChannelID)
	assert.Len(t, msg.Renders[0].Messages, 2)
	assert.Equal(t, "b", msg.Renders[1].ChannelID)
	assert.True(t, msg.HasChannels)
	assert.Len(t, msg.Channels, 2)

	// Everything was drained.
	assert.Equal(t, UpdateMsg{}, b.drain())
}

func TestBridgeNeverBlocksProducers(t *testing.T) {
	b := NewBridge()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			b.Report(chatsync.Status{Severity: chatsync.SeverityWarn, Op: "loading messages", Err: errors.New("offline")})
			b.Render(chatsync.RenderBatch{ChannelID: "a"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("producer blocked without a listener")
	}

	msg := waitUpdate(t, b)
	assert.Len(t, msg.Statuses, maxQueuedStatuses)
	assert.Len(t, msg.Renders, 1)
}
