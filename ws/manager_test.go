package ws

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startManager(t *testing.T) *WebSocketManager {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	manager := NewWebSocketManager()
	go manager.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-manager.done
	})
	return manager
}

func TestManager_FanOutToAllClientsOfUser(t *testing.T) {
	manager := startManager(t)

	tab1 := NewClient("user-1", nil, manager)
	tab2 := NewClient("user-1", nil, manager)
	other := NewClient("user-2", nil, manager)
	require.True(t, manager.Register(tab1))
	require.True(t, manager.Register(tab2))
	require.True(t, manager.Register(other))

	require.Eventually(t, func() bool { return manager.GetClientCount("user-1") == 2 }, time.Second, 5*time.Millisecond)

	manager.SendToUser("user-1", "hello")

	assert.Equal(t, "hello", <-tab1.Send)
	assert.Equal(t, "hello", <-tab2.Send)
	assert.Empty(t, other.Send)
}

func TestManager_UnregisterClosesSendChannel(t *testing.T) {
	manager := startManager(t)

	client := NewClient("user-1", nil, manager)
	require.True(t, manager.Register(client))
	require.Eventually(t, func() bool { return manager.IsClientConnected("user-1") }, time.Second, 5*time.Millisecond)

	manager.Unregister(client)
	require.Eventually(t, func() bool { return !manager.IsClientConnected("user-1") }, time.Second, 5*time.Millisecond)

	_, open := <-client.Send
	assert.False(t, open)

	// повторная отписка безопасна
	manager.Unregister(client)
}

func TestManager_RegisterAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	manager := NewWebSocketManager()
	go manager.Run(ctx)
	cancel()
	<-manager.done

	assert.False(t, manager.Register(NewClient("user-1", nil, manager)))
}
