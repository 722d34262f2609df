package ws

import (
	"context"
	"sync"

	"relief_backend/internal/logger"
	"relief_backend/internal/metrics"
)

// WebSocketManager держит подключения по userID. У одного пользователя может быть
// несколько вкладок, поэтому на userID приходится множество клиентов.
type WebSocketManager struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
}

func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run обрабатывает регистрацию клиентов до отмены ctx
func (manager *WebSocketManager) Run(ctx context.Context) {
	defer close(manager.done)

	for {
		select {
		case <-ctx.Done():
			manager.closeAll()
			logger.Info("WebSocket manager stopped")
			return

		case client := <-manager.register:
			manager.mu.Lock()
			if manager.clients[client.UserID] == nil {
				manager.clients[client.UserID] = make(map[*Client]bool)
			}
			manager.clients[client.UserID][client] = true
			manager.mu.Unlock()
			metrics.WSConnections.Inc()
			logger.Debug("WebSocket client registered", "user_id", client.UserID)

		case client := <-manager.unregister:
			manager.remove(client)
		}
	}
}

func (manager *WebSocketManager) remove(client *Client) {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	userClients, ok := manager.clients[client.UserID]
	if !ok || !userClients[client] {
		return
	}
	delete(userClients, client)
	if len(userClients) == 0 {
		delete(manager.clients, client.UserID)
	}
	close(client.Send)
	metrics.WSConnections.Dec()
	logger.Debug("WebSocket client unregistered", "user_id", client.UserID)
}

func (manager *WebSocketManager) closeAll() {
	manager.mu.Lock()
	defer manager.mu.Unlock()

	for userID, userClients := range manager.clients {
		for client := range userClients {
			close(client.Send)
			metrics.WSConnections.Dec()
		}
		delete(manager.clients, userID)
	}
}

// Register добавляет клиента; false, если менеджер уже остановлен
func (manager *WebSocketManager) Register(client *Client) bool {
	select {
	case manager.register <- client:
		return true
	case <-manager.done:
		return false
	}
}

func (manager *WebSocketManager) Unregister(client *Client) {
	select {
	case manager.unregister <- client:
	case <-manager.done:
	}
}

// SendToUser отправляет сообщение во все подключения пользователя.
// Клиент с переполненной очередью отключается.
func (manager *WebSocketManager) SendToUser(userID string, message interface{}) {
	manager.mu.RLock()
	defer manager.mu.RUnlock()

	for client := range manager.clients[userID] {
		select {
		case client.Send <- message:
		default:
			go manager.Unregister(client)
			logger.Warn("WebSocket client dropped due to full send channel", "user_id", userID)
		}
	}
}

// GetClientCount возвращает количество подключений пользователя
func (manager *WebSocketManager) GetClientCount(userID string) int {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return len(manager.clients[userID])
}

// IsClientConnected проверяет, подключен ли пользователь
func (manager *WebSocketManager) IsClientConnected(userID string) bool {
	return manager.GetClientCount(userID) > 0
}
