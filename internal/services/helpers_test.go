package services

import (
	"sync"

	"relief_backend/internal/repositories"
)

// recordingPublisher запоминает push-уведомления вместо websocket
type recordingPublisher struct {
	mu   sync.Mutex
	sent map[string][]interface{}
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{sent: make(map[string][]interface{})}
}

func (p *recordingPublisher) SendToUser(userID string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent[userID] = append(p.sent[userID], payload)
}

func (p *recordingPublisher) count(userID string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent[userID])
}

func newTestNotificationService(publisher Publisher) NotificationService {
	return NewNotificationService(repositories.NewNotificationRepository(), publisher)
}

func intPtr(i int) *int {
	return &i
}

func stringPtr(s string) *string {
	return &s
}
