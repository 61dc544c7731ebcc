package dummymail

import (
	"sync"

	"github.com/Nono8Six/ia-learning-sub000/core"
)

// service records messages instead of sending them. Tests inspect Sent.
type service struct {
	mu   sync.Mutex
	sent []core.EmailMessage
}

var _ core.EmailService = (*service)(nil)

func NewService() *service {
	return &service{}
}

func (svc *service) SendMessages(messages ...*core.EmailMessage) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	for _, msg := range messages {
		if msg.HasRecipients() && msg.HasContent() {
			svc.sent = append(svc.sent, *msg)
		}
	}
}

func (svc *service) Sent() []core.EmailMessage {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.EmailMessage(nil), svc.sent...)
}
