package dummynotify

import (
	"sync"
	"time"

	"github.com/Nono8Six/ia-learning-sub000/core"
)

// Service records notices instead of displaying them. Tests inspect Notices.
type Service struct {
	mu      sync.Mutex
	notices []core.Notice
}

var _ core.Notifier = (*Service)(nil)

func NewService() *Service {
	return &Service{}
}

func (svc *Service) record(level core.NoticeLevel, msg string) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.notices = append(svc.notices, core.Notice{
		Level: level, Message: msg, Timestamp: time.Now().UTC(),
	})
}

func (svc *Service) Success(msg string) { svc.record(core.NoticeSuccess, msg) }
func (svc *Service) Info(msg string)    { svc.record(core.NoticeInfo, msg) }
func (svc *Service) Error(msg string)   { svc.record(core.NoticeError, msg) }

func (svc *Service) Notices() []core.Notice {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return append([]core.Notice(nil), svc.notices...)
}

// Reset clears recorded notices.
func (svc *Service) Reset() {
	svc.mu.Lock()
	svc.notices = nil
	svc.mu.Unlock()
}
