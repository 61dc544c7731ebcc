package core

import "time"

type (
	NoticeLevel string

	// Notice is a single user-facing notification (the toast equivalent).
	Notice struct {
		Level     NoticeLevel
		Message   string
		Timestamp time.Time
	}

	// Notifier is any sink for user-facing notices.
	Notifier interface {
		Success(msg string)
		Info(msg string)
		Error(msg string)
	}
)

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeError   NoticeLevel = "error"
)
