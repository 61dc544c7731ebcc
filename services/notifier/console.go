package notifysvc

import (
	"time"

	"github.com/labstack/gommon/color"

	"github.com/Nono8Six/ia-learning-sub000/core"
)

// ConsoleNotifier prints user-facing notices to the terminal, colored by
// level. It stands in for the toast layer of a graphical front end.
type ConsoleNotifier struct {
	logger core.Logger
}

var _ core.Notifier = (*ConsoleNotifier)(nil)

func NewConsoleNotifier(logger core.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{logger: logger}
}

func (n *ConsoleNotifier) notify(level core.NoticeLevel, msg string) {
	notice := core.Notice{Level: level, Message: msg, Timestamp: time.Now().UTC()}
	switch level {
	case core.NoticeSuccess:
		n.logger.Info(color.Green(notice.Message))
	case core.NoticeError:
		n.logger.Warn(color.Red(notice.Message))
	default:
		n.logger.Info(notice.Message)
	}
}

func (n *ConsoleNotifier) Success(msg string) { n.notify(core.NoticeSuccess, msg) }
func (n *ConsoleNotifier) Info(msg string)    { n.notify(core.NoticeInfo, msg) }
func (n *ConsoleNotifier) Error(msg string)   { n.notify(core.NoticeError, msg) }
