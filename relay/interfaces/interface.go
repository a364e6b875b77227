package interfaces

import (
	"time"

	"github.com/sirupsen/logrus"
)

// RequestLogHook flattens the request carried in a log entry into
// plain fields so every line of a delivery can be correlated.
type RequestLogHook struct {
}

func (h *RequestLogHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *RequestLogHook) Fire(entry *logrus.Entry) error {
	_ret, ok := entry.Data["request"]
	if !ok {
		return nil
	}
	r, ok := _ret.(*RequestInfo)
	if !ok {
		return nil
	}
	delete(entry.Data, "request")
	entry.Data["req"] = r.ID
	entry.Data["chat"] = r.ChatID
	entry.Data["url"] = r.URL
	return nil
}

func init() {
	logrus.AddHook(&RequestLogHook{})
}

// RequestInfo is one delivery request taken from a chat message. It
// lives in memory for the duration of the request and is never
// persisted.
type RequestInfo struct {
	ID        string
	URL       string
	ChatID    int64
	MessageID int
	Requester string
	RecvTime  time.Time
}
