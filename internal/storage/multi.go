package storage

import "github.com/modeltap/modeltap/pkg/capture"

// MultiAppender fans one append out to several appenders.
type MultiAppender struct {
	appenders []capture.Appender
}

func NewMultiAppender(appenders ...capture.Appender) *MultiAppender {
	return &MultiAppender{appenders: appenders}
}

func (m *MultiAppender) Append(destination string, payload any) {
	for _, appender := range m.appenders {
		appender.Append(destination, payload)
	}
}
