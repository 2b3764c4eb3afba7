package storage

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
)

// JSONLAppender appends JSON values as newline-delimited JSON, one line per
// call, creating parent directories on demand. Appends to the same
// destination are serialized so concurrent writers never interleave partial
// lines; different destinations proceed in parallel. Failures are logged as
// warnings and never returned: a failed write must not disturb the exchange
// that produced it.
type JSONLAppender struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewJSONLAppender() *JSONLAppender {
	return &JSONLAppender{locks: map[string]*sync.Mutex{}}
}

func (a *JSONLAppender) Append(destination string, payload any) {
	line, err := sonic.Marshal(payload)
	if err != nil {
		slog.Warn("Failed to serialize JSONL payload", slog.String("destination", destination), slog.Any("error", err))
		return
	}

	lock := a.destinationLock(destination)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		slog.Warn("Failed to write JSONL", slog.String("destination", destination), slog.Any("error", err))
		return
	}

	f, err := os.OpenFile(destination, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		slog.Warn("Failed to write JSONL", slog.String("destination", destination), slog.Any("error", err))
		return
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		slog.Warn("Failed to write JSONL", slog.String("destination", destination), slog.Any("error", err))
	}
}

func (a *JSONLAppender) destinationLock(destination string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()

	lock := a.locks[destination]
	if lock == nil {
		lock = &sync.Mutex{}
		a.locks[destination] = lock
	}
	return lock
}
