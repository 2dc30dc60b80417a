package events

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Logger persists bus events to JSONL files, one file per session.
type Logger struct {
	dir         string
	unsubscribe func()
}

// NewLogger subscribes to all bus events and appends them as JSONL under dir.
// Stream deltas are skipped, they are noisy and redundant with turn.done.
func NewLogger(dir string, bus *Bus) *Logger {
	l := &Logger{dir: dir}
	l.unsubscribe = bus.Subscribe(l.handleEvent)
	return l
}

// Close unsubscribes the logger from the event bus.
func (l *Logger) Close() {
	if l.unsubscribe != nil {
		l.unsubscribe()
	}
}

func (l *Logger) handleEvent(e Event) {
	if e.Type == EventTurnDelta {
		return
	}
	_ = l.writeEvent(e)
}

func (l *Logger) writeEvent(e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	path := l.logPath(e.SessionID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(data)
	return err
}

func (l *Logger) logPath(sessionID string) string {
	if sessionID == "" {
		return filepath.Join(l.dir, "_global.jsonl")
	}
	return filepath.Join(l.dir, sessionID+".jsonl")
}
