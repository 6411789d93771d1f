// Package actionlog records user actions as one JSON object per line
// in an append-only file, and aggregates them for the admin stats view.
package actionlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

type Entry struct {
	ChatID    int64     `json:"chat_id"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// Log is safe for concurrent use; the mutex keeps each entry a
// self-contained line.
type Log struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func New(path string) *Log {
	return &Log{path: path, now: time.Now}
}

// Record appends one entry.
func (l *Log) Record(chatID int64, action string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open action log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(Entry{ChatID: chatID, Action: action, Timestamp: l.now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal action entry: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append action entry: %w", err)
	}
	return nil
}

// Aggregate counts entries per action name. A missing log file is an
// empty aggregate, not an error. Unparseable lines are skipped so one
// torn write cannot hide the rest of the history.
func (l *Log) Aggregate() (map[string]int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]int{}, nil
		}
		return nil, fmt.Errorf("open action log: %w", err)
	}
	defer f.Close()

	stats := map[string]int{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		stats[e.Action]++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read action log: %w", err)
	}
	return stats, nil
}
