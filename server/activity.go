package server

import (
	"fmt"
	"sync"
	"time"
)

// DefaultActivitySize is the number of entries an ActivityLog keeps.
const DefaultActivitySize = 100

// Activity is one administrative event.
type Activity struct {
	Time     time.Time `json:"timestamp"`
	Action   string    `json:"action"`
	Document string    `json:"document,omitempty"`
	Detail   string    `json:"detail,omitempty"`
}

// String formats the entry as a single log line.
func (a Activity) String() string {
	line := a.Time.Format(time.RFC3339) + " " + a.Action
	if a.Document != "" {
		line += " " + a.Document
	}
	if a.Detail != "" {
		line += ": " + a.Detail
	}
	return line
}

// ActivityLog is a fixed-size ring of recent administrative events.
// It doubles as an ingestion monitor so background uploads are recorded
// when they finish.
type ActivityLog struct {
	mu      sync.Mutex
	entries []Activity
	next    int
	full    bool
	now     func() time.Time
}

// NewActivityLog creates a log holding the last size entries.
func NewActivityLog(size int) *ActivityLog {
	if size < 1 {
		size = DefaultActivitySize
	}
	return &ActivityLog{entries: make([]Activity, size), now: time.Now}
}

// Record appends an entry, evicting the oldest when full.
func (l *ActivityLog) Record(action, document, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[l.next] = Activity{Time: l.now().UTC(), Action: action, Document: document, Detail: detail}
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
}

// Entries returns the retained entries, oldest first.
func (l *ActivityLog) Entries() []Activity {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.full {
		return append([]Activity(nil), l.entries[:l.next]...)
	}
	out := make([]Activity, 0, len(l.entries))
	out = append(out, l.entries[l.next:]...)
	return append(out, l.entries[:l.next]...)
}

func (l *ActivityLog) Ingested(document string, fragments, failedBatches int, elapsed time.Duration) {
	detail := fmt.Sprintf("%d fragments in %s", fragments, elapsed.Round(time.Millisecond))
	if failedBatches > 0 {
		detail += fmt.Sprintf(", %d failed batches", failedBatches)
	}
	l.Record("ingested", document, detail)
}

func (l *ActivityLog) Failed(document string, err error) {
	l.Record("ingest_failed", document, err.Error())
}

func (l *ActivityLog) Deleted(document string, fragments int) {
	l.Record("deleted", document, fmt.Sprintf("%d fragments", fragments))
}
