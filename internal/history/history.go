// Package history keeps the append-only chronological log of sent requests
// paired with their responses.
package history

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"reqchain/internal/httpclient"
)

// Entry records one attempted request. A record is created when the request
// is sent and finished by exactly one of Complete or Fail: a finished entry
// has either a Response or a non-empty Err. Responses are treated as
// immutable once received; entries share them.
type Entry struct {
	ID       string
	Chain    string
	Step     int // 1-based cursor position at send time
	Request  httpclient.Request
	Response *httpclient.Response
	Err      string
	SentAt   time.Time
}

// Log is an append-only sequence of entries in send order. Records are never
// reordered; a transport failure finishes the record opened for the attempt
// rather than inserting a second one.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	byID    map[string]int
}

func NewLog() *Log {
	return &Log{byID: make(map[string]int)}
}

// Append opens a record for a request that is about to be sent and returns
// the record's ID.
func (l *Log) Append(chain string, step int, req httpclient.Request) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := uuid.NewString()
	l.entries = append(l.entries, Entry{
		ID:      id,
		Chain:   chain,
		Step:    step,
		Request: req.Clone(),
		SentAt:  time.Now(),
	})
	l.byID[id] = len(l.entries) - 1
	return id
}

// Complete pairs the response with the record opened by Append and returns
// a copy of the finished entry, or nil for an unknown ID.
func (l *Log) Complete(id string, resp *httpclient.Response) *Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.byID[id]
	if !ok {
		return nil
	}
	l.entries[i].Response = resp
	finished := l.entries[i]
	return &finished
}

// Fail marks the record opened by Append as a failed attempt, keeping the
// request for inspection, and returns a copy of the finished entry, or nil
// for an unknown ID.
func (l *Log) Fail(id string, err error) *Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.byID[id]
	if !ok {
		return nil
	}
	l.entries[i].Err = err.Error()
	finished := l.entries[i]
	return &finished
}

// Entries returns a copy of the log in chronological send order.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// ByChain returns the entries recorded for one chain, in send order.
func (l *Log) ByChain(chain string) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Entry
	for _, e := range l.entries {
		if e.Chain == chain {
			out = append(out, e)
		}
	}
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Clear drops every record.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.byID = make(map[string]int)
}
