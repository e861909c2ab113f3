// Package journal keeps a bounded, timestamped record of dashboard activity:
// connects, disconnects, received events, admin actions and errors.
package journal

import (
	"fmt"
	"sync"
	"time"

	"github.com/alfredjeanlab/lotwatch/internal/clock"
)

// DefaultCapacity is the number of entries kept when none is given.
const DefaultCapacity = 200

// Level classifies an entry.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Entry is one line of the activity log.
type Entry struct {
	Seq     uint64    `json:"seq"`
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
}

// Journal is a fixed-size ring of entries. It is safe for concurrent use.
type Journal struct {
	clock clock.Clock

	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
	seq     uint64
}

// New creates a journal holding at most capacity entries. A non-positive
// capacity selects DefaultCapacity. A nil clock selects the real clock.
func New(capacity int, c clock.Clock) *Journal {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if c == nil {
		c = clock.Real()
	}
	return &Journal{clock: c, entries: make([]Entry, capacity)}
}

func (j *Journal) Infof(format string, args ...any) {
	j.add(LevelInfo, fmt.Sprintf(format, args...))
}

func (j *Journal) Errorf(format string, args ...any) {
	j.add(LevelError, fmt.Sprintf(format, args...))
}

func (j *Journal) add(level Level, msg string) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.seq++
	j.entries[j.next] = Entry{Seq: j.seq, Time: j.clock.Now(), Level: level, Message: msg}
	j.next = (j.next + 1) % len(j.entries)
	if j.next == 0 {
		j.full = true
	}
}

// Len returns the number of entries held.
func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.full {
		return len(j.entries)
	}
	return j.next
}

// Entries returns all held entries, oldest first.
func (j *Journal) Entries() []Entry {
	return j.Recent(0)
}

// Recent returns the newest n entries, oldest first. n <= 0 returns all.
func (j *Journal) Recent(n int) []Entry {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	var ordered []Entry
	if j.full {
		ordered = append(ordered, j.entries[j.next:]...)
	}
	ordered = append(ordered, j.entries[:j.next]...)
	if n > 0 && n < len(ordered) {
		ordered = ordered[len(ordered)-n:]
	}
	return ordered
}
