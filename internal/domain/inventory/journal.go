package inventory

import (
	"fmt"
	"time"
)

// JournalEntry is one timestamped message appended by a successful add.
type JournalEntry struct {
	At      time.Time
	Message string
}

func (e JournalEntry) String() string {
	return fmt.Sprintf("%s: %s", e.At.Format(time.RFC3339Nano), e.Message)
}

// Journal is a caller-owned, ordered list of entries. It is not persisted and
// not safe for concurrent use.
type Journal struct {
	entries []JournalEntry
}

func (j *Journal) Append(at time.Time, message string) {
	j.entries = append(j.entries, JournalEntry{At: at, Message: message})
}

func (j *Journal) Len() int {
	if j == nil {
		return 0
	}
	return len(j.entries)
}

// Entries returns a copy of the entries in append order.
func (j *Journal) Entries() []JournalEntry {
	if j == nil {
		return nil
	}
	return append([]JournalEntry(nil), j.entries...)
}

// Lines renders every entry with JournalEntry.String.
func (j *Journal) Lines() []string {
	out := make([]string, 0, j.Len())
	for _, e := range j.Entries() {
		out = append(out, e.String())
	}
	return out
}
