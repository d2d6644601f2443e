package store

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Document is one stored document as returned by reads and snapshots.
// Data is in JSON form: nested maps, []any, strings, float64 and bool.
// Timestamps written through ServerTimestamp or as time.Time are RFC 3339 strings.
type Document struct {
	CreateTime time.Time
	UpdateTime time.Time
	Data       map[string]any
	ID         string
	Path       string
}

// DataTo decodes the document data into dest, typically a pointer to a
// domain struct with json tags.
func (d *Document) DataTo(dest any) error {
	raw, err := json.Marshal(d.Data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.Path, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", d.Path, err)
	}
	return nil
}

// record is the stored form of a document.
type record struct {
	CreateTime time.Time      `json:"create_time"`
	UpdateTime time.Time      `json:"update_time"`
	Data       map[string]any `json:"data"`
}

func (r *record) document(collection, id string) *Document {
	return &Document{
		ID:         id,
		Path:       collection + "/" + id,
		Data:       r.Data,
		CreateTime: r.CreateTime,
		UpdateTime: r.UpdateTime,
	}
}

// clock hands out strictly increasing commit timestamps, so documents
// ordered by a server timestamp never tie.
type clock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func newClock() *clock {
	return &clock{now: time.Now}
}

func (c *clock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Round(0)
	if !t.After(c.last) {
		t = c.last.Add(time.Nanosecond)
	}
	c.last = t
	return t
}
