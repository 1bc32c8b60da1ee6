package trackd

import (
	"context"
	"sync"
	"time"
)

// DefaultAuditLogCapacity bounds the in-memory audit log when no explicit
// capacity is configured.
const DefaultAuditLogCapacity = 1000

// RingSink is an [AuditSink] that retains the most recent events in a
// fixed-capacity ring. When the ring is full the oldest event is evicted.
type RingSink struct {
	mu       sync.RWMutex
	capacity int
	events   []AuditEvent
	start    int
	count    int
	total    uint64
}

// AuditQuery selects events from a [RingSink]. Zero-value fields match
// everything; Success filters only when set.
type AuditQuery struct {
	UserID    string
	EventType string
	Since     time.Time
	Success   *bool
	Limit     int
}

// NewRingSink creates a ring sink holding at most capacity events.
// Non-positive capacities fall back to [DefaultAuditLogCapacity].
func NewRingSink(capacity int) *RingSink {
	if capacity <= 0 {
		capacity = DefaultAuditLogCapacity
	}
	return &RingSink{
		capacity: capacity,
		events:   make([]AuditEvent, capacity),
	}
}

// Emit appends the event, evicting the oldest entry when full.
func (s *RingSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := (s.start + s.count) % s.capacity
	s.events[idx] = event
	if s.count < s.capacity {
		s.count++
	} else {
		s.start = (s.start + 1) % s.capacity
	}
	s.total++
}

// Len returns the number of retained events.
func (s *RingSink) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Total returns the number of events ever emitted, including evicted ones.
func (s *RingSink) Total() uint64 {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.total
}

// Capacity returns the maximum number of retained events.
func (s *RingSink) Capacity() int {
	if s == nil {
		return 0
	}
	return s.capacity
}

// Recent returns up to n events, newest first. n <= 0 returns everything
// retained.
func (s *RingSink) Recent(n int) []AuditEvent {
	if s == nil {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > s.count {
		n = s.count
	}

	out := make([]AuditEvent, 0, n)
	for i := 0; i < n; i++ {
		idx := (s.start + s.count - 1 - i) % s.capacity
		out = append(out, s.events[idx])
	}
	return out
}

// Filter scans retained events oldest-first and returns those matching the
// query, in insertion order. Query.Limit caps the result when positive.
func (s *RingSink) Filter(q AuditQuery) []AuditEvent {
	if s == nil {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]AuditEvent, 0)
	for i := 0; i < s.count; i++ {
		event := s.events[(s.start+i)%s.capacity]
		if !matchesAudit(event, q) {
			continue
		}
		out = append(out, event)
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
	}
	return out
}

// Clear drops every retained event. The total counter is preserved.
func (s *RingSink) Clear() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start = 0
	s.count = 0
}

func matchesAudit(event AuditEvent, q AuditQuery) bool {
	if q.UserID != "" && event.UserID != q.UserID {
		return false
	}
	if q.EventType != "" && event.EventType != q.EventType {
		return false
	}
	if !q.Since.IsZero() && event.Timestamp.Before(q.Since) {
		return false
	}
	if q.Success != nil && event.Success != *q.Success {
		return false
	}
	return true
}
