package core

import (
	"fmt"
	"time"
)

// Cache memoizes expensive read results for a bounded time window.
//
// Implementations are best-effort and safe for concurrent use: a Get on an
// expired entry behaves exactly like a miss and removes the stale entry.
// Callers must never treat a miss (or a broken cache) as a failure — they
// fall back to live computation.
type Cache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)
	Delete(key string)
	// DeletePattern removes all entries whose key matches the given regular
	// expression. Used for prefix-wide invalidation on writes.
	DeletePattern(pattern string)
}

// Cache key scheme. Invalidation is prefix-wide per student: any attendance
// write drops every `attendance:<studentID>:*` entry, trading cache hits for
// never serving stale data past its TTL.
func AttendanceDashboardKey(studentID string) string {
	return fmt.Sprintf("attendance:%s:dashboard", studentID)
}

func AttendanceDetailKey(studentID, subjectID string) string {
	if subjectID == "" {
		return fmt.Sprintf("attendance:%s:detail", studentID)
	}
	return fmt.Sprintf("attendance:%s:detail:%s", studentID, subjectID)
}

func MarksSummaryKey(studentID string) string {
	return fmt.Sprintf("marks:%s:summary", studentID)
}

func AttendanceKeyPattern(studentID string) string {
	return fmt.Sprintf("^attendance:%s:", studentID)
}

func MarksKeyPattern(studentID string) string {
	return fmt.Sprintf("^marks:%s:", studentID)
}

// nopCache ignores writes and always misses. It stands in when no cache
// backend is configured so callers need no nil checks.
type nopCache struct{}

var _ Cache = (*nopCache)(nil)

func NewNopCache() Cache { return &nopCache{} }

func (nopCache) Get(string) (interface{}, bool)         { return nil, false }
func (nopCache) Set(string, interface{}, time.Duration) {}
func (nopCache) Delete(string)                          {}
func (nopCache) DeletePattern(string)                   {}
