package cachesvc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core"
)

type testLogger struct{}

func (testLogger) Enable(bool)                  {}
func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}

func Test_memoryCache_GetSet(t *testing.T) {
	c := NewMemoryCache(testLogger{})

	_, ok := c.Get("nope")
	assert.False(t, ok)

	c.Set("k", 42, time.Minute)
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	c.Delete("k")
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func Test_memoryCache_ExpiredEntryIsAMiss(t *testing.T) {
	c := NewMemoryCache(testLogger{})

	c.Set("k", "v", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func Test_memoryCache_DeletePattern(t *testing.T) {
	c := NewMemoryCache(testLogger{})

	c.Set(core.AttendanceDashboardKey("s1"), 1, time.Minute)
	c.Set(core.AttendanceDetailKey("s1", "subj1"), 2, time.Minute)
	c.Set(core.AttendanceDashboardKey("s2"), 3, time.Minute)
	c.Set(core.MarksSummaryKey("s1"), 4, time.Minute)

	c.DeletePattern(core.AttendanceKeyPattern("s1"))

	_, ok := c.Get(core.AttendanceDashboardKey("s1"))
	assert.False(t, ok)
	_, ok = c.Get(core.AttendanceDetailKey("s1", "subj1"))
	assert.False(t, ok)

	// other students and other prefixes stay put
	_, ok = c.Get(core.AttendanceDashboardKey("s2"))
	assert.True(t, ok)
	_, ok = c.Get(core.MarksSummaryKey("s1"))
	assert.True(t, ok)
}

func Test_memoryCache_InvalidPatternIsANoop(t *testing.T) {
	c := NewMemoryCache(testLogger{})

	c.Set("k", "v", time.Minute)
	c.DeletePattern("([") // must not panic nor delete anything

	_, ok := c.Get("k")
	assert.True(t, ok)
}
