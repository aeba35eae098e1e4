package attendance

import (
	"time"
)

// Status is one student's recorded state within a session.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusOnLeave Status = "onleave"
)

// Valid returns true when the status is a supported value.
func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusOnLeave:
		return true
	default:
		return false
	}
}

// Attended reports whether the status counts toward the numerator of the
// attendance percentage. Sanctioned leave is not held against the student.
func (s Status) Attended() bool {
	return s == StatusPresent || s == StatusOnLeave
}

// Entry is one student's recorded status within a Session.
type Entry struct {
	StudentID string `json:"studentId"`
	RollNo    string `json:"rollNo"`
	Name      string `json:"name"`
	Status    Status `json:"status"`
}

// Session is one attendance-taking event for a specific subject, date, branch
// and semester. At most one session exists per SessionKey.
type Session struct {
	ID            string    `json:"id"`
	Date          time.Time `json:"date"` // calendar day, UTC midnight
	SubjectID     string    `json:"subjectId"`
	SubjectCode   string    `json:"subjectCode"`
	SubjectName   string    `json:"subjectName"`
	Branch        string    `json:"branch"`
	Semester      int       `json:"semester"`
	AcademicYear  string    `json:"academicYear,omitempty"`
	UploadedBy    string    `json:"uploadedBy"`
	Entries       []Entry   `json:"records"`
	TotalPresent  int       `json:"totalPresent"`
	TotalAbsent   int       `json:"totalAbsent"`
	TotalStudents int       `json:"totalStudents"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

// SessionKey is the uniqueness key of a Session.
type SessionKey struct {
	Date      time.Time
	SubjectID string
	Branch    string
	Semester  int
}

func (s *Session) Key() SessionKey {
	return SessionKey{
		Date:      NormalizeDate(s.Date),
		SubjectID: s.SubjectID,
		Branch:    s.Branch,
		Semester:  s.Semester,
	}
}

// RecomputeTotals derives the session counters from its entry list.
// Client-submitted totals are never trusted.
func (s *Session) RecomputeTotals() {
	var present, absent int
	for _, e := range s.Entries {
		if e.Status.Attended() {
			present++
		} else {
			absent++
		}
	}
	s.TotalPresent = present
	s.TotalAbsent = absent
	s.TotalStudents = len(s.Entries)
}

// StudentIDs returns the distinct student identities on the session roster.
func (s *Session) StudentIDs() []string {
	seen := make(map[string]struct{}, len(s.Entries))
	ids := make([]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		if _, ok := seen[e.StudentID]; ok {
			continue
		}
		seen[e.StudentID] = struct{}{}
		ids = append(ids, e.StudentID)
	}
	return ids
}

// NormalizeDate strips the time component, keeping the UTC calendar day.
func NormalizeDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// QueryFilter narrows down a session listing. All fields are optional and are
// combined with AND.
type QueryFilter struct {
	StudentID string
	SubjectID string
	Branch    string
	Semester  int
	DateFrom  time.Time
	DateTo    time.Time
}

func (f QueryFilter) HasDateRange() bool {
	return !f.DateFrom.IsZero() || !f.DateTo.IsZero()
}

// Derived results. Percentages are always recomputed from the underlying
// sessions at read time (optionally cached); they are never a source of truth.

// Stats is the aggregate for one (student, subject) scope.
// PresentClasses + AbsentClasses == TotalClasses exactly.
type Stats struct {
	TotalClasses   int     `json:"totalClasses"`
	PresentClasses int     `json:"presentClasses"`
	AbsentClasses  int     `json:"absentClasses"`
	Percentage     float64 `json:"percentage"`
}

// SubjectRef identifies a subject on the wire.
type SubjectRef struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Record is one row of a student's attendance detail listing.
type Record struct {
	ID      string     `json:"id"`
	Date    time.Time  `json:"date"`
	Subject SubjectRef `json:"subject"`
	Status  Status     `json:"status"`
}

// SubjectStat is a student's aggregate for a single subject.
type SubjectStat struct {
	Subject         SubjectRef `json:"subject"`
	TotalClasses    int        `json:"totalClasses"`
	AttendedClasses int        `json:"attendedClasses"`
	Percentage      float64    `json:"percentage"`
}

// StudentStats is the read-endpoint payload for one student.
// Stats is present only when the query is subject-scoped; Subjects carries the
// per-subject breakdown otherwise.
type StudentStats struct {
	Attendance []Record      `json:"attendance"`
	Stats      *Stats        `json:"stats"`
	Subjects   []SubjectStat `json:"subjects,omitempty"`
}

// OverallStats is the institution-wide roll-up of a branch report.
type OverallStats struct {
	TotalStudents     int     `json:"totalStudents"`
	TotalClasses      int     `json:"totalClasses"`
	TotalPresent      int     `json:"totalPresent"`
	AveragePercentage float64 `json:"averagePercentage"`
}

// BranchRow is the per-branch breakdown of a branch report.
type BranchRow struct {
	Branch        string  `json:"branch"`
	TotalStudents int     `json:"totalStudents"`
	TotalClasses  int     `json:"totalClasses"`
	TotalPresent  int     `json:"totalPresent"`
	Percentage    float64 `json:"percentage"`
}

// SubjectRow is the per-subject breakdown of a branch report.
type SubjectRow struct {
	Subject      SubjectRef `json:"subject"`
	TotalClasses int        `json:"totalClasses"`
	TotalPresent int        `json:"totalPresent"`
	Percentage   float64    `json:"percentage"`
}

// LowAttendanceRow flags a student strictly below the threshold with at least
// one recorded session.
type LowAttendanceRow struct {
	StudentID   string  `json:"studentId"`
	StudentName string  `json:"studentName"`
	RollNo      string  `json:"rollNo"`
	Branch      string  `json:"branch"`
	Semester    int     `json:"semester"`
	Percentage  float64 `json:"percentage"`
}

// BranchReport is the admin-facing institution report.
type BranchReport struct {
	Overall       OverallStats       `json:"overall"`
	ByBranch      []BranchRow        `json:"byBranch"`
	BySubject     []SubjectRow       `json:"bySubject"`
	LowAttendance []LowAttendanceRow `json:"lowAttendance"`
}

// CompileRow is one student's line of a teacher-facing bulk computation.
type CompileRow struct {
	StudentID            string  `json:"studentId"`
	Name                 string  `json:"name"`
	RollNo               string  `json:"rollNo"`
	TotalClasses         int     `json:"totalClasses"`
	AttendedClasses      int     `json:"attendedClasses"`
	AttendancePercentage float64 `json:"attendancePercentage"`
}

// CompileSummary counts students on either side of the threshold; students
// with zero recorded sessions fall on neither side.
type CompileSummary struct {
	TotalStudents     int     `json:"totalStudents"`
	GoodAttendance    int     `json:"goodAttendance"`
	LowAttendance     int     `json:"lowAttendance"`
	AverageAttendance float64 `json:"averageAttendance"`
}

// CompileResult is the teacher-facing bulk percentage computation payload.
type CompileResult struct {
	Students []CompileRow   `json:"students"`
	Summary  CompileSummary `json:"summary"`
}
