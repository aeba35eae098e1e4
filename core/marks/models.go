package marks

import (
	"time"
)

// ExamType is the assessment a mark was scored in.
type ExamType string

const (
	ExamMST1       ExamType = "mst1"
	ExamMST2       ExamType = "mst2"
	ExamFinal      ExamType = "final"
	ExamAssignment ExamType = "assignment"
)

func (e ExamType) Valid() bool {
	switch e {
	case ExamMST1, ExamMST2, ExamFinal, ExamAssignment:
		return true
	default:
		return false
	}
}

// Record is one student's score for one subject and exam.
type Record struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"studentId"`
	SubjectID   string    `json:"subjectId"`
	SubjectCode string    `json:"subjectCode"`
	SubjectName string    `json:"subjectName"`
	Branch      string    `json:"branch"`
	Semester    int       `json:"semester"`
	ExamType    ExamType  `json:"examType"`
	Obtained    float64   `json:"obtained"`
	Maximum     float64   `json:"maximum"`
	UploadedBy  string    `json:"uploadedBy"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// QueryFilter narrows down a marks listing. All fields are optional and are
// combined with AND.
type QueryFilter struct {
	IDs       []string
	StudentID string
	SubjectID string
	Branch    string
	Semester  int
	ExamType  ExamType
}

// Derived summaries; recomputed from records at read time, optionally cached.

type ExamScore struct {
	ExamType   ExamType `json:"examType"`
	Obtained   float64  `json:"obtained"`
	Maximum    float64  `json:"maximum"`
	Percentage float64  `json:"percentage"`
}

type SubjectRef struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type SubjectMarks struct {
	Subject    SubjectRef  `json:"subject"`
	Exams      []ExamScore `json:"exams"`
	Obtained   float64     `json:"obtained"`
	Maximum    float64     `json:"maximum"`
	Percentage float64     `json:"percentage"`
}

// Summary is a student's marks roll-up across subjects, sorted by subject code.
type Summary struct {
	Subjects   []SubjectMarks `json:"subjects"`
	Obtained   float64        `json:"obtained"`
	Maximum    float64        `json:"maximum"`
	Percentage float64        `json:"percentage"`
}
