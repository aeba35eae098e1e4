package attendance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core"
)

var (
	statusTag  = "attstatus"
	statusText = "status must be one of present, absent or onleave"

	uniqueStudentsTag  = "uniquestudents"
	uniqueStudentsText = "duplicate student entries in roster"
)

func init() {
	_ = core.Validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(statusTag, statusText)

	core.Validate.RegisterStructValidation(sessionStructValidation, NewSession{})
	core.Validate.RegisterStructValidation(sessionStructValidation, EditSession{})
	core.RegisterCustomTranslation(uniqueStudentsTag, uniqueStudentsText)
}

// NewEntry is one submitted roster line.
type NewEntry struct {
	StudentID string `json:"studentId" validate:"required"`
	RollNo    string `json:"rollNo"`
	Name      string `json:"name"`
	Status    Status `json:"status" validate:"required,attstatus"`
}

// NewSession contains information needed to upload a Session.
type NewSession struct {
	Date         string     `json:"date" validate:"required,datetime=2006-01-02"`
	SubjectID    string     `json:"subjectId" validate:"required"`
	SubjectCode  string     `json:"subjectCode" validate:"required"`
	SubjectName  string     `json:"subjectName" validate:"required"`
	Branch       string     `json:"branch" validate:"required,branchcode"`
	Semester     int        `json:"semester" validate:"required,semester"`
	AcademicYear string     `json:"academicYear"`
	Records      []NewEntry `json:"records" validate:"required,min=1,dive"`
}

func (ns *NewSession) Validate() error {
	ns.SubjectID = core.CleanString(ns.SubjectID)
	ns.SubjectCode = core.CleanString(ns.SubjectCode)
	ns.SubjectName = core.CleanString(ns.SubjectName)
	ns.Branch = core.CleanString(ns.Branch)
	return core.Validate.Struct(ns)
}

// ParsedDate returns the upload date as a UTC calendar day.
// Only valid after a successful Validate.
func (ns NewSession) ParsedDate() time.Time {
	t, _ := time.Parse("2006-01-02", ns.Date)
	return NormalizeDate(t)
}

// EditSession replaces the full roster of an existing Session.
// Partial entry patches are not supported.
type EditSession struct {
	Records []NewEntry `json:"records" validate:"required,min=1,dive"`
}

func (es *EditSession) Validate() error {
	return core.Validate.Struct(es)
}

// Custom Validators

// statusValidation only allows supported attendance statuses.
func statusValidation(fl validator.FieldLevel) bool {
	return Status(fl.Field().String()).Valid()
}

// sessionStructValidation rejects rosters holding a student more than once.
func sessionStructValidation(sl validator.StructLevel) {
	var records []NewEntry
	switch s := sl.Current().Interface().(type) {
	case NewSession:
		records = s.Records
	case EditSession:
		records = s.Records
	}

	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.StudentID]; ok {
			sl.ReportError(records, "records", "Records", uniqueStudentsTag, "")
			return
		}
		seen[rec.StudentID] = struct{}{}
	}
}
