package marks

import (
	"github.com/go-playground/validator/v10"

	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core"
)

var (
	examTypeTag  = "examtype"
	examTypeText = "examType must be one of mst1, mst2, final or assignment"
)

func init() {
	_ = core.Validate.RegisterValidation(examTypeTag, examTypeValidation)
	core.RegisterCustomTranslation(examTypeTag, examTypeText)
}

// NewRecord is one submitted score line.
type NewRecord struct {
	StudentID   string   `json:"studentId" validate:"required"`
	SubjectID   string   `json:"subjectId" validate:"required"`
	SubjectCode string   `json:"subjectCode" validate:"required"`
	SubjectName string   `json:"subjectName" validate:"required"`
	Branch      string   `json:"branch" validate:"required,branchcode"`
	Semester    int      `json:"semester" validate:"required,semester"`
	ExamType    ExamType `json:"examType" validate:"required,examtype"`
	Obtained    float64  `json:"obtained" validate:"min=0,ltefield=Maximum"`
	Maximum     float64  `json:"maximum" validate:"required,gt=0"`
}

// NewBatch is a bulk marks upload.
type NewBatch struct {
	Records []NewRecord `json:"records" validate:"required,min=1,dive"`
}

func (nb *NewBatch) Validate() error {
	for i := range nb.Records {
		nb.Records[i].SubjectCode = core.CleanString(nb.Records[i].SubjectCode)
		nb.Records[i].SubjectName = core.CleanString(nb.Records[i].SubjectName)
		nb.Records[i].Branch = core.CleanString(nb.Records[i].Branch)
	}
	return core.Validate.Struct(nb)
}

// examTypeValidation only allows supported exam types.
func examTypeValidation(fl validator.FieldLevel) bool {
	return ExamType(fl.Field().String()).Valid()
}
