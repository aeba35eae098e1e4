package sqlxrepos

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/marks"
)

type dbMark struct {
	ID          string      `db:"id"`
	StudentID   string      `db:"student_id"`
	SubjectID   string      `db:"subject_id"`
	SubjectCode string      `db:"subject_code"`
	SubjectName string      `db:"subject_name"`
	Branch      string      `db:"branch"`
	Semester    int         `db:"semester"`
	ExamType    string      `db:"exam_type"`
	Obtained    float64     `db:"obtained"`
	Maximum     float64     `db:"maximum"`
	UploadedBy  null.String `db:"uploaded_by"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

type marksRepository struct {
	db *sqlx.DB
}

var _ marks.Repository = (*marksRepository)(nil) // interface compliance check

func NewMarksRepository(db *sqlx.DB) *marksRepository {
	return &marksRepository{db: db}
}

func (repo marksRepository) row(rec marks.Record) dbMark {
	m := dbMark{
		StudentID:   rec.StudentID,
		SubjectID:   rec.SubjectID,
		SubjectCode: rec.SubjectCode,
		SubjectName: rec.SubjectName,
		Branch:      rec.Branch,
		Semester:    rec.Semester,
		ExamType:    string(rec.ExamType),
		Obtained:    rec.Obtained,
		Maximum:     rec.Maximum,
		UploadedBy:  null.NewString(rec.UploadedBy, rec.UploadedBy != ""),
		CreatedAt:   rec.CreatedAt.UTC(),
		UpdatedAt:   rec.UpdatedAt.UTC(),
	}
	if rec.ID != "" {
		m.ID = rec.ID
	}
	return m
}

func (repo marksRepository) unrow(m dbMark) marks.Record {
	return marks.Record{
		ID:          m.ID,
		StudentID:   m.StudentID,
		SubjectID:   m.SubjectID,
		SubjectCode: m.SubjectCode,
		SubjectName: m.SubjectName,
		Branch:      m.Branch,
		Semester:    m.Semester,
		ExamType:    marks.ExamType(m.ExamType),
		Obtained:    m.Obtained,
		Maximum:     m.Maximum,
		UploadedBy:  m.UploadedBy.String,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func (repo marksRepository) CreateRecords(ctx context.Context, recs []marks.Record) ([]marks.Record, error) {
	if len(recs) == 0 {
		return recs, nil
	}

	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning marks insert")
	}
	defer func() { _ = tx.Rollback() }()

	created := make([]marks.Record, 0, len(recs))
	for _, rec := range recs {
		rec.ID = uuid.New().String()
		m := repo.row(rec)
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO mark (id, student_id, subject_id, subject_code, subject_name, branch, semester, exam_type, obtained, maximum, uploaded_by, created_at, updated_at)
			VALUES (:id, :student_id, :subject_id, :subject_code, :subject_name, :branch, :semester, :exam_type, :obtained, :maximum, :uploaded_by, :created_at, :updated_at)`, m)
		if err != nil {
			return nil, errors.Wrap(err, "inserting mark")
		}
		created = append(created, repo.unrow(m))
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing marks insert")
	}
	return created, nil
}

func (repo marksRepository) FilterRecords(ctx context.Context, filter marks.QueryFilter) ([]marks.Record, error) {
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filter.IDs) > 0 {
		conds = append(conds, "id = ANY("+arg(pq.Array(filter.IDs))+")")
	}
	if filter.StudentID != "" {
		conds = append(conds, "student_id = "+arg(filter.StudentID))
	}
	if filter.SubjectID != "" {
		conds = append(conds, "subject_id = "+arg(filter.SubjectID))
	}
	if filter.Branch != "" {
		conds = append(conds, "branch = "+arg(filter.Branch))
	}
	if filter.Semester != 0 {
		conds = append(conds, "semester = "+arg(filter.Semester))
	}
	if filter.ExamType != "" {
		conds = append(conds, "exam_type = "+arg(string(filter.ExamType)))
	}

	query := `SELECT * FROM mark`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY subject_code, exam_type"

	var rows []dbMark
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering marks")
	}
	recs := make([]marks.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, repo.unrow(row))
	}
	return recs, nil
}

func (repo marksRepository) DeleteRecordsByID(ctx context.Context, ids ...string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM mark WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting marks")
	}
	return nil
}
