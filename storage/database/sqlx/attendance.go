package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/attendance"
)

// pq unique_violation
const uniqueViolation = "23505"

// entryList stores a session roster as a JSONB column.
type entryList []attendance.Entry

func (e entryList) Value() (driver.Value, error) {
	if e == nil {
		return "[]", nil
	}
	return json.Marshal(e)
}

func (e *entryList) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, e)
	case string:
		return json.Unmarshal([]byte(v), e)
	case nil:
		*e = nil
		return nil
	default:
		return errors.Errorf("unsupported entries column type %T", src)
	}
}

type dbSession struct {
	ID            string      `db:"id"`
	Date          time.Time   `db:"date"`
	SubjectID     string      `db:"subject_id"`
	SubjectCode   string      `db:"subject_code"`
	SubjectName   string      `db:"subject_name"`
	Branch        string      `db:"branch"`
	Semester      int         `db:"semester"`
	AcademicYear  null.String `db:"academic_year"`
	UploadedBy    null.String `db:"uploaded_by"`
	Entries       entryList   `db:"entries"`
	TotalPresent  int         `db:"total_present"`
	TotalAbsent   int         `db:"total_absent"`
	TotalStudents int         `db:"total_students"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo attendanceRepository) row(sess attendance.Session) dbSession {
	s := dbSession{
		Date:          attendance.NormalizeDate(sess.Date),
		SubjectID:     sess.SubjectID,
		SubjectCode:   sess.SubjectCode,
		SubjectName:   sess.SubjectName,
		Branch:        sess.Branch,
		Semester:      sess.Semester,
		AcademicYear:  null.NewString(sess.AcademicYear, sess.AcademicYear != ""),
		UploadedBy:    null.NewString(sess.UploadedBy, sess.UploadedBy != ""),
		Entries:       sess.Entries,
		TotalPresent:  sess.TotalPresent,
		TotalAbsent:   sess.TotalAbsent,
		TotalStudents: sess.TotalStudents,
		CreatedAt:     sess.CreatedAt.UTC(),
		UpdatedAt:     sess.UpdatedAt.UTC(),
	}
	if sess.ID != "" {
		s.ID = sess.ID
	}
	return s
}

func (repo attendanceRepository) unrow(s dbSession) attendance.Session {
	return attendance.Session{
		ID:            s.ID,
		Date:          attendance.NormalizeDate(s.Date),
		SubjectID:     s.SubjectID,
		SubjectCode:   s.SubjectCode,
		SubjectName:   s.SubjectName,
		Branch:        s.Branch,
		Semester:      s.Semester,
		AcademicYear:  s.AcademicYear.String,
		UploadedBy:    s.UploadedBy.String,
		Entries:       s.Entries,
		TotalPresent:  s.TotalPresent,
		TotalAbsent:   s.TotalAbsent,
		TotalStudents: s.TotalStudents,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to attendance.ErrSessionNotFound
func (repo attendanceRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return attendance.ErrSessionNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo attendanceRepository) CreateSession(ctx context.Context, sess attendance.Session) (attendance.Session, error) {
	sess.ID = uuid.New().String()
	s := repo.row(sess)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO attendance_session (id, date, subject_id, subject_code, subject_name, branch, semester, academic_year, uploaded_by, entries, total_present, total_absent, total_students, created_at, updated_at)
		VALUES (:id, :date, :subject_id, :subject_code, :subject_name, :branch, :semester, :academic_year, :uploaded_by, :entries, :total_present, :total_absent, :total_students, :created_at, :updated_at)`, s)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return attendance.Session{}, attendance.ErrSessionExists
		}
		return attendance.Session{}, errors.Wrap(err, "inserting attendance session")
	}
	return repo.unrow(s), nil
}

func (repo attendanceRepository) GetSessionByID(ctx context.Context, id string) (attendance.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return attendance.Session{}, attendance.ErrSessionNotFound
	}
	var row dbSession
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM attendance_session WHERE id = $1`, id)
	if err != nil {
		return attendance.Session{}, repo.trapNoRowsErr(err, "finding attendance session by ID")
	}
	return repo.unrow(row), nil
}

func (repo attendanceRepository) GetSessionByKey(ctx context.Context, key attendance.SessionKey) (attendance.Session, error) {
	var row dbSession
	err := repo.db.GetContext(ctx, &row, `
		SELECT * FROM attendance_session
		WHERE date = $1 AND subject_id = $2 AND branch = $3 AND semester = $4`,
		attendance.NormalizeDate(key.Date), key.SubjectID, key.Branch, key.Semester)
	if err != nil {
		return attendance.Session{}, repo.trapNoRowsErr(err, "finding attendance session by key")
	}
	return repo.unrow(row), nil
}

func (repo attendanceRepository) FilterSessions(ctx context.Context, filter attendance.QueryFilter) ([]attendance.Session, error) {
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	// sessions holding an entry for the student (JSONB containment)
	if filter.StudentID != "" {
		roster, err := json.Marshal([]map[string]string{{"studentId": filter.StudentID}})
		if err != nil {
			return nil, errors.Wrap(err, "building roster filter")
		}
		conds = append(conds, "entries @> "+arg(string(roster)))
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
	if !filter.DateFrom.IsZero() {
		conds = append(conds, "date >= "+arg(attendance.NormalizeDate(filter.DateFrom)))
	}
	if !filter.DateTo.IsZero() {
		conds = append(conds, "date <= "+arg(attendance.NormalizeDate(filter.DateTo)))
	}

	query := `SELECT * FROM attendance_session`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY date, subject_code"

	var rows []dbSession
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering attendance sessions")
	}
	sessions := make([]attendance.Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, repo.unrow(row))
	}
	return sessions, nil
}

func (repo attendanceRepository) UpdateSession(ctx context.Context, sess attendance.Session) (attendance.Session, error) {
	s := repo.row(sess)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE attendance_session
		SET entries = :entries, total_present = :total_present, total_absent = :total_absent,
		    total_students = :total_students, updated_at = :updated_at
		WHERE id = :id`, s)
	if err != nil {
		return attendance.Session{}, errors.Wrap(err, "updating attendance session")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return attendance.Session{}, attendance.ErrSessionNotFound
	}
	return repo.unrow(s), nil
}

func (repo attendanceRepository) DeleteSession(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM attendance_session WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting attendance session")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return attendance.ErrSessionNotFound
	}
	return nil
}
