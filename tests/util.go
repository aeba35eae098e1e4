package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/attendance"
	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  &isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateStudent creates an active student with roll number, branch and semester set.
func CreateStudent(
	t *testing.T,
	repo user.Repository,
	name, uname, rollNo, branch string,
	semester int,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	active := true
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     uname + "@test.ac.in",
		RollNo:    rollNo,
		Branch:    branch,
		Semester:  semester,
		Roles:     []string{user.RoleStudent},
		IsActive:  &active,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return usr
}

// CreateSession persists an attendance session with derived totals.
func CreateSession(
	t *testing.T,
	repo attendance.Repository,
	date time.Time,
	subjectID, subjectCode, subjectName, branch string,
	semester int,
	uploadedBy string,
	entries []attendance.Entry,
) attendance.Session {
	t.Helper()

	now := time.Now().UTC()
	sess := attendance.Session{
		Date:        attendance.NormalizeDate(date),
		SubjectID:   subjectID,
		SubjectCode: subjectCode,
		SubjectName: subjectName,
		Branch:      branch,
		Semester:    semester,
		UploadedBy:  uploadedBy,
		Entries:     entries,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	sess.RecomputeTotals()

	sess, err := repo.CreateSession(context.Background(), sess)
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return sess
}
