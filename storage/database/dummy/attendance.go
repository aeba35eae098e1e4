package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/attendance"
)

type attendanceRepository struct {
	db *sessionTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db.attendance}
}

func (repo *attendanceRepository) query() []attendance.Session {
	sessions := make([]attendance.Session, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		sessions = append(sessions, *s)
	}
	return sessions
}

func (repo *attendanceRepository) CreateSession(_ context.Context, sess attendance.Session) (attendance.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := sess.Key()
	for _, s := range repo.db.table {
		if s.Key() == key {
			return attendance.Session{}, attendance.ErrSessionExists
		}
	}

	sess.ID = uuid.New().String()
	sess.Date = attendance.NormalizeDate(sess.Date)
	repo.db.table[sess.ID] = &sess
	return sess, nil
}

func (repo *attendanceRepository) GetSessionByID(_ context.Context, id string) (attendance.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sess, ok := repo.db.table[id]; ok {
		return *sess, nil
	}
	return attendance.Session{}, attendance.ErrSessionNotFound
}

func (repo *attendanceRepository) GetSessionByKey(_ context.Context, key attendance.SessionKey) (attendance.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, sess := range repo.db.table {
		if sess.Key() == key {
			return *sess, nil
		}
	}
	return attendance.Session{}, attendance.ErrSessionNotFound
}

func (repo *attendanceRepository) FilterSessions(_ context.Context, filter attendance.QueryFilter) ([]attendance.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sessions := repo.query()

	// sessions holding an entry for the student ?
	if filter.StudentID != "" {
		var filtered []attendance.Session
		for _, s := range sessions {
			for _, e := range s.Entries {
				if e.StudentID == filter.StudentID {
					filtered = append(filtered, s)
					break
				}
			}
		}
		sessions = filtered
	}
	if sessions != nil && filter.SubjectID != "" {
		var filtered []attendance.Session
		for _, s := range sessions {
			if s.SubjectID == filter.SubjectID {
				filtered = append(filtered, s)
			}
		}
		sessions = filtered
	}
	if sessions != nil && filter.Branch != "" {
		var filtered []attendance.Session
		for _, s := range sessions {
			if s.Branch == filter.Branch {
				filtered = append(filtered, s)
			}
		}
		sessions = filtered
	}
	if sessions != nil && filter.Semester != 0 {
		var filtered []attendance.Session
		for _, s := range sessions {
			if s.Semester == filter.Semester {
				filtered = append(filtered, s)
			}
		}
		sessions = filtered
	}
	if sessions != nil && !filter.DateFrom.IsZero() {
		var filtered []attendance.Session
		from := attendance.NormalizeDate(filter.DateFrom)
		for _, s := range sessions {
			if !s.Date.Before(from) {
				filtered = append(filtered, s)
			}
		}
		sessions = filtered
	}
	if sessions != nil && !filter.DateTo.IsZero() {
		var filtered []attendance.Session
		to := attendance.NormalizeDate(filter.DateTo)
		for _, s := range sessions {
			if !s.Date.After(to) {
				filtered = append(filtered, s)
			}
		}
		sessions = filtered
	}

	return sessions, nil
}

func (repo *attendanceRepository) UpdateSession(_ context.Context, sess attendance.Session) (attendance.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[sess.ID]; !ok {
		return attendance.Session{}, attendance.ErrSessionNotFound
	}
	sess.Date = attendance.NormalizeDate(sess.Date)
	repo.db.table[sess.ID] = &sess
	return sess, nil
}

func (repo *attendanceRepository) DeleteSession(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return attendance.ErrSessionNotFound
	}
	delete(repo.db.table, id)
	return nil
}
