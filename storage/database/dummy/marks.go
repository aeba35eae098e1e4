package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/marks"
)

type marksRepository struct {
	db *marksTable
}

var _ marks.Repository = (*marksRepository)(nil) // interface compliance check

func NewMarksRepository(db *DB) *marksRepository {
	return &marksRepository{db: db.marks}
}

func (repo *marksRepository) CreateRecords(_ context.Context, recs []marks.Record) ([]marks.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	created := make([]marks.Record, 0, len(recs))
	for _, rec := range recs {
		rec := rec
		rec.ID = uuid.New().String()
		repo.db.table[rec.ID] = &rec
		created = append(created, rec)
	}
	return created, nil
}

func (repo *marksRepository) FilterRecords(_ context.Context, filter marks.QueryFilter) ([]marks.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var ids map[string]struct{}
	if len(filter.IDs) > 0 {
		ids = make(map[string]struct{}, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = struct{}{}
		}
	}

	recs := make([]marks.Record, 0, len(repo.db.table))
	for _, rec := range repo.db.table {
		if ids != nil {
			if _, ok := ids[rec.ID]; !ok {
				continue
			}
		}
		if filter.StudentID != "" && rec.StudentID != filter.StudentID {
			continue
		}
		if filter.SubjectID != "" && rec.SubjectID != filter.SubjectID {
			continue
		}
		if filter.Branch != "" && rec.Branch != filter.Branch {
			continue
		}
		if filter.Semester != 0 && rec.Semester != filter.Semester {
			continue
		}
		if filter.ExamType != "" && rec.ExamType != filter.ExamType {
			continue
		}
		recs = append(recs, *rec)
	}
	return recs, nil
}

func (repo *marksRepository) DeleteRecordsByID(_ context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}
