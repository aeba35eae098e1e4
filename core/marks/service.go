package marks

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core"
	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/user"
)

type (
	Repository interface {
		CreateRecords(ctx context.Context, recs []Record) ([]Record, error)
		FilterRecords(ctx context.Context, filter QueryFilter) ([]Record, error)
		DeleteRecordsByID(ctx context.Context, ids ...string) error
	}

	// Service is the marks domain API surface.
	Service interface {
		UploadBatch(ctx context.Context, uploadedBy string, nb NewBatch) ([]Record, error)
		StudentSummary(ctx context.Context, studentID string) (Summary, error)
		Filter(ctx context.Context, filter QueryFilter) ([]Record, error)
		Delete(ctx context.Context, ids ...string) error
	}

	service struct {
		repo  Repository
		users user.Repository
		cache core.Cache
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, users user.Repository, cache core.Cache) *service {
	if cache == nil {
		cache = core.NewNopCache()
	}
	return &service{
		repo:  repo,
		users: users,
		cache: cache,
	}
}

func (svc *service) UploadBatch(ctx context.Context, uploadedBy string, nb NewBatch) ([]Record, error) {
	now := time.Now().UTC()
	recs := make([]Record, 0, len(nb.Records))
	for _, nr := range nb.Records {
		recs = append(recs, Record{
			StudentID:   nr.StudentID,
			SubjectID:   nr.SubjectID,
			SubjectCode: nr.SubjectCode,
			SubjectName: nr.SubjectName,
			Branch:      nr.Branch,
			Semester:    nr.Semester,
			ExamType:    nr.ExamType,
			Obtained:    nr.Obtained,
			Maximum:     nr.Maximum,
			UploadedBy:  uploadedBy,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	recs, err := svc.repo.CreateRecords(ctx, recs)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		if _, ok := seen[rec.StudentID]; ok {
			continue
		}
		seen[rec.StudentID] = struct{}{}
		svc.cache.DeletePattern(core.MarksKeyPattern(rec.StudentID))
	}
	return recs, nil
}

func (svc *service) StudentSummary(ctx context.Context, studentID string) (Summary, error) {
	if _, err := svc.users.GetUserByID(ctx, studentID); err != nil {
		return Summary{}, err
	}

	key := core.MarksSummaryKey(studentID)
	if v, ok := svc.cache.Get(key); ok {
		if sum, ok := v.(Summary); ok {
			return sum, nil
		}
	}

	recs, err := svc.repo.FilterRecords(ctx, QueryFilter{StudentID: studentID})
	if err != nil {
		return Summary{}, err
	}
	sum := buildSummary(recs)

	svc.cache.Set(key, sum, core.Conf.Cache.MarksTTL)
	return sum, nil
}

func (svc *service) Filter(ctx context.Context, filter QueryFilter) ([]Record, error) {
	return svc.repo.FilterRecords(ctx, filter)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	recs, err := svc.repo.FilterRecords(ctx, QueryFilter{IDs: ids})
	if err != nil {
		return err
	}
	if err := svc.repo.DeleteRecordsByID(ctx, ids...); err != nil {
		return err
	}
	invalidated := make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		if _, ok := invalidated[rec.StudentID]; ok {
			continue
		}
		invalidated[rec.StudentID] = struct{}{}
		svc.cache.DeletePattern(core.MarksKeyPattern(rec.StudentID))
	}
	return nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func pct(obtained, maximum float64) float64 {
	if maximum == 0 {
		return 0
	}
	return round2(obtained / maximum * 100)
}

func buildSummary(recs []Record) Summary {
	bySubject := make(map[string]*SubjectMarks)
	for _, rec := range recs {
		sm, ok := bySubject[rec.SubjectID]
		if !ok {
			sm = &SubjectMarks{Subject: SubjectRef{
				ID:   rec.SubjectID,
				Code: rec.SubjectCode,
				Name: rec.SubjectName,
			}}
			bySubject[rec.SubjectID] = sm
		}
		sm.Exams = append(sm.Exams, ExamScore{
			ExamType:   rec.ExamType,
			Obtained:   rec.Obtained,
			Maximum:    rec.Maximum,
			Percentage: pct(rec.Obtained, rec.Maximum),
		})
		sm.Obtained += rec.Obtained
		sm.Maximum += rec.Maximum
	}

	sum := Summary{Subjects: make([]SubjectMarks, 0, len(bySubject))}
	for _, sm := range bySubject {
		sm.Percentage = pct(sm.Obtained, sm.Maximum)
		sort.Slice(sm.Exams, func(i, j int) bool { return sm.Exams[i].ExamType < sm.Exams[j].ExamType })
		sum.Subjects = append(sum.Subjects, *sm)
		sum.Obtained += sm.Obtained
		sum.Maximum += sm.Maximum
	}
	sum.Percentage = pct(sum.Obtained, sum.Maximum)
	sort.Slice(sum.Subjects, func(i, j int) bool {
		return sum.Subjects[i].Subject.Code < sum.Subjects[j].Subject.Code
	})
	return sum
}
