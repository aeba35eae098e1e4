package marks_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core"
	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/marks"
	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/user"
	cachesvc "github.com/CreatesRahul-Lab/IKGPTU-sub000/services/cache"
	dummydb "github.com/CreatesRahul-Lab/IKGPTU-sub000/storage/database/dummy"
	testutil "github.com/CreatesRahul-Lab/IKGPTU-sub000/tests"
)

type testLogger struct{}

func (testLogger) Enable(bool)                  {}
func (testLogger) Debug(string, ...interface{}) {}
func (testLogger) Info(string, ...interface{})  {}
func (testLogger) Warn(string, ...interface{})  {}
func (testLogger) Error(string, ...interface{}) {}
func (testLogger) Fatal(string, ...interface{}) {}

type testEnv struct {
	svc     marks.Service
	usrRepo user.Repository
	cache   core.Cache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)

	env := &testEnv{
		usrRepo: dummydb.NewUserRepository(db),
		cache:   cachesvc.NewMemoryCache(testLogger{}),
	}
	env.svc = marks.NewService(dummydb.NewMarksRepository(db), env.usrRepo, env.cache)
	return env
}

func newRecord(usr user.User, subjectID, subjectCode string, exam marks.ExamType, obtained, maximum float64) marks.NewRecord {
	return marks.NewRecord{
		StudentID:   usr.ID,
		SubjectID:   subjectID,
		SubjectCode: subjectCode,
		SubjectName: subjectCode,
		Branch:      core.BranchBTCS,
		Semester:    5,
		ExamType:    exam,
		Obtained:    obtained,
		Maximum:     maximum,
	}
}

func Test_service_StudentSummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.ac.in", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateStudent(t, env.usrRepo, "Hero", "hero", "2203521", core.BranchBTCS, 5)

	t.Run("unknown student is an error", func(t *testing.T) {
		_, err := env.svc.StudentSummary(ctx, "lol")
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("no records is a valid empty summary", func(t *testing.T) {
		sum, err := env.svc.StudentSummary(ctx, student.ID)
		require.NoError(t, err)
		assert.Empty(t, sum.Subjects)
		assert.Equal(t, float64(0), sum.Percentage)
	})

	_, err := env.svc.UploadBatch(ctx, teacher.ID, marks.NewBatch{Records: []marks.NewRecord{
		newRecord(student, "sub-math", "BTAM204", marks.ExamMST1, 18, 24),
		newRecord(student, "sub-math", "BTAM204", marks.ExamFinal, 45, 60),
		newRecord(student, "sub-os", "BTCS501", marks.ExamMST1, 12, 24),
	}})
	require.NoError(t, err)

	sum, err := env.svc.StudentSummary(ctx, student.ID)
	require.NoError(t, err)

	// grouped per subject, subjects sorted by code, exams by type
	require.Len(t, sum.Subjects, 2)
	math, os := sum.Subjects[0], sum.Subjects[1]
	assert.Equal(t, "BTAM204", math.Subject.Code)
	require.Len(t, math.Exams, 2)
	assert.Equal(t, marks.ExamFinal, math.Exams[0].ExamType)
	assert.Equal(t, float64(63), math.Obtained)
	assert.Equal(t, float64(84), math.Maximum)
	assert.Equal(t, float64(75), math.Percentage)

	assert.Equal(t, "BTCS501", os.Subject.Code)
	assert.Equal(t, float64(50), os.Percentage)

	assert.Equal(t, float64(75), sum.Obtained)
	assert.Equal(t, float64(108), sum.Maximum)
	assert.Equal(t, 69.44, sum.Percentage)
}

func Test_service_UploadBatch_invalidatesSummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.ac.in", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateStudent(t, env.usrRepo, "Hero", "hero", "2203521", core.BranchBTCS, 5)

	upload := func(exam marks.ExamType, obtained float64) {
		_, err := env.svc.UploadBatch(ctx, teacher.ID, marks.NewBatch{Records: []marks.NewRecord{
			newRecord(student, "sub-math", "BTAM204", exam, obtained, 24),
		}})
		require.NoError(t, err)
	}
	upload(marks.ExamMST1, 12)

	sum, err := env.svc.StudentSummary(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(50), sum.Percentage)

	_, hit := env.cache.Get(core.MarksSummaryKey(student.ID))
	require.True(t, hit, "summary should be memoized")

	// new marks must surface on the very next read
	upload(marks.ExamMST2, 24)

	_, hit = env.cache.Get(core.MarksSummaryKey(student.ID))
	assert.False(t, hit, "upload should drop the memoized summary")

	sum, err = env.svc.StudentSummary(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(75), sum.Percentage)
}

func Test_service_Delete_invalidatesSummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.ac.in", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateStudent(t, env.usrRepo, "Hero", "hero", "2203521", core.BranchBTCS, 5)

	recs, err := env.svc.UploadBatch(ctx, teacher.ID, marks.NewBatch{Records: []marks.NewRecord{
		newRecord(student, "sub-math", "BTAM204", marks.ExamMST1, 18, 24),
		newRecord(student, "sub-os", "BTCS501", marks.ExamMST1, 12, 24),
	}})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	sum, err := env.svc.StudentSummary(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, sum.Subjects, 2)

	require.NoError(t, env.svc.Delete(ctx, recs[1].ID))

	sum, err = env.svc.StudentSummary(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, sum.Subjects, 1)
	assert.Equal(t, "BTAM204", sum.Subjects[0].Subject.Code)
}

func Test_service_UploadBatch_recordsStayDistinct(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.ac.in", "", []string{user.RoleTeacher}, true)
	s1 := testutil.CreateStudent(t, env.usrRepo, "Hero", "hero", "2203521", core.BranchBTCS, 5)
	s2 := testutil.CreateStudent(t, env.usrRepo, "Other", "other", "2203522", core.BranchBTCS, 5)

	created, err := env.svc.UploadBatch(ctx, teacher.ID, marks.NewBatch{Records: []marks.NewRecord{
		newRecord(s1, "sub-math", "BTAM204", marks.ExamMST1, 18, 24),
		newRecord(s2, "sub-math", "BTAM204", marks.ExamMST1, 20, 24),
		newRecord(s1, "sub-os", "BTCS501", marks.ExamMST1, 12, 24),
	}})
	require.NoError(t, err)
	require.Len(t, created, 3)

	ids := make(map[string]struct{}, len(created))
	for _, rec := range created {
		ids[rec.ID] = struct{}{}
	}
	assert.Len(t, ids, 3)

	// the stored rows must match what was uploaded, not 3 copies of the last one
	recs, err := env.svc.Filter(ctx, marks.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	byStudent := make(map[string]int, 2)
	for _, rec := range recs {
		byStudent[rec.StudentID]++
	}
	assert.Equal(t, 2, byStudent[s1.ID])
	assert.Equal(t, 1, byStudent[s2.ID])
}

func Test_service_Filter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.ac.in", "", []string{user.RoleTeacher}, true)
	s1 := testutil.CreateStudent(t, env.usrRepo, "Hero", "hero", "2203521", core.BranchBTCS, 5)
	s2 := testutil.CreateStudent(t, env.usrRepo, "Other", "other", "2203522", core.BranchBTCS, 5)

	created, err := env.svc.UploadBatch(ctx, teacher.ID, marks.NewBatch{Records: []marks.NewRecord{
		newRecord(s1, "sub-math", "BTAM204", marks.ExamMST1, 18, 24),
		newRecord(s1, "sub-math", "BTAM204", marks.ExamFinal, 45, 60),
		newRecord(s2, "sub-math", "BTAM204", marks.ExamMST1, 20, 24),
	}})
	require.NoError(t, err)

	recs, err := env.svc.Filter(ctx, marks.QueryFilter{StudentID: s1.ID})
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = env.svc.Filter(ctx, marks.QueryFilter{ExamType: marks.ExamMST1})
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = env.svc.Filter(ctx, marks.QueryFilter{IDs: []string{created[0].ID, created[2].ID}})
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = env.svc.Filter(ctx, marks.QueryFilter{StudentID: s2.ID, ExamType: marks.ExamFinal})
	require.NoError(t, err)
	assert.Empty(t, recs)
}
