package attendance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"sort"
	"time"

	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core"
	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/user"
)

// LowAttendanceThreshold is the percentage strictly below which a student is
// flagged, provided they have at least one recorded session.
const LowAttendanceThreshold = 75.0

var (
	// errors
	ErrSessionNotFound = errors.New("attendance session not found")
	ErrSessionExists   = errors.New("attendance already uploaded for this date, subject, branch and semester")
)

type (
	Repository interface {
		// CreateSession returns ErrSessionExists when a session with the same
		// SessionKey already exists.
		CreateSession(ctx context.Context, sess Session) (Session, error)
		GetSessionByID(ctx context.Context, id string) (Session, error)
		GetSessionByKey(ctx context.Context, key SessionKey) (Session, error)
		// FilterSessions applies AND operation on available QueryFilter fields.
		// QueryFilter.StudentID matches sessions holding an entry for that student.
		FilterSessions(ctx context.Context, filter QueryFilter) ([]Session, error)
		UpdateSession(ctx context.Context, sess Session) (Session, error)
		DeleteSession(ctx context.Context, id string) error
	}

	// Service is the attendance domain API surface.
	Service interface {
		Upload(ctx context.Context, uploadedBy string, ns NewSession) (Session, error)
		Edit(ctx context.Context, id string, es EditSession) (Session, error)
		Delete(ctx context.Context, id string) error
		GetByID(ctx context.Context, id string) (Session, error)
		StudentStats(ctx context.Context, studentID string, filter QueryFilter) (StudentStats, error)
		BranchReport(ctx context.Context, filter QueryFilter) (BranchReport, error)
		Compile(ctx context.Context, branch string, semester int, subjectID string) (CompileResult, error)
		NotifyLowAttendance(ctx context.Context, filter QueryFilter) (int, error)
	}

	service struct {
		repo    Repository
		users   user.Repository
		cache   core.Cache
		mailSvc core.EmailService
		logger  core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	users user.Repository,
	cache core.Cache,
	mailSvc core.EmailService,
	logger core.Logger,
) *service {
	if cache == nil {
		cache = core.NewNopCache()
	}
	return &service{
		repo:    repo,
		users:   users,
		cache:   cache,
		mailSvc: mailSvc,
		logger:  logger,
	}
}

// Mutations. The store write and the cache invalidation are sequenced
// (invalidate-after-write) but not transactional: a crash in between leaves a
// stale entry for at most its TTL.

func (svc *service) Upload(ctx context.Context, uploadedBy string, ns NewSession) (Session, error) {
	now := time.Now().UTC()
	sess := Session{
		Date:         ns.ParsedDate(),
		SubjectID:    ns.SubjectID,
		SubjectCode:  ns.SubjectCode,
		SubjectName:  ns.SubjectName,
		Branch:       ns.Branch,
		Semester:     ns.Semester,
		AcademicYear: ns.AcademicYear,
		UploadedBy:   uploadedBy,
		Entries:      toEntries(ns.Records),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	sess.RecomputeTotals()

	// duplicate uploads are a conflict, never a silent overwrite; corrections
	// must go through Edit
	if _, err := svc.repo.GetSessionByKey(ctx, sess.Key()); err == nil {
		return Session{}, core.NewValidationError(ErrSessionExists)
	} else if err != ErrSessionNotFound {
		return Session{}, err
	}

	sess, err := svc.repo.CreateSession(ctx, sess)
	if err != nil {
		if err == ErrSessionExists { // lost the race on the unique index
			return Session{}, core.NewValidationError(ErrSessionExists)
		}
		return Session{}, err
	}

	svc.invalidateStudents(sess.StudentIDs())
	return sess, nil
}

func (svc *service) Edit(ctx context.Context, id string, es EditSession) (Session, error) {
	sess, err := svc.repo.GetSessionByID(ctx, id)
	if err != nil {
		return Session{}, err
	}

	staleIDs := sess.StudentIDs()
	sess.Entries = toEntries(es.Records)
	sess.RecomputeTotals()
	sess.UpdatedAt = time.Now().UTC()

	sess, err = svc.repo.UpdateSession(ctx, sess)
	if err != nil {
		return Session{}, err
	}

	svc.invalidateStudents(union(staleIDs, sess.StudentIDs()))
	return sess, nil
}

func (svc *service) Delete(ctx context.Context, id string) error {
	sess, err := svc.repo.GetSessionByID(ctx, id)
	if err != nil {
		return err
	}
	if err := svc.repo.DeleteSession(ctx, id); err != nil {
		return err
	}
	svc.invalidateStudents(sess.StudentIDs())
	return nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Session, error) {
	return svc.repo.GetSessionByID(ctx, id)
}

// Aggregation. Pure reads; memoized per-student with bounded TTLs.

func (svc *service) StudentStats(ctx context.Context, studentID string, filter QueryFilter) (StudentStats, error) {
	if err := validateFilter(filter); err != nil {
		return StudentStats{}, err
	}
	if _, err := svc.users.GetUserByID(ctx, studentID); err != nil {
		return StudentStats{}, err
	}

	key, ttl := studentCacheKey(studentID, filter)
	if key != "" {
		if v, ok := svc.cache.Get(key); ok {
			if stats, ok := v.(StudentStats); ok {
				return stats, nil
			}
		}
	}

	filter.StudentID = studentID
	sessions, err := svc.repo.FilterSessions(ctx, filter)
	if err != nil {
		return StudentStats{}, err
	}
	stats := buildStudentStats(studentID, filter.SubjectID != "", sessions)

	if key != "" {
		svc.cache.Set(key, stats, ttl)
	}
	return stats, nil
}

func (svc *service) BranchReport(ctx context.Context, filter QueryFilter) (BranchReport, error) {
	if err := validateFilter(filter); err != nil {
		return BranchReport{}, err
	}
	filter.StudentID = ""
	filter.SubjectID = ""

	sessions, err := svc.repo.FilterSessions(ctx, filter)
	if err != nil {
		return BranchReport{}, err
	}
	return buildBranchReport(sessions), nil
}

func (svc *service) Compile(ctx context.Context, branch string, semester int, subjectID string) (CompileResult, error) {
	if err := validateFilter(QueryFilter{Branch: branch, Semester: semester}); err != nil {
		return CompileResult{}, err
	}
	if branch == "" {
		return CompileResult{}, core.NewValidationError(nil, core.FieldError{Field: "branch", Error: "this field is required"})
	}
	if semester == 0 {
		return CompileResult{}, core.NewValidationError(nil, core.FieldError{Field: "semester", Error: "this field is required"})
	}

	students, err := svc.users.FilterUsers(ctx, user.QueryFilter{
		Roles:    user.StudentRoles,
		Branch:   branch,
		Semester: semester,
	})
	if err != nil {
		return CompileResult{}, err
	}

	sessions, err := svc.repo.FilterSessions(ctx, QueryFilter{
		Branch:    branch,
		Semester:  semester,
		SubjectID: subjectID,
	})
	if err != nil {
		return CompileResult{}, err
	}
	return buildCompileResult(students, sessions), nil
}

// NotifyLowAttendance emails a warning to every flagged student and returns
// the number of notifications dispatched. Delivery is fire-and-forget.
func (svc *service) NotifyLowAttendance(ctx context.Context, filter QueryFilter) (int, error) {
	report, err := svc.BranchReport(ctx, filter)
	if err != nil {
		return 0, err
	}

	var notified int
	for _, row := range report.LowAttendance {
		usr, err := svc.users.GetUserByID(ctx, row.StudentID)
		if err != nil {
			svc.logger.Warn("resolving low-attendance student", err, map[string]interface{}{"studentId": row.StudentID})
			continue
		}
		if usr.Email == "" {
			continue
		}
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject: "Low Attendance Warning",
			BodyStr: fmt.Sprintf(
				"Hi %s,\n\nYour overall attendance stands at %.2f%%, below the required %.0f%%. "+
					"Please contact your branch coordinator.",
				usr.Name, row.Percentage, LowAttendanceThreshold,
			),
		})
		notified++
	}
	return notified, nil
}

// helpers

func toEntries(records []NewEntry) []Entry {
	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, Entry{
			StudentID: rec.StudentID,
			RollNo:    rec.RollNo,
			Name:      rec.Name,
			Status:    rec.Status,
		})
	}
	return entries
}

func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, id := range append(a, b...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (svc *service) invalidateStudents(ids []string) {
	for _, id := range ids {
		svc.cache.DeletePattern(core.AttendanceKeyPattern(id))
	}
}

func validateFilter(f QueryFilter) error {
	var flds []core.FieldError
	if f.Branch != "" && !core.ValidBranch(f.Branch) {
		flds = append(flds, core.FieldError{Field: "branch", Error: "unrecognized branch code"})
	}
	if f.Semester != 0 && !core.ValidSemester(f.Semester) {
		flds = append(flds, core.FieldError{Field: "semester", Error: "semester must be between 1 and 8"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(errors.New("invalid filter"), flds...)
	}
	return nil
}

// studentCacheKey picks the memoization key and TTL for a student-scoped
// query. Date-filtered views are never memoized.
func studentCacheKey(studentID string, f QueryFilter) (string, time.Duration) {
	if f.HasDateRange() {
		return "", 0
	}
	if f.SubjectID != "" {
		return core.AttendanceDetailKey(studentID, f.SubjectID), core.Conf.Cache.AttendanceDetailTTL
	}
	return core.AttendanceDashboardKey(studentID), core.Conf.Cache.DashboardTTL
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// percentage is 0 when total is 0; aggregation over zero sessions is a valid
// all-zero result, never a fault.
func percentage(attended, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(attended) / float64(total) * 100)
}

func sortSessions(sessions []Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].Date.Equal(sessions[j].Date) {
			return sessions[i].Date.Before(sessions[j].Date)
		}
		return sessions[i].SubjectCode < sessions[j].SubjectCode
	})
}

func buildStudentStats(studentID string, subjectScoped bool, sessions []Session) StudentStats {
	sortSessions(sessions)

	res := StudentStats{Attendance: make([]Record, 0, len(sessions))}
	var stats Stats
	subjTally := make(map[string]*SubjectStat)

	for _, sess := range sessions {
		for _, e := range sess.Entries {
			if e.StudentID != studentID {
				continue
			}
			res.Attendance = append(res.Attendance, Record{
				ID:   sess.ID,
				Date: sess.Date,
				Subject: SubjectRef{
					ID:   sess.SubjectID,
					Code: sess.SubjectCode,
					Name: sess.SubjectName,
				},
				Status: e.Status,
			})

			if subjectScoped {
				stats.TotalClasses++
				if e.Status.Attended() {
					stats.PresentClasses++
				} else {
					stats.AbsentClasses++
				}
			} else {
				st, ok := subjTally[sess.SubjectID]
				if !ok {
					st = &SubjectStat{Subject: SubjectRef{
						ID:   sess.SubjectID,
						Code: sess.SubjectCode,
						Name: sess.SubjectName,
					}}
					subjTally[sess.SubjectID] = st
				}
				st.TotalClasses++
				if e.Status.Attended() {
					st.AttendedClasses++
				}
			}
			break // exactly one entry per student per session
		}
	}

	if subjectScoped {
		stats.Percentage = percentage(stats.PresentClasses, stats.TotalClasses)
		res.Stats = &stats
		return res
	}

	res.Subjects = make([]SubjectStat, 0, len(subjTally))
	for _, st := range subjTally {
		st.Percentage = percentage(st.AttendedClasses, st.TotalClasses)
		res.Subjects = append(res.Subjects, *st)
	}
	sort.Slice(res.Subjects, func(i, j int) bool {
		return res.Subjects[i].Subject.Code < res.Subjects[j].Subject.Code
	})
	return res
}

// studentAgg accumulates one student's overall counts across sessions.
type studentAgg struct {
	name     string
	rollNo   string
	branch   string
	semester int
	attended int
	total    int
}

func buildBranchReport(sessions []Session) BranchReport {
	type branchAgg struct {
		students map[string]struct{}
		classes  int
		attended int
		slots    int
	}
	type subjectAgg struct {
		ref      SubjectRef
		classes  int
		attended int
		slots    int
	}

	students := make(map[string]*studentAgg)
	branches := make(map[string]*branchAgg)
	subjects := make(map[string]*subjectAgg)

	for _, sess := range sessions {
		ba, ok := branches[sess.Branch]
		if !ok {
			ba = &branchAgg{students: make(map[string]struct{})}
			branches[sess.Branch] = ba
		}
		ba.classes++

		sa, ok := subjects[sess.SubjectID]
		if !ok {
			sa = &subjectAgg{ref: SubjectRef{
				ID:   sess.SubjectID,
				Code: sess.SubjectCode,
				Name: sess.SubjectName,
			}}
			subjects[sess.SubjectID] = sa
		}
		sa.classes++

		for _, e := range sess.Entries {
			ba.students[e.StudentID] = struct{}{}
			ba.slots++
			sa.slots++

			st, ok := students[e.StudentID]
			if !ok {
				st = &studentAgg{
					name:     e.Name,
					rollNo:   e.RollNo,
					branch:   sess.Branch,
					semester: sess.Semester,
				}
				students[e.StudentID] = st
			}
			st.total++
			if e.Status.Attended() {
				st.attended++
				ba.attended++
				sa.attended++
			}
		}
	}

	report := BranchReport{
		ByBranch:      make([]BranchRow, 0, len(branches)),
		BySubject:     make([]SubjectRow, 0, len(subjects)),
		LowAttendance: make([]LowAttendanceRow, 0),
	}

	// overall roll-up: distinct headcount, session count, attended entries,
	// mean of per-student percentages (students with recorded sessions only)
	var totalPresent int
	var pctSum float64
	var pctCount int
	for id, st := range students {
		totalPresent += st.attended
		pct := percentage(st.attended, st.total)
		if st.total > 0 {
			pctSum += pct
			pctCount++
		}
		if pct < LowAttendanceThreshold && st.total > 0 {
			report.LowAttendance = append(report.LowAttendance, LowAttendanceRow{
				StudentID:   id,
				StudentName: st.name,
				RollNo:      st.rollNo,
				Branch:      st.branch,
				Semester:    st.semester,
				Percentage:  pct,
			})
		}
	}
	report.Overall = OverallStats{
		TotalStudents: len(students),
		TotalClasses:  len(sessions),
		TotalPresent:  totalPresent,
	}
	if pctCount > 0 {
		report.Overall.AveragePercentage = round2(pctSum / float64(pctCount))
	}

	for code, ba := range branches {
		report.ByBranch = append(report.ByBranch, BranchRow{
			Branch:        code,
			TotalStudents: len(ba.students),
			TotalClasses:  ba.classes,
			TotalPresent:  ba.attended,
			Percentage:    percentage(ba.attended, ba.slots),
		})
	}
	for _, sa := range subjects {
		report.BySubject = append(report.BySubject, SubjectRow{
			Subject:      sa.ref,
			TotalClasses: sa.classes,
			TotalPresent: sa.attended,
			Percentage:   percentage(sa.attended, sa.slots),
		})
	}

	// deterministic display order: codes lexicographically, worst offenders first
	sort.Slice(report.ByBranch, func(i, j int) bool {
		return report.ByBranch[i].Branch < report.ByBranch[j].Branch
	})
	sort.Slice(report.BySubject, func(i, j int) bool {
		return report.BySubject[i].Subject.Code < report.BySubject[j].Subject.Code
	})
	sort.Slice(report.LowAttendance, func(i, j int) bool {
		li, lj := report.LowAttendance[i], report.LowAttendance[j]
		if li.Percentage != lj.Percentage {
			return li.Percentage < lj.Percentage
		}
		return li.RollNo < lj.RollNo
	})
	return report
}

func buildCompileResult(students []user.User, sessions []Session) CompileResult {
	tally := make(map[string]*studentAgg, len(students))
	for _, sess := range sessions {
		for _, e := range sess.Entries {
			st, ok := tally[e.StudentID]
			if !ok {
				st = &studentAgg{}
				tally[e.StudentID] = st
			}
			st.total++
			if e.Status.Attended() {
				st.attended++
			}
		}
	}

	res := CompileResult{
		Students: make([]CompileRow, 0, len(students)),
		Summary:  CompileSummary{TotalStudents: len(students)},
	}

	var pctSum float64
	var pctCount int
	for _, usr := range students {
		row := CompileRow{
			StudentID: usr.ID,
			Name:      usr.Name,
			RollNo:    usr.RollNo,
		}
		if st, ok := tally[usr.ID]; ok {
			row.TotalClasses = st.total
			row.AttendedClasses = st.attended
			row.AttendancePercentage = percentage(st.attended, st.total)
		}
		res.Students = append(res.Students, row)

		// students with zero recorded sessions fall on neither side
		if row.TotalClasses > 0 {
			pctSum += row.AttendancePercentage
			pctCount++
			if row.AttendancePercentage < LowAttendanceThreshold {
				res.Summary.LowAttendance++
			} else {
				res.Summary.GoodAttendance++
			}
		}
	}
	if pctCount > 0 {
		res.Summary.AverageAttendance = round2(pctSum / float64(pctCount))
	}

	sort.Slice(res.Students, func(i, j int) bool {
		si, sj := res.Students[i], res.Students[j]
		if si.RollNo != sj.RollNo {
			return si.RollNo < sj.RollNo
		}
		return si.Name < sj.Name
	})
	return res
}
