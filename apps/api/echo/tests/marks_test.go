package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core"
	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/marks"
	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/user"
	testutil "github.com/CreatesRahul-Lab/IKGPTU-sub000/tests"
)

func Test_marksApi_upload(t *testing.T) {
	app := setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.ac.in", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateStudent(t, usrRepo, "Hero", "hero", "2203521", core.BranchBTCS, 5)

	newBatch := func(records ...marks.NewRecord) []byte {
		return marchallObj(t, marks.NewBatch{Records: records})
	}
	record := marks.NewRecord{
		StudentID:   student.ID,
		SubjectID:   "sub-math",
		SubjectCode: "BTAM204",
		SubjectName: "Mathematics III",
		Branch:      core.BranchBTCS,
		Semester:    5,
		ExamType:    marks.ExamMST1,
		Obtained:    18,
		Maximum:     24,
	}

	teacherToken := getToken(t, teacher)

	overMax := record
	overMax.Obtained = 30
	badExam := record
	badExam.ExamType = "viva"

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Staff required", token: getToken(t, student), body: newBatch(record),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "required fields", token: teacherToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"records": "this field is required"}),
		},
		{
			name: "invalid exam type", token: teacherToken, body: newBatch(badExam),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"examType": "examType must be one of mst1, mst2, final or assignment"}),
		},
		{
			name: "obtained above maximum", token: teacherToken, body: newBatch(overMax),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"obtained": "obtained must be less than or equal to Maximum"}),
		},
		{name: "created", token: teacherToken, body: newBatch(record), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/marks"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var recs []marks.Record
				if err := json.Unmarshal(rec.Body.Bytes(), &recs); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if len(recs) != 1 {
					t.Fatalf("failed! len(records) = %d; want 1", len(recs))
				}
				if recs[0].ID == "" {
					t.Error("failed! empty record ID")
				}
				if recs[0].UploadedBy != teacher.ID {
					t.Errorf("failed! UploadedBy = %v; want %v", recs[0].UploadedBy, teacher.ID)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_marksApi_summaryAndQuery(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.ac.in", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.ac.in", "", []string{user.RoleTeacher}, true)
	s1 := testutil.CreateStudent(t, usrRepo, "Hero", "hero", "2203521", core.BranchBTCS, 5)
	s2 := testutil.CreateStudent(t, usrRepo, "Other", "other", "2203522", core.BranchBTCS, 5)

	math := marks.SubjectRef{ID: "sub-math", Code: "BTAM204", Name: "Mathematics III"}
	os := marks.SubjectRef{ID: "sub-os", Code: "BTCS501", Name: "Operating Systems"}

	upload := func(token string, records ...marks.NewRecord) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/marks", token, marchallObj(t, marks.NewBatch{Records: records}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("seeding marks failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
	}
	mkRecord := func(usr user.User, subj marks.SubjectRef, exam marks.ExamType, obtained, maximum float64) marks.NewRecord {
		return marks.NewRecord{
			StudentID:   usr.ID,
			SubjectID:   subj.ID,
			SubjectCode: subj.Code,
			SubjectName: subj.Name,
			Branch:      core.BranchBTCS,
			Semester:    5,
			ExamType:    exam,
			Obtained:    obtained,
			Maximum:     maximum,
		}
	}
	teacherToken := getToken(t, teacher)
	upload(teacherToken,
		mkRecord(s1, math, marks.ExamMST1, 18, 24),
		mkRecord(s1, math, marks.ExamFinal, 45, 60),
		mkRecord(s1, os, marks.ExamMST1, 12, 24),
		mkRecord(s2, math, marks.ExamMST1, 20, 24),
	)

	s1Summary := marks.Summary{
		Subjects: []marks.SubjectMarks{
			{
				Subject: math,
				Exams: []marks.ExamScore{
					{ExamType: marks.ExamFinal, Obtained: 45, Maximum: 60, Percentage: 75},
					{ExamType: marks.ExamMST1, Obtained: 18, Maximum: 24, Percentage: 75},
				},
				Obtained: 63, Maximum: 84, Percentage: 75,
			},
			{
				Subject: os,
				Exams: []marks.ExamScore{
					{ExamType: marks.ExamMST1, Obtained: 12, Maximum: 24, Percentage: 50},
				},
				Obtained: 12, Maximum: 24, Percentage: 50,
			},
		},
		Obtained: 75, Maximum: 108, Percentage: 69.44,
	}
	emptySummary := marks.Summary{Subjects: []marks.SubjectMarks{}}

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, path: "/v1/marks", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "own summary", method: http.MethodGet, path: "/v1/marks", token: getToken(t, s1), wantCode: http.StatusOK, wantData: marchallObj(t, s1Summary)},
		{name: "own summary (cached)", method: http.MethodGet, path: "/v1/marks", token: getToken(t, s1), wantCode: http.StatusOK, wantData: marchallObj(t, s1Summary)},
		{
			name: "student cannot read another student", method: http.MethodGet, path: "/v1/marks/students/" + s1.ID, token: getToken(t, s2),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "teacher reads any student", method: http.MethodGet, path: "/v1/marks/students/" + s1.ID, token: teacherToken, wantCode: http.StatusOK, wantData: marchallObj(t, s1Summary)},
		{name: "no marks yet", method: http.MethodGet, path: "/v1/marks/students/" + teacher.ID, token: teacherToken, wantCode: http.StatusOK, wantData: marchallObj(t, emptySummary)},
		{
			name: "unknown student", method: http.MethodGet, path: "/v1/marks/students/lol", token: teacherToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "user not found"}),
		},
		{
			name: "query: Staff required", method: http.MethodGet, path: "/v1/marks/records", token: getToken(t, s1),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "query: invalid semester", method: http.MethodGet, path: "/v1/marks/records?semester=lol", token: teacherToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"semester": "must be an integer"}),
		},
		{
			name: "destroy: Admin required", method: http.MethodDelete, path: "/v1/marks/records?id=lol", token: teacherToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("query with filters", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/marks/records?studentId="+s1.ID+"&examType=mst1", teacherToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var recs []marks.Record
		if err := json.Unmarshal(rec.Body.Bytes(), &recs); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(recs) != 2 {
			t.Fatalf("failed! len(records) = %d; want 2", len(recs))
		}
		for _, r := range recs {
			if r.StudentID != s1.ID || r.ExamType != marks.ExamMST1 {
				t.Errorf("failed! unexpected record %+v", r)
			}
		}
	})

	t.Run("destroy then summary reflects removal", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/marks/records?studentId="+s2.ID, teacherToken)
		app.ServeHTTP(rec, req)
		var recs []marks.Record
		if err := json.Unmarshal(rec.Body.Bytes(), &recs); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(recs) != 1 {
			t.Fatalf("failed! len(records) = %d; want 1", len(recs))
		}

		req, rec = newAuthRequest(http.MethodDelete, "/v1/marks/records?id="+recs[0].ID, getToken(t, admin))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; want %v", rec.Code, http.StatusNoContent)
		}

		// the cached summary must not survive the delete
		req, rec = newAuthRequest(http.MethodGet, "/v1/marks/students/"+s2.ID, teacherToken)
		app.ServeHTTP(rec, req)
		var sum marks.Summary
		if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(sum.Subjects) != 0 {
			t.Errorf("failed! len(subjects) = %d; want 0", len(sum.Subjects))
		}
	})
}
