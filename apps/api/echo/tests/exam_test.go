package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/exam"
	"github.com/trezcool/shule/core/user"
	testutil "github.com/trezcool/shule/tests"
)

func Test_examApi_testQuery(t *testing.T) {
	setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)

	amit := testutil.CreateStudent(t, stdRepo, "Amit Sharma", "10a001", "10A", "amit@school.com")
	priya := testutil.CreateStudent(t, stdRepo, "Priya Singh", "10a002", "10A", "priya@school.com")

	unitTest := testutil.CreateTest(t, testRepo, "Unit Test 1", core.NewDate(2026, time.March, 10),
		exam.Subject{Name: "Mathematics", MaxMarks: 50},
		exam.Subject{Name: "Science", MaxMarks: 50},
	)
	halfYearly := testutil.CreateTest(t, testRepo, "Half-Yearly Exam", core.NewDate(2026, time.April, 15),
		exam.Subject{Name: "Mathematics", MaxMarks: 100},
		exam.Subject{Name: "Science", MaxMarks: 100},
	)

	testutil.CreateMark(t, markRepo, amit, unitTest, "Mathematics", 48, 50)
	testutil.CreateMark(t, markRepo, amit, unitTest, "Science", 45, 50)
	testutil.CreateMark(t, markRepo, priya, unitTest, "Mathematics", 40, 50)
	testutil.CreateMark(t, markRepo, amit, halfYearly, "Mathematics", 92, 100)

	// responses carry the derived student count
	unitTest.StudentCount = 2
	halfYearly.StudentCount = 1

	path := func(search, ordering string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		return "/v1/tests?" + v.Encode()
	}

	tests := []httpTest{
		{name: "Auth required", path: "/v1/tests", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Get all (most recent first)", path: "/v1/tests", token: getToken(t, teacher),
			wantData: marchallList(t, halfYearly, unitTest),
		},
		{name: "search (unknown)", path: path("lol", ""), token: getToken(t, admin), wantData: marchallList(t, []interface{}{}...)},
		{name: "search=unit", path: path("unit", ""), token: getToken(t, admin), wantData: marchallList(t, unitTest)},
		{name: "order by date", path: path("", "date"), token: getToken(t, admin), wantData: marchallList(t, unitTest, halfYearly)},
		{name: "order by -name", path: path("", "-name"), token: getToken(t, admin), wantData: marchallList(t, unitTest, halfYearly)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_examApi_testCreate(t *testing.T) {
	setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)

	newTestBody := func(name string, date core.Date, subjects ...exam.Subject) []byte {
		return marchallObj(t, exam.NewTest{Name: name, Date: date, Subjects: subjects})
	}
	maths := exam.Subject{Name: "Mathematics", MaxMarks: 100}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", token: getToken(t, teacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "date required", token: getToken(t, admin), wantCode: http.StatusBadRequest,
			body:     newTestBody("Unit Test 1", core.Date{}, maths),
			wantData: marchallObj(t, map[string]string{"date": "this field is required"}),
		},
		{
			name: "duplicate subjects", token: getToken(t, admin), wantCode: http.StatusBadRequest,
			body:     newTestBody("Unit Test 1", core.NewDate(2026, time.March, 10), maths, maths),
			wantData: marchallObj(t, map[string]string{"subjects": `duplicate subject "Mathematics"`}),
		},
		{
			name: "created", token: getToken(t, admin), wantCode: http.StatusCreated,
			body: newTestBody("Unit Test 1", core.NewDate(2026, time.March, 10), maths),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/tests"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData exam.Test
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if respData.ID == "" {
					t.Error("failed! empty test ID")
				}
				if respData.Date.String() != "2026-03-10" {
					t.Errorf("failed! date = %q; want %q", respData.Date.String(), "2026-03-10")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_examApi_testRetrieveUpdateDestroy(t *testing.T) {
	setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	amit := testutil.CreateStudent(t, stdRepo, "Amit Sharma", "10a001", "10A", "amit@school.com")

	unitTest := testutil.CreateTest(t, testRepo, "Unit Test 1", core.NewDate(2026, time.March, 10),
		exam.Subject{Name: "Mathematics", MaxMarks: 50},
	)
	testutil.CreateMark(t, markRepo, amit, unitTest, "Mathematics", 48, 50)
	unitTest.StudentCount = 1

	adminToken := getToken(t, admin)

	tests := []httpTest{
		{
			name: "retrieve: unknown test", method: http.MethodGet, path: "/v1/tests/lol", token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "retrieve", method: http.MethodGet, path: "/v1/tests/" + unitTest.ID, token: adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, unitTest),
		},
		{
			name: "update: duplicate subjects", method: http.MethodPut, path: "/v1/tests/" + unitTest.ID, token: adminToken,
			body: marchallObj(t, exam.UpdateTest{Subjects: exam.SubjectList{
				{Name: "Science", MaxMarks: 50},
				{Name: "Science", MaxMarks: 50},
			}}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"subjects": `duplicate subject "Science"`}),
		},
		{
			name: "update: rename", method: http.MethodPut, path: "/v1/tests/" + unitTest.ID, token: adminToken,
			body: marchallObj(t, exam.UpdateTest{Name: "Unit Test One"}), wantCode: http.StatusOK,
		},
		{name: "destroy", method: http.MethodDelete, path: "/v1/tests/" + unitTest.ID, token: adminToken, wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			switch tt.wantCode {
			case http.StatusNoContent:
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
			case http.StatusOK:
				if tt.method == http.MethodPut {
					if rec.Code != tt.wantCode {
						t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
					}
					var respData exam.Test
					if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
						t.Fatalf("json.Unmarshal(): %v", err)
					}
					if respData.Name != "Unit Test One" {
						t.Errorf("failed! name = %q; want %q", respData.Name, "Unit Test One")
					}
					return
				}
				checkCodeAndData(t, tt, rec)
			default:
				checkCodeAndData(t, tt, rec)
			}
		})
	}

	if _, err := testRepo.GetTestByID(context.Background(), unitTest.ID); err != exam.ErrTestNotFound {
		t.Errorf("GetTestByID() error = %v; want %v", err, exam.ErrTestNotFound)
	}
}

func Test_examApi_markQuery(t *testing.T) {
	setup(t)

	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)

	amit := testutil.CreateStudent(t, stdRepo, "Amit Sharma", "10a001", "10A", "amit@school.com")
	priya := testutil.CreateStudent(t, stdRepo, "Priya Singh", "10a002", "10A", "priya@school.com")

	unitTest := testutil.CreateTest(t, testRepo, "Unit Test 1", core.NewDate(2026, time.March, 10),
		exam.Subject{Name: "Mathematics", MaxMarks: 50},
		exam.Subject{Name: "Science", MaxMarks: 50},
	)
	halfYearly := testutil.CreateTest(t, testRepo, "Half-Yearly Exam", core.NewDate(2026, time.April, 15),
		exam.Subject{Name: "Mathematics", MaxMarks: 100},
	)

	m1 := testutil.CreateMark(t, markRepo, amit, unitTest, "Mathematics", 48, 50)
	m2 := testutil.CreateMark(t, markRepo, amit, unitTest, "Science", 45, 50)
	m3 := testutil.CreateMark(t, markRepo, priya, unitTest, "Mathematics", 40, 50)
	m4 := testutil.CreateMark(t, markRepo, amit, halfYearly, "Mathematics", 92, 100)

	path := func(studentID, testID, subject string) string {
		v := make(url.Values)
		if studentID != "" {
			v.Add("student_id", studentID)
		}
		if testID != "" {
			v.Add("test_id", testID)
		}
		if subject != "" {
			v.Add("subject_name", subject)
		}
		return "/v1/marks?" + v.Encode()
	}

	token := getToken(t, teacher)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/marks", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Get all", path: "/v1/marks", token: token, wantData: marchallList(t, m1, m2, m3, m4)},
		{name: "by student", path: path(priya.ID, "", ""), token: token, wantData: marchallList(t, m3)},
		{name: "by test", path: path("", halfYearly.ID, ""), token: token, wantData: marchallList(t, m4)},
		{name: "by subject", path: path("", "", "science"), token: token, wantData: marchallList(t, m2)},
		{name: "by student & test", path: path(amit.ID, unitTest.ID, ""), token: token, wantData: marchallList(t, m1, m2)},
		{name: "no match", path: path(priya.ID, halfYearly.ID, ""), token: token, wantData: marchallList(t, []interface{}{}...)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_examApi_markCreate(t *testing.T) {
	setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)

	amit := testutil.CreateStudent(t, stdRepo, "Amit Sharma", "10a001", "10A", "amit@school.com")
	unitTest := testutil.CreateTest(t, testRepo, "Unit Test 1", core.NewDate(2026, time.March, 10),
		exam.Subject{Name: "Mathematics", MaxMarks: 50},
		exam.Subject{Name: "Science", MaxMarks: 50},
	)
	testutil.CreateMark(t, markRepo, amit, unitTest, "Mathematics", 48, 50)

	markBody := func(studentID, testID, subject string, obtained, max int) []byte {
		return marchallObj(t, exam.NewMark{
			StudentID:     studentID,
			TestID:        testID,
			SubjectName:   subject,
			MarksObtained: obtained,
			MaxMarks:      max,
		})
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", token: getToken(t, teacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "obtained exceeds max", token: getToken(t, admin), wantCode: http.StatusBadRequest,
			body:     markBody(amit.ID, unitTest.ID, "Science", 51, 50),
			wantData: marchallObj(t, map[string]string{"marks_obtained": "marks_obtained must be less than or equal to MaxMarks"}),
		},
		{
			name: "unknown student", token: getToken(t, admin), wantCode: http.StatusBadRequest,
			body:     markBody("lol", unitTest.ID, "Science", 40, 50),
			wantData: marchallObj(t, map[string]string{"student_id": "student not found"}),
		},
		{
			name: "unknown test", token: getToken(t, admin), wantCode: http.StatusBadRequest,
			body:     markBody(amit.ID, "lol", "Science", 40, 50),
			wantData: marchallObj(t, map[string]string{"test_id": "test not found"}),
		},
		{
			name: "subject not in test", token: getToken(t, admin), wantCode: http.StatusBadRequest,
			body:     markBody(amit.ID, unitTest.ID, "History", 40, 50),
			wantData: marchallObj(t, map[string]string{"subject_name": `subject "History" is not part of test "Unit Test 1"`}),
		},
		{
			name: "duplicate mark", token: getToken(t, admin), wantCode: http.StatusBadRequest,
			body:     markBody(amit.ID, unitTest.ID, "Mathematics", 40, 50),
			wantData: marchallObj(t, map[string]string{"subject_name": "a mark for this student, test and subject already exists"}),
		},
		{
			name: "created", token: getToken(t, admin), wantCode: http.StatusCreated,
			body: markBody(amit.ID, unitTest.ID, "Science", 45, 50),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/marks"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData exam.Mark
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if respData.ID == "" {
					t.Error("failed! empty mark ID")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_examApi_markRetrieveUpdateDestroy(t *testing.T) {
	setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	amit := testutil.CreateStudent(t, stdRepo, "Amit Sharma", "10a001", "10A", "amit@school.com")
	unitTest := testutil.CreateTest(t, testRepo, "Unit Test 1", core.NewDate(2026, time.March, 10),
		exam.Subject{Name: "Mathematics", MaxMarks: 50},
		exam.Subject{Name: "Science", MaxMarks: 50},
	)
	mrk := testutil.CreateMark(t, markRepo, amit, unitTest, "Mathematics", 48, 50)

	// detail responses nest the referenced records
	detailed := mrk
	detailed.Student = &amit
	detailed.Test = &unitTest

	adminToken := getToken(t, admin)
	iPtr := func(i int) *int { return &i }

	tests := []httpTest{
		{
			name: "retrieve: unknown mark", method: http.MethodGet, path: "/v1/marks/lol", token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "retrieve", method: http.MethodGet, path: "/v1/marks/" + mrk.ID, token: adminToken,
			wantCode: http.StatusOK, wantData: marchallObj(t, detailed),
		},
		{
			name: "update: obtained exceeds max", method: http.MethodPut, path: "/v1/marks/" + mrk.ID, token: adminToken,
			body:     marchallObj(t, exam.UpdateMark{MarksObtained: iPtr(51)}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"marks_obtained": "marks obtained cannot exceed maximum marks"}),
		},
		{
			name: "update: subject not in test", method: http.MethodPut, path: "/v1/marks/" + mrk.ID, token: adminToken,
			body:     marchallObj(t, exam.UpdateMark{SubjectName: "History"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"subject_name": `subject "History" is not part of test "Unit Test 1"`}),
		},
		{
			name: "update", method: http.MethodPut, path: "/v1/marks/" + mrk.ID, token: adminToken,
			body: marchallObj(t, exam.UpdateMark{MarksObtained: iPtr(50)}), wantCode: http.StatusOK,
		},
		{name: "destroy", method: http.MethodDelete, path: "/v1/marks/" + mrk.ID, token: adminToken, wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			switch tt.wantCode {
			case http.StatusNoContent:
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
			case http.StatusOK:
				if tt.method == http.MethodPut {
					if rec.Code != tt.wantCode {
						t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
					}
					var respData exam.Mark
					if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
						t.Fatalf("json.Unmarshal(): %v", err)
					}
					if respData.MarksObtained != 50 {
						t.Errorf("failed! marks_obtained = %d; want 50", respData.MarksObtained)
					}
					return
				}
				checkCodeAndData(t, tt, rec)
			default:
				checkCodeAndData(t, tt, rec)
			}
		})
	}

	if _, err := markRepo.GetMarkByID(context.Background(), mrk.ID); err != exam.ErrMarkNotFound {
		t.Errorf("GetMarkByID() error = %v; want %v", err, exam.ErrMarkNotFound)
	}
}
