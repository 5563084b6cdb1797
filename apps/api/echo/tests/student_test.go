package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
	testutil "github.com/trezcool/shule/tests"
)

func Test_studentApi_query(t *testing.T) {
	setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)

	amit := testutil.CreateStudent(t, stdRepo, "Amit Sharma", "10a001", "10A", "amit@school.com", "+919876543210")
	priya := testutil.CreateStudent(t, stdRepo, "Priya Singh", "10a002", "10A", "priya@school.com")
	rohan := testutil.CreateStudent(t, stdRepo, "Rohan Kumar", "10b001", "10B", "rohan@school.com")

	path := func(search, class, ordering string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if class != "" {
			v.Add("class", class)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		return "/v1/students?" + v.Encode()
	}

	adminToken := getToken(t, admin)
	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/students", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Get all (any authed user)", path: "/v1/students", token: getToken(t, teacher),
			wantData: marchallList(t, amit, priya, rohan),
		},
		{name: "search (unknown)", path: path("lol", "", ""), token: adminToken, wantData: empty},
		{name: "search by name", path: path("priya", "", ""), token: adminToken, wantData: marchallList(t, priya)},
		{name: "search by roll number", path: path("10B001", "", ""), token: adminToken, wantData: marchallList(t, rohan)},
		{name: "search by email", path: path("amit@school", "", ""), token: adminToken, wantData: marchallList(t, amit)},
		{name: "class (unknown)", path: path("", "11C", ""), token: adminToken, wantData: empty},
		{name: "class=10A", path: path("", "10A", ""), token: adminToken, wantData: marchallList(t, amit, priya)},
		{name: "search & class", path: path("singh", "10A", ""), token: adminToken, wantData: marchallList(t, priya)},
		{name: "order by -name", path: path("", "", "-name"), token: adminToken, wantData: marchallList(t, rohan, priya, amit)},
		{
			name: "order by class_name,-roll_number", path: path("", "", "class_name,-roll_number"),
			token: adminToken, wantData: marchallList(t, priya, amit, rohan),
		},
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

func Test_studentApi_create(t *testing.T) {
	setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	amit := testutil.CreateStudent(t, stdRepo, "Amit Sharma", "10a001", "10A", "amit@school.com")

	newStudentBody := func(name, roll, class, email string) []byte {
		return marchallObj(t, student.NewStudent{Name: name, RollNumber: roll, ClassName: class, Email: email})
	}

	reqMsg := "this field is required"
	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", token: getToken(t, teacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "required fields", token: getToken(t, admin), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": reqMsg, "roll_number": reqMsg, "class_name": reqMsg, "email": reqMsg}),
		},
		{
			name: "invalid email", token: getToken(t, admin), wantCode: http.StatusBadRequest,
			body:     newStudentBody("New Kid", "10a009", "10A", "lol"),
			wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{
			name: "roll number taken", token: getToken(t, admin), wantCode: http.StatusBadRequest,
			body:     newStudentBody("Copy Cat", amit.RollNumber, "10A", "copycat@school.com"),
			wantData: marchallObj(t, map[string]string{"roll_number": "a student with this roll number already exists"}),
		},
		{
			name: "email taken", token: getToken(t, admin), wantCode: http.StatusBadRequest,
			body:     newStudentBody("Copy Cat", "10a009", "10A", amit.Email),
			wantData: marchallObj(t, map[string]string{"email": "a student with this email already exists"}),
		},
		{
			name: "created", token: getToken(t, admin), wantCode: http.StatusCreated,
			body: newStudentBody("New Kid", "10A009", "10A", "newkid@school.com"),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/students"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData student.Student
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Fatalf("json.Unmarshal(): %v", err)
				}
				if respData.ID == "" {
					t.Error("failed! empty student ID")
				}
				// roll numbers are stored lowercase
				if respData.RollNumber != "10a009" {
					t.Errorf("failed! roll_number = %q; want %q", respData.RollNumber, "10a009")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_studentApi_retrieveUpdateDestroy(t *testing.T) {
	setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)

	amit := testutil.CreateStudent(t, stdRepo, "Amit Sharma", "10a001", "10A", "amit@school.com")
	priya := testutil.CreateStudent(t, stdRepo, "Priya Singh", "10a002", "10A", "priya@school.com")

	adminToken := getToken(t, admin)

	tests := []httpTest{
		{
			name: "retrieve: unknown student", method: http.MethodGet, path: "/v1/students/lol", token: adminToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "retrieve", method: http.MethodGet, path: "/v1/students/" + amit.ID, token: getToken(t, teacher),
			wantCode: http.StatusOK, wantData: marchallObj(t, amit),
		},
		{
			name: "update: admin required", method: http.MethodPut, path: "/v1/students/" + amit.ID, token: getToken(t, teacher),
			body:     marchallObj(t, student.UpdateStudent{ClassName: "10B"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "update: email taken", method: http.MethodPut, path: "/v1/students/" + amit.ID, token: adminToken,
			body:     marchallObj(t, student.UpdateStudent{Email: priya.Email}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"email": "a student with this email already exists"}),
		},
		{
			name: "update: own email ok", method: http.MethodPut, path: "/v1/students/" + amit.ID, token: adminToken,
			body: marchallObj(t, student.UpdateStudent{Email: amit.Email, ClassName: "10B"}), wantCode: http.StatusOK,
		},
		{
			name: "destroy: admin required", method: http.MethodDelete, path: "/v1/students/" + priya.ID, token: getToken(t, teacher),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{name: "destroy", method: http.MethodDelete, path: "/v1/students/" + priya.ID, token: adminToken, wantCode: http.StatusNoContent},
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
					var respData student.Student
					if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
						t.Fatalf("json.Unmarshal(): %v", err)
					}
					if respData.ClassName != "10B" {
						t.Errorf("failed! class_name = %q; want %q", respData.ClassName, "10B")
					}
					return
				}
				checkCodeAndData(t, tt, rec)
			default:
				checkCodeAndData(t, tt, rec)
			}
		})
	}

	if _, err := stdRepo.GetStudentByID(context.Background(), priya.ID); err != student.ErrNotFound {
		t.Errorf("GetStudentByID() error = %v; want %v", err, student.ErrNotFound)
	}
}

func Test_studentApi_destroyMultiple(t *testing.T) {
	setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	amit := testutil.CreateStudent(t, stdRepo, "Amit Sharma", "10a001", "10A", "amit@school.com")
	priya := testutil.CreateStudent(t, stdRepo, "Priya Singh", "10a002", "10A", "priya@school.com")
	rohan := testutil.CreateStudent(t, stdRepo, "Rohan Kumar", "10b001", "10B", "rohan@school.com")

	v := make(url.Values)
	v.Add("id", amit.ID)
	v.Add("id", priya.ID)

	req, rec := newAuthRequest(http.MethodDelete, "/v1/students?"+v.Encode(), getToken(t, admin))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("failed! code = %v; wantCode %v", rec.Code, http.StatusNoContent)
	}

	left, err := stdRepo.QueryAllStudents(context.Background())
	if err != nil {
		t.Fatalf("QueryAllStudents(): %v", err)
	}
	if len(left) != 1 || left[0].ID != rohan.ID {
		t.Errorf("failed! students left = %v; want only %v", left, rohan.ID)
	}
}
