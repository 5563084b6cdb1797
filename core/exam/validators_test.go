package exam_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/exam"
	"github.com/trezcool/shule/core/student"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
)

// fieldErrors flattens a *core.ValidationError into a field -> message map.
func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()

	vErr, ok := err.(*core.ValidationError)
	if !ok {
		t.Fatalf("error is %T; want *core.ValidationError: %v", err, err)
	}
	flds := make(map[string]string, len(vErr.Fields))
	for _, fld := range vErr.Fields {
		flds[fld.Field] = fld.Error
	}
	return flds
}

func checkFieldError(t *testing.T, err error, field, want string) {
	t.Helper()

	flds := fieldErrors(t, err)
	if got := flds[field]; got != want {
		t.Errorf("field %q error = %q; want %q", field, got, want)
	}
}

func TestNewTest_Validate(t *testing.T) {
	date := core.NewDate(2024, time.March, 10)
	maths := exam.Subject{Name: "Math", MaxMarks: 100}

	t.Run("date required", func(t *testing.T) {
		nt := exam.NewTest{Name: "Quiz", Subjects: exam.SubjectList{maths}}
		checkFieldError(t, nt.Validate(), "date", "this field is required")
	})

	t.Run("duplicate subjects", func(t *testing.T) {
		nt := exam.NewTest{Name: "Quiz", Date: date, Subjects: exam.SubjectList{maths, maths}}
		checkFieldError(t, nt.Validate(), "subjects", `duplicate subject "Math"`)
	})

	t.Run("duplicate after trimming", func(t *testing.T) {
		nt := exam.NewTest{Name: "Quiz", Date: date, Subjects: exam.SubjectList{
			maths,
			{Name: " Math ", MaxMarks: 100},
		}}
		checkFieldError(t, nt.Validate(), "subjects", `duplicate subject "Math"`)
	})

	t.Run("subjects required", func(t *testing.T) {
		nt := exam.NewTest{Name: "Quiz", Date: date}
		err := nt.Validate()
		if _, ok := err.(validator.ValidationErrors); !ok {
			t.Errorf("error is %T; want validator.ValidationErrors", err)
		}
	})

	t.Run("ok", func(t *testing.T) {
		nt := exam.NewTest{Name: " Quiz ", Date: date, Subjects: exam.SubjectList{{Name: " Math ", MaxMarks: 100}}}
		if err := nt.Validate(); err != nil {
			t.Fatalf("Validate(): %v", err)
		}
		if nt.Name != "Quiz" || nt.Subjects[0].Name != "Math" {
			t.Errorf("names not cleaned: %q, %q", nt.Name, nt.Subjects[0].Name)
		}
	})
}

func TestUpdateTest_Validate(t *testing.T) {
	orig := exam.Test{
		ID:       "t1",
		Name:     "Quiz",
		Date:     core.NewDate(2024, time.March, 10),
		Subjects: exam.SubjectList{{Name: "Math", MaxMarks: 100}},
	}

	t.Run("fills missing from original", func(t *testing.T) {
		ut := exam.UpdateTest{}
		if err := ut.Validate(orig); err != nil {
			t.Fatalf("Validate(): %v", err)
		}
		if ut.Name != orig.Name || !ut.Date.Equal(orig.Date.Time) || len(ut.Subjects) != 1 {
			t.Errorf("original not carried over: %+v", ut)
		}
	})

	t.Run("duplicate subjects", func(t *testing.T) {
		ut := exam.UpdateTest{Subjects: exam.SubjectList{
			{Name: "Science", MaxMarks: 50},
			{Name: "Science", MaxMarks: 50},
		}}
		checkFieldError(t, ut.Validate(orig), "subjects", `duplicate subject "Science"`)
	})
}

// markFixtures builds a service over in-memory repos with one student, one
// test (Math/Science out of 50) and one existing Math mark.
func markFixtures(t *testing.T) (exam.Service, student.Student, exam.Test, exam.Mark) {
	t.Helper()
	ctx := context.Background()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open(): %v", err)
	}
	stdRepo := inmemdb.NewStudentRepository(db)
	testRepo := inmemdb.NewTestRepository(db)
	markRepo := inmemdb.NewMarkRepository(db)
	svc := exam.NewService(testRepo, markRepo, stdRepo)

	std, err := stdRepo.CreateStudent(ctx, student.Student{
		Name:       "Amit Sharma",
		RollNumber: "10a001",
		ClassName:  "10A",
		Email:      "amit@school.com",
	})
	if err != nil {
		t.Fatalf("CreateStudent(): %v", err)
	}
	tst, err := testRepo.CreateTest(ctx, exam.Test{
		Name: "Unit Test 1",
		Date: core.NewDate(2024, time.March, 10),
		Subjects: exam.SubjectList{
			{Name: "Math", MaxMarks: 50},
			{Name: "Science", MaxMarks: 50},
		},
	})
	if err != nil {
		t.Fatalf("CreateTest(): %v", err)
	}
	mrk, err := markRepo.CreateMark(ctx, exam.Mark{
		StudentID:     std.ID,
		TestID:        tst.ID,
		SubjectName:   "Math",
		MarksObtained: 40,
		MaxMarks:      50,
	})
	if err != nil {
		t.Fatalf("CreateMark(): %v", err)
	}
	return svc, std, tst, mrk
}

func TestNewMark_Validate(t *testing.T) {
	svc, std, tst, _ := markFixtures(t)

	t.Run("obtained exceeds max", func(t *testing.T) {
		nm := exam.NewMark{StudentID: std.ID, TestID: tst.ID, SubjectName: "Science", MarksObtained: 51, MaxMarks: 50}
		err := nm.Validate(svc)
		if _, ok := err.(validator.ValidationErrors); !ok {
			t.Errorf("error is %T; want validator.ValidationErrors", err)
		}
	})

	t.Run("unknown student", func(t *testing.T) {
		nm := exam.NewMark{StudentID: "lol", TestID: tst.ID, SubjectName: "Science", MarksObtained: 40, MaxMarks: 50}
		checkFieldError(t, nm.Validate(svc), "student_id", "student not found")
	})

	t.Run("unknown test", func(t *testing.T) {
		nm := exam.NewMark{StudentID: std.ID, TestID: "lol", SubjectName: "Science", MarksObtained: 40, MaxMarks: 50}
		checkFieldError(t, nm.Validate(svc), "test_id", "test not found")
	})

	t.Run("subject not in test", func(t *testing.T) {
		nm := exam.NewMark{StudentID: std.ID, TestID: tst.ID, SubjectName: "History", MarksObtained: 40, MaxMarks: 50}
		checkFieldError(t, nm.Validate(svc), "subject_name", `subject "History" is not part of test "Unit Test 1"`)
	})

	t.Run("duplicate mark", func(t *testing.T) {
		nm := exam.NewMark{StudentID: std.ID, TestID: tst.ID, SubjectName: "Math", MarksObtained: 40, MaxMarks: 50}
		checkFieldError(t, nm.Validate(svc), "subject_name", "a mark for this student, test and subject already exists")
	})

	t.Run("ok", func(t *testing.T) {
		nm := exam.NewMark{StudentID: std.ID, TestID: tst.ID, SubjectName: " Science ", MarksObtained: 45, MaxMarks: 50}
		if err := nm.Validate(svc); err != nil {
			t.Fatalf("Validate(): %v", err)
		}
		if nm.SubjectName != "Science" {
			t.Errorf("subject not cleaned: %q", nm.SubjectName)
		}
	})
}

func TestUpdateMark_Validate(t *testing.T) {
	svc, _, _, mrk := markFixtures(t)
	iPtr := func(i int) *int { return &i }

	t.Run("obtained exceeds max", func(t *testing.T) {
		um := exam.UpdateMark{MarksObtained: iPtr(51)}
		checkFieldError(t, um.Validate(mrk, svc), "marks_obtained", "marks obtained cannot exceed maximum marks")
	})

	t.Run("subject not in test", func(t *testing.T) {
		um := exam.UpdateMark{SubjectName: "History"}
		checkFieldError(t, um.Validate(mrk, svc), "subject_name", `subject "History" is not part of test "Unit Test 1"`)
	})

	t.Run("unchanged subject skips uniqueness", func(t *testing.T) {
		um := exam.UpdateMark{SubjectName: mrk.SubjectName, MarksObtained: iPtr(45)}
		if err := um.Validate(mrk, svc); err != nil {
			t.Fatalf("Validate(): %v", err)
		}
	})

	t.Run("fills missing from original", func(t *testing.T) {
		um := exam.UpdateMark{}
		if err := um.Validate(mrk, svc); err != nil {
			t.Fatalf("Validate(): %v", err)
		}
		if um.SubjectName != mrk.SubjectName || *um.MarksObtained != mrk.MarksObtained || *um.MaxMarks != mrk.MaxMarks {
			t.Errorf("original not carried over: %+v", um)
		}
	})
}
