package exam

import (
	"context"
	"errors"
	"fmt"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
)

var (
	// errors
	ErrTestNotFound = errors.New("test not found")
	ErrMarkNotFound = errors.New("mark not found")
	ErrMarkExists   = errors.New("a mark for this student, test and subject already exists")
)

type (
	TestRepository interface {
		CreateTest(ctx context.Context, tst Test) (Test, error)
		QueryAllTests(ctx context.Context) ([]Test, error)
		GetTestByID(ctx context.Context, id string) (Test, error)
		// FilterTests applies AND operation on available TestQueryFilter fields.
		FilterTests(ctx context.Context, filter TestQueryFilter) ([]Test, error)
		UpdateTest(ctx context.Context, tst Test) (Test, error)
		DeleteTestsByID(ctx context.Context, ids ...string) error
	}

	MarkRepository interface {
		// CheckMarkUniqueness enforces the (student, test, subject) natural key.
		CheckMarkUniqueness(ctx context.Context, studentID, testID, subjectName string, excludedMarks ...Mark) error
		CreateMark(ctx context.Context, mrk Mark) (Mark, error)
		QueryAllMarks(ctx context.Context) ([]Mark, error)
		GetMarkByID(ctx context.Context, id string) (Mark, error)
		// FilterMarks applies AND operation on available MarkQueryFilter fields.
		FilterMarks(ctx context.Context, filter MarkQueryFilter) ([]Mark, error)
		UpdateMark(ctx context.Context, mrk Mark) (Mark, error)
		DeleteMarksByID(ctx context.Context, ids ...string) error
		// CountTestStudents counts distinct students having marks for a test.
		CountTestStudents(ctx context.Context, testID string) (int, error)
	}

	Service interface {
		CheckMark(studentID, testID, subjectName string, exclMarks ...Mark) error

		CreateTest(ctx context.Context, nt NewTest) (Test, error)
		QueryAllTests(ctx context.Context) ([]Test, error)
		GetTestByID(ctx context.Context, id string) (Test, error)
		FilterTests(ctx context.Context, filter TestQueryFilter) ([]Test, error)
		UpdateTest(ctx context.Context, id string, ut UpdateTest) (Test, error)
		DeleteTests(ctx context.Context, ids ...string) error

		CreateMark(ctx context.Context, nm NewMark) (Mark, error)
		QueryAllMarks(ctx context.Context) ([]Mark, error)
		GetMarkByID(ctx context.Context, id string) (Mark, error)
		FilterMarks(ctx context.Context, filter MarkQueryFilter) ([]Mark, error)
		UpdateMark(ctx context.Context, id string, um UpdateMark) (Mark, error)
		DeleteMarks(ctx context.Context, ids ...string) error
	}

	service struct {
		testRepo TestRepository
		markRepo MarkRepository
		stdRepo  student.Repository
	}
)

var _ Service = (*service)(nil)

func NewService(testRepo TestRepository, markRepo MarkRepository, stdRepo student.Repository) Service {
	return &service{
		testRepo: testRepo,
		markRepo: markRepo,
		stdRepo:  stdRepo,
	}
}

// CheckMark validates a prospective mark's references: the student and test
// must exist, the subject must be part of the test, and the
// (student, test, subject) triple must be free.
func (svc *service) CheckMark(studentID, testID, subjectName string, exclMarks ...Mark) error {
	ctx := context.Background()

	if _, err := svc.stdRepo.GetStudentByID(ctx, studentID); err != nil {
		if err == student.ErrNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "student_id", Error: err.Error()})
		}
		return err
	}

	tst, err := svc.testRepo.GetTestByID(ctx, testID)
	if err != nil {
		if err == ErrTestNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "test_id", Error: err.Error()})
		}
		return err
	}
	if !tst.Subjects.Contains(subjectName) {
		err := fmt.Errorf("subject %q is not part of test %q", subjectName, tst.Name)
		return core.NewValidationError(err, core.FieldError{Field: "subject_name", Error: err.Error()})
	}

	if err := svc.markRepo.CheckMarkUniqueness(ctx, studentID, testID, subjectName, exclMarks...); err != nil {
		if err == ErrMarkExists {
			return core.NewValidationError(err, core.FieldError{Field: "subject_name", Error: err.Error()})
		}
		return err
	}
	return nil
}

// Tests

func (svc *service) CreateTest(ctx context.Context, nt NewTest) (Test, error) {
	tst := Test{
		Name:     nt.Name,
		Date:     nt.Date,
		Subjects: nt.Subjects,
	}
	return svc.testRepo.CreateTest(ctx, tst)
}

func (svc *service) QueryAllTests(ctx context.Context) ([]Test, error) {
	tests, err := svc.testRepo.QueryAllTests(ctx)
	if err != nil {
		return nil, err
	}
	return svc.withStudentCounts(ctx, tests)
}

func (svc *service) GetTestByID(ctx context.Context, id string) (Test, error) {
	tst, err := svc.testRepo.GetTestByID(ctx, id)
	if err != nil {
		return Test{}, err
	}
	count, err := svc.markRepo.CountTestStudents(ctx, tst.ID)
	if err != nil {
		return Test{}, err
	}
	tst.StudentCount = count
	return tst, nil
}

func (svc *service) FilterTests(ctx context.Context, filter TestQueryFilter) ([]Test, error) {
	filter.Clean()
	var (
		tests []Test
		err   error
	)
	if filter.IsEmpty() {
		tests, err = svc.testRepo.QueryAllTests(ctx)
	} else {
		tests, err = svc.testRepo.FilterTests(ctx, filter)
	}
	if err != nil {
		return nil, err
	}
	return svc.withStudentCounts(ctx, tests)
}

func (svc *service) UpdateTest(ctx context.Context, id string, ut UpdateTest) (Test, error) {
	tst := Test{
		ID:       id,
		Name:     ut.Name,
		Date:     ut.Date,
		Subjects: ut.Subjects,
	}
	return svc.testRepo.UpdateTest(ctx, tst)
}

func (svc *service) DeleteTests(ctx context.Context, ids ...string) error {
	return svc.testRepo.DeleteTestsByID(ctx, ids...)
}

func (svc *service) withStudentCounts(ctx context.Context, tests []Test) ([]Test, error) {
	for i := range tests {
		count, err := svc.markRepo.CountTestStudents(ctx, tests[i].ID)
		if err != nil {
			return nil, err
		}
		tests[i].StudentCount = count
	}
	return tests, nil
}

// Marks

func (svc *service) CreateMark(ctx context.Context, nm NewMark) (Mark, error) {
	mrk := Mark{
		StudentID:     nm.StudentID,
		TestID:        nm.TestID,
		SubjectName:   nm.SubjectName,
		MarksObtained: nm.MarksObtained,
		MaxMarks:      nm.MaxMarks,
	}
	return svc.markRepo.CreateMark(ctx, mrk)
}

func (svc *service) QueryAllMarks(ctx context.Context) ([]Mark, error) {
	return svc.markRepo.QueryAllMarks(ctx)
}

// GetMarkByID returns the mark enriched with its Student and Test records
// when they still exist; dangling references stay nil.
func (svc *service) GetMarkByID(ctx context.Context, id string) (Mark, error) {
	mrk, err := svc.markRepo.GetMarkByID(ctx, id)
	if err != nil {
		return Mark{}, err
	}
	if std, err := svc.stdRepo.GetStudentByID(ctx, mrk.StudentID); err == nil {
		mrk.Student = &std
	} else if err != student.ErrNotFound {
		return Mark{}, err
	}
	if tst, err := svc.testRepo.GetTestByID(ctx, mrk.TestID); err == nil {
		mrk.Test = &tst
	} else if err != ErrTestNotFound {
		return Mark{}, err
	}
	return mrk, nil
}

func (svc *service) FilterMarks(ctx context.Context, filter MarkQueryFilter) ([]Mark, error) {
	filter.Clean()
	if filter.IsEmpty() {
		return svc.markRepo.QueryAllMarks(ctx)
	}
	return svc.markRepo.FilterMarks(ctx, filter)
}

func (svc *service) UpdateMark(ctx context.Context, id string, um UpdateMark) (Mark, error) {
	orig, err := svc.markRepo.GetMarkByID(ctx, id)
	if err != nil {
		return Mark{}, err
	}
	orig.SubjectName = um.SubjectName
	if um.MarksObtained != nil {
		orig.MarksObtained = *um.MarksObtained
	}
	if um.MaxMarks != nil {
		orig.MaxMarks = *um.MaxMarks
	}
	return svc.markRepo.UpdateMark(ctx, orig)
}

func (svc *service) DeleteMarks(ctx context.Context, ids ...string) error {
	return svc.markRepo.DeleteMarksByID(ctx, ids...)
}
