package student

import (
	"context"
	"errors"
	"time"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound         = errors.New("student not found")
	ErrRollNumberExists = errors.New("a student with this roll number already exists")
	ErrEmailExists      = errors.New("a student with this email already exists")
)

type (
	Repository interface {
		CheckStudentUniqueness(ctx context.Context, rollNumber, email string, excludedStudents ...Student) error
		CreateStudent(ctx context.Context, std Student) (Student, error)
		QueryAllStudents(ctx context.Context) ([]Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		GetStudentByRollNumber(ctx context.Context, rollNumber string) (Student, error)
		// FilterStudents applies AND operation on available QueryFilter fields.
		FilterStudents(ctx context.Context, filter QueryFilter) ([]Student, error)
		UpdateStudent(ctx context.Context, std Student) (Student, error)
		DeleteStudentsByID(ctx context.Context, ids ...string) error
	}

	Service interface {
		CheckUniqueness(rollNumber, email string, exclStudents ...Student) error
		Create(ctx context.Context, ns NewStudent) (Student, error)
		QueryAll(ctx context.Context) ([]Student, error)
		GetByID(ctx context.Context, id string) (Student, error)
		GetByRollNumber(ctx context.Context, rollNumber string) (Student, error)
		Filter(ctx context.Context, filter QueryFilter) ([]Student, error)
		Update(ctx context.Context, id string, us UpdateStudent) (Student, error)
		Delete(ctx context.Context, ids ...string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CheckUniqueness(rollNumber, email string, exclStudents ...Student) error {
	if err := svc.repo.CheckStudentUniqueness(context.Background(), rollNumber, email, exclStudents...); err != nil {
		var field string
		switch err {
		case ErrRollNumberExists:
			field = "roll_number"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	now := time.Now().UTC()
	std := Student{
		Name:       ns.Name,
		RollNumber: ns.RollNumber,
		ClassName:  ns.ClassName,
		Email:      ns.Email,
		Phone:      ns.Phone,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateStudent(ctx, std)
}

func (svc *service) QueryAll(ctx context.Context) ([]Student, error) {
	return svc.repo.QueryAllStudents(ctx)
}

func (svc *service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *service) GetByRollNumber(ctx context.Context, rollNumber string) (Student, error) {
	return svc.repo.GetStudentByRollNumber(ctx, core.CleanString(rollNumber, true /* lower */))
}

func (svc *service) Filter(ctx context.Context, filter QueryFilter) ([]Student, error) {
	filter.Clean()
	if filter.IsEmpty() {
		return svc.repo.QueryAllStudents(ctx)
	}
	return svc.repo.FilterStudents(ctx, filter)
}

func (svc *service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	std := Student{
		ID:         id,
		Name:       us.Name,
		RollNumber: us.RollNumber,
		ClassName:  us.ClassName,
		Email:      us.Email,
		Phone:      us.Phone,
		UpdatedAt:  time.Now().UTC(),
	}
	return svc.repo.UpdateStudent(ctx, std)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteStudentsByID(ctx, ids...)
}
