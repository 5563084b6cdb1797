package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core/student"
)

type studentRow struct {
	ID         string      `db:"id"`
	Name       string      `db:"name"`
	RollNumber string      `db:"roll_number"`
	ClassName  string      `db:"class_name"`
	Email      string      `db:"email"`
	Phone      null.String `db:"phone"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

func (r studentRow) model() student.Student {
	return student.Student{
		ID:         r.ID,
		Name:       r.Name,
		RollNumber: r.RollNumber,
		ClassName:  r.ClassName,
		Email:      r.Email,
		Phone:      r.Phone,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func newStudentRow(std student.Student) studentRow {
	return studentRow{
		ID:         std.ID,
		Name:       std.Name,
		RollNumber: std.RollNumber,
		ClassName:  std.ClassName,
		Email:      std.Email,
		Phone:      std.Phone,
		CreatedAt:  std.CreatedAt.UTC(),
		UpdatedAt:  std.UpdatedAt.UTC(),
	}
}

func studentModels(rows []studentRow) []student.Student {
	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.model())
	}
	return students
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

// trapUniqueErr maps a violated unique constraint to its domain sentinel.
func (repo studentRepository) trapUniqueErr(err error, msg string) error {
	switch violatedConstraint(err) {
	case "student_roll_number_key":
		return student.ErrRollNumberExists
	case "student_email_key":
		return student.ErrEmailExists
	}
	return errors.Wrap(err, msg)
}

func (repo studentRepository) CheckStudentUniqueness(ctx context.Context, rollNumber, email string, excludedStudents ...student.Student) error {
	query := `SELECT roll_number, email FROM student WHERE (roll_number = ? OR email = ?)`
	args := []interface{}{rollNumber, email}

	if len(excludedStudents) > 0 {
		ids := make([]string, 0, len(excludedStudents))
		for _, std := range excludedStudents {
			ids = append(ids, std.ID)
		}
		query += ` AND id NOT IN (?)`
		var err error
		if query, args, err = sqlx.In(query, rollNumber, email, ids); err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}
	}

	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking student uniqueness")
	}
	for _, r := range rows {
		if r.RollNumber == rollNumber {
			return student.ErrRollNumberExists
		}
	}
	if len(rows) > 0 {
		return student.ErrEmailExists
	}
	return nil
}

func (repo studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	std.ID = uuid.New().String()
	row := newStudentRow(std)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO student (id, name, roll_number, class_name, email, phone, created_at, updated_at)
		VALUES (:id, :name, :roll_number, :class_name, :email, :phone, :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		return student.Student{}, repo.trapUniqueErr(err, "inserting student")
	}
	return row.model(), nil
}

func (repo studentRepository) QueryAllStudents(ctx context.Context) ([]student.Student, error) {
	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM student ORDER BY roll_number`); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return studentModels(rows), nil
}

func (repo studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return student.Student{}, student.ErrNotFound
	}
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM student WHERE id = $1`, id); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student by ID")
	}
	return row.model(), nil
}

func (repo studentRepository) GetStudentByRollNumber(ctx context.Context, rollNumber string) (student.Student, error) {
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM student WHERE roll_number = $1`, rollNumber); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student by roll number")
	}
	return row.model(), nil
}

func (repo studentRepository) FilterStudents(ctx context.Context, filter student.QueryFilter) ([]student.Student, error) {
	query := `SELECT * FROM student WHERE true`
	args := make([]interface{}, 0, 3)

	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		query += ` AND (name ILIKE ? OR roll_number ILIKE ? OR email ILIKE ?)`
		args = append(args, val, val, val)
	}
	if filter.ClassName != "" {
		query += ` AND class_name = ?`
		args = append(args, filter.ClassName)
	}
	query += ` ORDER BY roll_number`

	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "filtering students")
	}
	return studentModels(rows), nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	row := newStudentRow(std)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE student
		SET name = :name, roll_number = :roll_number, class_name = :class_name,
		    email = :email, phone = :phone, updated_at = :updated_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return student.Student{}, repo.trapUniqueErr(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return repo.GetStudentByID(ctx, std.ID)
}

func (repo studentRepository) DeleteStudentsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM student WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting students")
	}
	return nil
}
