package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) query() []student.Student {
	students := make([]student.Student, 0, len(repo.db.table))
	for _, std := range repo.db.table {
		students = append(students, *std)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].RollNumber < students[j].RollNumber })
	return students
}

func (repo *studentRepository) CheckStudentUniqueness(ctx context.Context, rollNumber, email string, excludedStudents ...student.Student) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := excludedIDs(len(excludedStudents), func(i int) string { return excludedStudents[i].ID })
	for _, std := range repo.query() {
		if excluded[std.ID] {
			continue
		}
		if std.RollNumber == rollNumber {
			return student.ErrRollNumberExists
		}
		if std.Email == email {
			return student.ErrEmailExists
		}
	}
	return nil
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	std.ID = uuid.New().String()
	repo.db.table[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) QueryAllStudents(ctx context.Context) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(), nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if std, ok := repo.db.table[id]; ok {
		return *std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) GetStudentByRollNumber(ctx context.Context, rollNumber string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, std := range repo.query() {
		if std.RollNumber == rollNumber {
			return std, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) FilterStudents(ctx context.Context, filter student.QueryFilter) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]student.Student, 0)
	search := strings.ToLower(filter.Search)
	for _, std := range repo.query() {
		if filter.ClassName != "" && std.ClassName != filter.ClassName {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(std.Name), search) &&
			!strings.Contains(strings.ToLower(std.RollNumber), search) &&
			!strings.Contains(strings.ToLower(std.Email), search) {
			continue
		}
		students = append(students, std)
	}
	return students, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[std.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	orig.Name = std.Name
	orig.RollNumber = std.RollNumber
	orig.ClassName = std.ClassName
	orig.Email = std.Email
	if std.Phone.Valid {
		orig.Phone = std.Phone
	}
	orig.UpdatedAt = std.UpdatedAt

	repo.db.table[std.ID] = orig
	return *orig, nil
}

func (repo *studentRepository) DeleteStudentsByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}

func excludedIDs(n int, idAt func(i int) string) map[string]bool {
	ids := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		ids[idAt(i)] = true
	}
	return ids
}
