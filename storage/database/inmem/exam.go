package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/exam"
)

type testRepository struct {
	db *testTable
}

var _ exam.TestRepository = (*testRepository)(nil)

func NewTestRepository(db *DB) *testRepository {
	return &testRepository{db: db.test}
}

func (repo *testRepository) query() []exam.Test {
	tests := make([]exam.Test, 0, len(repo.db.table))
	for _, tst := range repo.db.table {
		tests = append(tests, *tst)
	}
	// most recent first
	sort.SliceStable(tests, func(i, j int) bool { return tests[j].Date.Before(tests[i].Date.Time) })
	return tests
}

func (repo *testRepository) CreateTest(ctx context.Context, tst exam.Test) (exam.Test, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	tst.ID = uuid.New().String()
	repo.db.table[tst.ID] = &tst
	return tst, nil
}

func (repo *testRepository) QueryAllTests(ctx context.Context) ([]exam.Test, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(), nil
}

func (repo *testRepository) GetTestByID(ctx context.Context, id string) (exam.Test, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if tst, ok := repo.db.table[id]; ok {
		return *tst, nil
	}
	return exam.Test{}, exam.ErrTestNotFound
}

func (repo *testRepository) FilterTests(ctx context.Context, filter exam.TestQueryFilter) ([]exam.Test, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tests := make([]exam.Test, 0)
	search := strings.ToLower(filter.Search)
	for _, tst := range repo.query() {
		if search != "" && !strings.Contains(strings.ToLower(tst.Name), search) {
			continue
		}
		tests = append(tests, tst)
	}
	return tests, nil
}

func (repo *testRepository) UpdateTest(ctx context.Context, tst exam.Test) (exam.Test, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[tst.ID]
	if !ok {
		return exam.Test{}, exam.ErrTestNotFound
	}
	orig.Name = tst.Name
	orig.Date = tst.Date
	if tst.Subjects != nil {
		orig.Subjects = tst.Subjects
	}

	repo.db.table[tst.ID] = orig
	return *orig, nil
}

func (repo *testRepository) DeleteTestsByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}

type markRepository struct {
	db *markTable
}

var _ exam.MarkRepository = (*markRepository)(nil)

func NewMarkRepository(db *DB) *markRepository {
	return &markRepository{db: db.mark}
}

func (repo *markRepository) query() []exam.Mark {
	marks := make([]exam.Mark, 0, len(repo.db.table))
	for _, mrk := range repo.db.table {
		marks = append(marks, *mrk)
	}
	sort.Slice(marks, func(i, j int) bool { return marks[i].ID < marks[j].ID })
	return marks
}

func (repo *markRepository) CheckMarkUniqueness(ctx context.Context, studentID, testID, subjectName string, excludedMarks ...exam.Mark) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := excludedIDs(len(excludedMarks), func(i int) string { return excludedMarks[i].ID })
	for _, mrk := range repo.query() {
		if excluded[mrk.ID] {
			continue
		}
		if mrk.StudentID == studentID && mrk.TestID == testID && mrk.SubjectName == subjectName {
			return exam.ErrMarkExists
		}
	}
	return nil
}

func (repo *markRepository) CreateMark(ctx context.Context, mrk exam.Mark) (exam.Mark, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	mrk.ID = uuid.New().String()
	repo.db.table[mrk.ID] = &mrk
	return mrk, nil
}

func (repo *markRepository) QueryAllMarks(ctx context.Context) ([]exam.Mark, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(), nil
}

func (repo *markRepository) GetMarkByID(ctx context.Context, id string) (exam.Mark, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if mrk, ok := repo.db.table[id]; ok {
		return *mrk, nil
	}
	return exam.Mark{}, exam.ErrMarkNotFound
}

func (repo *markRepository) FilterMarks(ctx context.Context, filter exam.MarkQueryFilter) ([]exam.Mark, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	marks := make([]exam.Mark, 0)
	for _, mrk := range repo.query() {
		if filter.StudentID != "" && mrk.StudentID != filter.StudentID {
			continue
		}
		if filter.TestID != "" && mrk.TestID != filter.TestID {
			continue
		}
		if filter.SubjectName != "" && !strings.EqualFold(mrk.SubjectName, filter.SubjectName) {
			continue
		}
		marks = append(marks, mrk)
	}
	return marks, nil
}

func (repo *markRepository) UpdateMark(ctx context.Context, mrk exam.Mark) (exam.Mark, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[mrk.ID]
	if !ok {
		return exam.Mark{}, exam.ErrMarkNotFound
	}
	orig.SubjectName = mrk.SubjectName
	orig.MarksObtained = mrk.MarksObtained
	orig.MaxMarks = mrk.MaxMarks

	repo.db.table[mrk.ID] = orig
	return *orig, nil
}

func (repo *markRepository) DeleteMarksByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.table, id)
	}
	return nil
}

func (repo *markRepository) CountTestStudents(ctx context.Context, testID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	seen := make(map[string]bool)
	for _, mrk := range repo.db.table {
		if mrk.TestID == testID {
			seen[mrk.StudentID] = true
		}
	}
	return len(seen), nil
}
