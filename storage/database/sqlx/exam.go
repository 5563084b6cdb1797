package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/exam"
)

type testRow struct {
	ID       string           `db:"id"`
	Name     string           `db:"name"`
	Date     core.Date        `db:"date"`
	Subjects exam.SubjectList `db:"subjects"`
}

func (r testRow) model() exam.Test {
	return exam.Test{
		ID:       r.ID,
		Name:     r.Name,
		Date:     r.Date,
		Subjects: r.Subjects,
	}
}

func newTestRow(tst exam.Test) testRow {
	return testRow{
		ID:       tst.ID,
		Name:     tst.Name,
		Date:     tst.Date,
		Subjects: tst.Subjects,
	}
}

func testModels(rows []testRow) []exam.Test {
	tests := make([]exam.Test, 0, len(rows))
	for _, r := range rows {
		tests = append(tests, r.model())
	}
	return tests
}

type testRepository struct {
	db *sqlx.DB
}

var _ exam.TestRepository = (*testRepository)(nil) // interface compliance check

func NewTestRepository(db *sqlx.DB) *testRepository {
	return &testRepository{db: db}
}

func (repo testRepository) CreateTest(ctx context.Context, tst exam.Test) (exam.Test, error) {
	tst.ID = uuid.New().String()
	row := newTestRow(tst)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO test (id, name, date, subjects)
		VALUES (:id, :name, :date, :subjects)`,
		row,
	)
	if err != nil {
		return exam.Test{}, errors.Wrap(err, "inserting test")
	}
	return row.model(), nil
}

func (repo testRepository) QueryAllTests(ctx context.Context) ([]exam.Test, error) {
	var rows []testRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM test ORDER BY date DESC`); err != nil {
		return nil, errors.Wrap(err, "querying tests")
	}
	return testModels(rows), nil
}

func (repo testRepository) GetTestByID(ctx context.Context, id string) (exam.Test, error) {
	if _, err := uuid.Parse(id); err != nil {
		return exam.Test{}, exam.ErrTestNotFound
	}
	var row testRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM test WHERE id = $1`, id); err != nil {
		return exam.Test{}, trapNoRowsErr(err, exam.ErrTestNotFound, "finding test by ID")
	}
	return row.model(), nil
}

func (repo testRepository) FilterTests(ctx context.Context, filter exam.TestQueryFilter) ([]exam.Test, error) {
	var rows []testRow
	err := repo.db.SelectContext(ctx, &rows,
		`SELECT * FROM test WHERE name ILIKE $1 ORDER BY date DESC`,
		"%"+filter.Search+"%",
	)
	if err != nil {
		return nil, errors.Wrap(err, "filtering tests")
	}
	return testModels(rows), nil
}

func (repo testRepository) UpdateTest(ctx context.Context, tst exam.Test) (exam.Test, error) {
	row := newTestRow(tst)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE test SET name = :name, date = :date, subjects = :subjects WHERE id = :id`,
		row,
	)
	if err != nil {
		return exam.Test{}, errors.Wrap(err, "updating test")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return exam.Test{}, exam.ErrTestNotFound
	}
	return repo.GetTestByID(ctx, tst.ID)
}

func (repo testRepository) DeleteTestsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM test WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting tests")
	}
	return nil
}

type markRow struct {
	ID            string `db:"id"`
	StudentID     string `db:"student_id"`
	TestID        string `db:"test_id"`
	SubjectName   string `db:"subject_name"`
	MarksObtained int    `db:"marks_obtained"`
	MaxMarks      int    `db:"max_marks"`
}

func (r markRow) model() exam.Mark {
	return exam.Mark{
		ID:            r.ID,
		StudentID:     r.StudentID,
		TestID:        r.TestID,
		SubjectName:   r.SubjectName,
		MarksObtained: r.MarksObtained,
		MaxMarks:      r.MaxMarks,
	}
}

func newMarkRow(mrk exam.Mark) markRow {
	return markRow{
		ID:            mrk.ID,
		StudentID:     mrk.StudentID,
		TestID:        mrk.TestID,
		SubjectName:   mrk.SubjectName,
		MarksObtained: mrk.MarksObtained,
		MaxMarks:      mrk.MaxMarks,
	}
}

func markModels(rows []markRow) []exam.Mark {
	marks := make([]exam.Mark, 0, len(rows))
	for _, r := range rows {
		marks = append(marks, r.model())
	}
	return marks
}

type markRepository struct {
	db *sqlx.DB
}

var _ exam.MarkRepository = (*markRepository)(nil) // interface compliance check

func NewMarkRepository(db *sqlx.DB) *markRepository {
	return &markRepository{db: db}
}

// trapUniqueErr maps the natural key constraint to its domain sentinel.
func (repo markRepository) trapUniqueErr(err error, msg string) error {
	if violatedConstraint(err) == "mark_student_test_subject_key" {
		return exam.ErrMarkExists
	}
	return errors.Wrap(err, msg)
}

func (repo markRepository) CheckMarkUniqueness(ctx context.Context, studentID, testID, subjectName string, excludedMarks ...exam.Mark) error {
	query := `SELECT COUNT(*) FROM mark WHERE student_id = ? AND test_id = ? AND subject_name = ?`
	args := []interface{}{studentID, testID, subjectName}

	if len(excludedMarks) > 0 {
		ids := make([]string, 0, len(excludedMarks))
		for _, mrk := range excludedMarks {
			ids = append(ids, mrk.ID)
		}
		query += ` AND id NOT IN (?)`
		var err error
		if query, args, err = sqlx.In(query, studentID, testID, subjectName, ids); err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking mark uniqueness")
	}
	if count > 0 {
		return exam.ErrMarkExists
	}
	return nil
}

func (repo markRepository) CreateMark(ctx context.Context, mrk exam.Mark) (exam.Mark, error) {
	mrk.ID = uuid.New().String()
	row := newMarkRow(mrk)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO mark (id, student_id, test_id, subject_name, marks_obtained, max_marks)
		VALUES (:id, :student_id, :test_id, :subject_name, :marks_obtained, :max_marks)`,
		row,
	)
	if err != nil {
		return exam.Mark{}, repo.trapUniqueErr(err, "inserting mark")
	}
	return row.model(), nil
}

func (repo markRepository) QueryAllMarks(ctx context.Context) ([]exam.Mark, error) {
	var rows []markRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM mark`); err != nil {
		return nil, errors.Wrap(err, "querying marks")
	}
	return markModels(rows), nil
}

func (repo markRepository) GetMarkByID(ctx context.Context, id string) (exam.Mark, error) {
	if _, err := uuid.Parse(id); err != nil {
		return exam.Mark{}, exam.ErrMarkNotFound
	}
	var row markRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM mark WHERE id = $1`, id); err != nil {
		return exam.Mark{}, trapNoRowsErr(err, exam.ErrMarkNotFound, "finding mark by ID")
	}
	return row.model(), nil
}

func (repo markRepository) FilterMarks(ctx context.Context, filter exam.MarkQueryFilter) ([]exam.Mark, error) {
	query := `SELECT * FROM mark WHERE true`
	args := make([]interface{}, 0, 3)

	if filter.StudentID != "" {
		query += ` AND student_id = ?`
		args = append(args, filter.StudentID)
	}
	if filter.TestID != "" {
		query += ` AND test_id = ?`
		args = append(args, filter.TestID)
	}
	if filter.SubjectName != "" {
		query += ` AND subject_name = ?`
		args = append(args, filter.SubjectName)
	}

	var rows []markRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "filtering marks")
	}
	return markModels(rows), nil
}

func (repo markRepository) UpdateMark(ctx context.Context, mrk exam.Mark) (exam.Mark, error) {
	row := newMarkRow(mrk)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE mark
		SET subject_name = :subject_name, marks_obtained = :marks_obtained, max_marks = :max_marks
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return exam.Mark{}, repo.trapUniqueErr(err, "updating mark")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return exam.Mark{}, exam.ErrMarkNotFound
	}
	return row.model(), nil
}

func (repo markRepository) DeleteMarksByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM mark WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting marks")
	}
	return nil
}

func (repo markRepository) CountTestStudents(ctx context.Context, testID string) (int, error) {
	var count int
	err := repo.db.GetContext(ctx, &count, `SELECT COUNT(DISTINCT student_id) FROM mark WHERE test_id = $1`, testID)
	if err != nil {
		return 0, errors.Wrap(err, "counting test students")
	}
	return count, nil
}
