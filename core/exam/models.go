// Package exam holds the Test, Subject and Mark domain: test definitions with
// their subject lists, and the per-(student, test, subject) mark records.
package exam

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/student"
)

// Subject is a named component of a Test. It has no identity of its own;
// it only exists as part of a Test's subject list.
type Subject struct {
	Name     string `json:"name" validate:"required"`
	MaxMarks int    `json:"max_marks" validate:"min=1"`
}

// SubjectList is an ordered list of Subjects, stored as a JSONB column.
type SubjectList []Subject

func (sl SubjectList) Value() (driver.Value, error) {
	data, err := json.Marshal(sl)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling subjects")
	}
	return data, nil
}

func (sl *SubjectList) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	case nil:
		*sl = nil
		return nil
	default:
		return errors.Errorf("cannot scan %T into SubjectList", src)
	}
	return errors.Wrap(json.Unmarshal(data, sl), "unmarshaling subjects")
}

// Contains reports whether the list has a subject with the given name.
func (sl SubjectList) Contains(name string) bool {
	for _, sub := range sl {
		if sub.Name == name {
			return true
		}
	}
	return false
}

type Test struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Date     core.Date   `json:"date"`
	Subjects SubjectList `json:"subjects"`

	// StudentCount is the number of distinct students having marks for this
	// test. Derived, never persisted.
	StudentCount int `json:"student_count"`
}

type Mark struct {
	ID            string `json:"id"`
	StudentID     string `json:"student_id"`
	TestID        string `json:"test_id"`
	SubjectName   string `json:"subject_name"`
	MarksObtained int    `json:"marks_obtained"`
	MaxMarks      int    `json:"max_marks"`

	// optional nested data for detailed responses
	Student *student.Student `json:"student,omitempty"`
	Test    *Test            `json:"test,omitempty"`
}

// Percentage is 100*obtained/max, or 0 when max is not positive.
func (m Mark) Percentage() float64 {
	if m.MaxMarks > 0 {
		return 100 * float64(m.MarksObtained) / float64(m.MaxMarks)
	}
	return 0
}

// NewTest contains information needed to create a new Test.
type NewTest struct {
	Name     string      `json:"name" validate:"required"`
	Date     core.Date   `json:"date"`
	Subjects SubjectList `json:"subjects" validate:"min=1,dive"`
}

func (nt *NewTest) Validate() error {
	nt.Name = core.CleanString(nt.Name)
	for i := range nt.Subjects {
		nt.Subjects[i].Name = core.CleanString(nt.Subjects[i].Name)
	}

	if err := core.Validate.Struct(nt); err != nil {
		return err
	}
	if nt.Date.IsZero() {
		return core.NewValidationError(errDateRequired, core.FieldError{Field: "date", Error: errDateRequired.Error()})
	}
	return validateSubjectNames(nt.Subjects)
}

// UpdateTest defines what information may be provided to modify an existing Test.
type UpdateTest struct {
	Name     string      `json:"name"`
	Date     core.Date   `json:"date"`
	Subjects SubjectList `json:"subjects" validate:"omitempty,min=1,dive"`
}

func (ut *UpdateTest) Validate(orig Test) error {
	if name := core.CleanString(ut.Name); name != "" {
		ut.Name = name
	} else {
		ut.Name = orig.Name
	}
	if ut.Date.IsZero() {
		ut.Date = orig.Date
	}
	if ut.Subjects == nil {
		ut.Subjects = orig.Subjects
	}
	for i := range ut.Subjects {
		ut.Subjects[i].Name = core.CleanString(ut.Subjects[i].Name)
	}

	if err := core.Validate.Struct(ut); err != nil {
		return err
	}
	return validateSubjectNames(ut.Subjects)
}

// NewMark contains information needed to record a new Mark.
type NewMark struct {
	StudentID     string `json:"student_id" validate:"required"`
	TestID        string `json:"test_id" validate:"required"`
	SubjectName   string `json:"subject_name" validate:"required"`
	MarksObtained int    `json:"marks_obtained" validate:"min=0,ltefield=MaxMarks"`
	MaxMarks      int    `json:"max_marks" validate:"min=1"`
}

func (nm *NewMark) Validate(svc Service) error {
	nm.SubjectName = core.CleanString(nm.SubjectName)

	if err := core.Validate.Struct(nm); err != nil {
		return err
	}
	return svc.CheckMark(nm.StudentID, nm.TestID, nm.SubjectName)
}

// UpdateMark defines what information may be provided to modify an existing Mark.
type UpdateMark struct {
	SubjectName   string `json:"subject_name"`
	MarksObtained *int   `json:"marks_obtained" validate:"omitempty,min=0"`
	MaxMarks      *int   `json:"max_marks" validate:"omitempty,min=1"`
}

func (um *UpdateMark) Validate(orig Mark, svc Service) error {
	if sn := core.CleanString(um.SubjectName); sn != "" {
		um.SubjectName = sn
	} else {
		um.SubjectName = orig.SubjectName
	}
	if um.MarksObtained == nil {
		um.MarksObtained = &orig.MarksObtained
	}
	if um.MaxMarks == nil {
		um.MaxMarks = &orig.MaxMarks
	}

	if err := core.Validate.Struct(um); err != nil {
		return err
	}
	if *um.MarksObtained > *um.MaxMarks {
		return core.NewValidationError(
			errObtainedExceedsMax,
			core.FieldError{Field: "marks_obtained", Error: errObtainedExceedsMax.Error()},
		)
	}
	if um.SubjectName == orig.SubjectName {
		return nil
	}
	return svc.CheckMark(orig.StudentID, orig.TestID, um.SubjectName, orig)
}

type TestQueryFilter struct {
	// Search does a case-insensitive match on Test.Name.
	Search string `query:"search"`
}

func (qf *TestQueryFilter) IsEmpty() bool { return qf.Search == "" }

func (qf *TestQueryFilter) Clean() { qf.Search = core.CleanString(qf.Search) }

type MarkQueryFilter struct {
	StudentID   string `query:"student_id"`
	TestID      string `query:"test_id"`
	SubjectName string `query:"subject_name"`
}

func (qf *MarkQueryFilter) IsEmpty() bool {
	return qf.StudentID == "" && qf.TestID == "" && qf.SubjectName == ""
}

func (qf *MarkQueryFilter) Clean() {
	qf.SubjectName = core.CleanString(qf.SubjectName)
}
