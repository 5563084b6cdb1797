package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/exam"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func CreateStudent(
	t *testing.T,
	repo student.Repository,
	name, rollNumber, className, email string,
	phone ...string,
) student.Student {
	t.Helper()

	std := student.Student{
		Name:       name,
		RollNumber: rollNumber,
		ClassName:  className,
		Email:      email,
	}
	if len(phone) > 0 {
		std.Phone = null.StringFrom(phone[0])
	}
	std, err := repo.CreateStudent(context.Background(), std)
	if err != nil {
		t.Fatalf("CreateStudent(): %v", err)
	}
	return std
}

func CreateTest(
	t *testing.T,
	repo exam.TestRepository,
	name string,
	date core.Date,
	subjects ...exam.Subject,
) exam.Test {
	t.Helper()

	tst, err := repo.CreateTest(context.Background(), exam.Test{
		Name:     name,
		Date:     date,
		Subjects: subjects,
	})
	if err != nil {
		t.Fatalf("CreateTest(): %v", err)
	}
	return tst
}

func CreateMark(
	t *testing.T,
	repo exam.MarkRepository,
	std student.Student,
	tst exam.Test,
	subjectName string,
	obtained, max int,
) exam.Mark {
	t.Helper()

	mrk, err := repo.CreateMark(context.Background(), exam.Mark{
		StudentID:     std.ID,
		TestID:        tst.ID,
		SubjectName:   subjectName,
		MarksObtained: obtained,
		MaxMarks:      max,
	})
	if err != nil {
		t.Fatalf("CreateMark(): %v", err)
	}
	return mrk
}
