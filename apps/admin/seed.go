package main

import (
	"context"
	"fmt"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/exam"
	"github.com/trezcool/shule/core/student"
)

// seed replaces the student, test and mark tables with a sample data set.
func (cli *commandLine) seed() error {
	ctx := context.Background()

	if err := cli.clearRecords(ctx); err != nil {
		return err
	}
	fmt.Println("Cleared existing data")

	students, err := cli.seedStudents(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Created %d students\n", len(students))

	tests, err := cli.seedTests(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Created %d tests\n", len(tests))

	count, err := cli.seedMarks(ctx, students, tests)
	if err != nil {
		return err
	}
	fmt.Printf("Created %d marks\n", count)
	fmt.Println("Database seeding completed successfully!")
	return nil
}

func (cli *commandLine) clearRecords(ctx context.Context) error {
	marks, err := cli.markRepo.QueryAllMarks(ctx)
	if err != nil {
		return err
	}
	if len(marks) > 0 {
		ids := make([]string, len(marks))
		for i, mrk := range marks {
			ids[i] = mrk.ID
		}
		if err := cli.markRepo.DeleteMarksByID(ctx, ids...); err != nil {
			return err
		}
	}

	tests, err := cli.testRepo.QueryAllTests(ctx)
	if err != nil {
		return err
	}
	if len(tests) > 0 {
		ids := make([]string, len(tests))
		for i, tst := range tests {
			ids[i] = tst.ID
		}
		if err := cli.testRepo.DeleteTestsByID(ctx, ids...); err != nil {
			return err
		}
	}

	students, err := cli.stdRepo.QueryAllStudents(ctx)
	if err != nil {
		return err
	}
	if len(students) > 0 {
		ids := make([]string, len(students))
		for i, std := range students {
			ids[i] = std.ID
		}
		if err := cli.stdRepo.DeleteStudentsByID(ctx, ids...); err != nil {
			return err
		}
	}
	return nil
}

func (cli *commandLine) seedStudents(ctx context.Context) ([]student.Student, error) {
	data := []student.Student{
		{Name: "Amit Sharma", RollNumber: "10A001", ClassName: "10A", Email: "amit@school.com", Phone: null.StringFrom("+919876543210")},
		{Name: "Priya Singh", RollNumber: "10A002", ClassName: "10A", Email: "priya@school.com", Phone: null.StringFrom("+919876543211")},
		{Name: "Rohan Kumar", RollNumber: "10B001", ClassName: "10B", Email: "rohan@school.com", Phone: null.StringFrom("+919876543212")},
		{Name: "Anjali Gupta", RollNumber: "10A003", ClassName: "10A", Email: "anjali@school.com", Phone: null.StringFrom("+919876543213")},
		{Name: "Karan Mehta", RollNumber: "10B002", ClassName: "10B", Email: "karan@school.com", Phone: null.StringFrom("+919876543214")},
		{Name: "Sneha Iyer", RollNumber: "10A004", ClassName: "10A", Email: "sneha@school.com"},
		{Name: "Arjun Reddy", RollNumber: "10B003", ClassName: "10B", Email: "arjun@school.com"},
		{Name: "Neha Patel", RollNumber: "10A005", ClassName: "10A", Email: "neha@school.com"},
	}

	students := make([]student.Student, 0, len(data))
	for _, std := range data {
		std, err := cli.stdRepo.CreateStudent(ctx, std)
		if err != nil {
			return nil, err
		}
		students = append(students, std)
	}
	return students, nil
}

func (cli *commandLine) seedTests(ctx context.Context) ([]exam.Test, error) {
	today := core.DateOf(time.Now())

	fullSubjects := exam.SubjectList{
		{Name: "Mathematics", MaxMarks: 100},
		{Name: "Science", MaxMarks: 100},
		{Name: "English", MaxMarks: 100},
		{Name: "Hindi", MaxMarks: 100},
		{Name: "Social Science", MaxMarks: 100},
	}
	data := []exam.Test{
		{
			Name:     "Half-Yearly Exam",
			Date:     core.DateOf(today.AddDate(0, 0, -30)),
			Subjects: fullSubjects,
		},
		{
			Name: "Unit Test 1",
			Date: core.DateOf(today.AddDate(0, 0, -60)),
			Subjects: exam.SubjectList{
				{Name: "Mathematics", MaxMarks: 50},
				{Name: "Science", MaxMarks: 50},
			},
		},
		{
			Name:     "Final Exam",
			Date:     core.DateOf(today.AddDate(0, 0, 15)),
			Subjects: fullSubjects,
		},
	}

	tests := make([]exam.Test, 0, len(data))
	for _, tst := range data {
		tst, err := cli.testRepo.CreateTest(ctx, tst)
		if err != nil {
			return nil, err
		}
		tests = append(tests, tst)
	}
	return tests, nil
}

func (cli *commandLine) seedMarks(ctx context.Context, students []student.Student, tests []exam.Test) (int, error) {
	type entry struct {
		student  int
		subject  string
		obtained int
	}

	halfYearly := []entry{
		{0, "Mathematics", 92}, {0, "Science", 88}, {0, "English", 85}, {0, "Hindi", 90}, {0, "Social Science", 87},
		{1, "Mathematics", 80}, {1, "Science", 75}, {1, "English", 78}, {1, "Hindi", 82}, {1, "Social Science", 77},
		{2, "Mathematics", 65}, {2, "Science", 68}, {2, "English", 70}, {2, "Hindi", 60}, {2, "Social Science", 72},
	}
	unitTest := []entry{
		{0, "Mathematics", 48}, {0, "Science", 45},
		{1, "Mathematics", 40}, {1, "Science", 42},
		{2, "Mathematics", 35}, {2, "Science", 38},
	}

	var count int
	for i, entries := range [][]entry{halfYearly, unitTest} {
		tst := tests[i]
		for _, e := range entries {
			maxMarks := 0
			for _, sub := range tst.Subjects {
				if sub.Name == e.subject {
					maxMarks = sub.MaxMarks
					break
				}
			}
			mrk := exam.Mark{
				StudentID:     students[e.student].ID,
				TestID:        tst.ID,
				SubjectName:   e.subject,
				MarksObtained: e.obtained,
				MaxMarks:      maxMarks,
			}
			if _, err := cli.markRepo.CreateMark(ctx, mrk); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}
