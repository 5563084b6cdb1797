// Package inmemdb provides map-backed repositories, used by tests and local tooling.
package inmemdb

import (
	"sync"

	"github.com/trezcool/shule/core/exam"
	"github.com/trezcool/shule/core/student"
	"github.com/trezcool/shule/core/user"
)

type (
	DB struct {
		user    *userTable
		student *studentTable
		test    *testTable
		mark    *markTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student
	}

	testTable struct {
		sync.RWMutex
		table map[string]*exam.Test
	}

	markTable struct {
		sync.RWMutex
		table map[string]*exam.Mark
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		student: &studentTable{table: make(map[string]*student.Student)},
		test:    &testTable{table: make(map[string]*exam.Test)},
		mark:    &markTable{table: make(map[string]*exam.Mark)},
	}
	return db, nil
}
