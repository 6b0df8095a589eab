// Package inmemdb implements the repositories in memory, for development and tests.
package inmemdb

import (
	"sync"

	"github.com/trezcool/kanisa/core/attendance"
	"github.com/trezcool/kanisa/core/followup"
	"github.com/trezcool/kanisa/core/person"
	"github.com/trezcool/kanisa/core/staff"
)

type (
	DB struct {
		person     *personTable
		class      *classTable
		attendance *attendanceTable
		ignore     *ignoreTable
		staff      *staffTable
	}

	personTable struct {
		table map[string]*person.Person
		mutex sync.RWMutex
	}

	classTable struct {
		table map[string]*person.Class
		mutex sync.RWMutex
	}

	attendanceTable struct {
		table map[string]*attendance.Record // {id: record}
		mutex sync.RWMutex
	}

	ignoreTable struct {
		table map[string]*followup.IgnoreEntry // {personID: entry}
		mutex sync.RWMutex
	}

	staffTable struct {
		table map[string]*staff.Staff
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		person:     &personTable{table: make(map[string]*person.Person)},
		class:      &classTable{table: make(map[string]*person.Class)},
		attendance: &attendanceTable{table: make(map[string]*attendance.Record)},
		ignore:     &ignoreTable{table: make(map[string]*followup.IgnoreEntry)},
		staff:      &staffTable{table: make(map[string]*staff.Staff)},
	}
}
