package dummydb

import (
	"sync"

	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/attendance"
	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/marks"
	"github.com/CreatesRahul-Lab/IKGPTU-sub000/core/user"
)

// DB is an in-memory store for tests and local hacking. Each table guards its
// own map; cross-table consistency is the caller's problem, same as SQL.
type (
	DB struct {
		user       *userTable
		attendance *sessionTable
		marks      *marksTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	sessionTable struct {
		sync.RWMutex
		table map[string]*attendance.Session
	}

	marksTable struct {
		sync.RWMutex
		table map[string]*marks.Record
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		attendance: &sessionTable{table: make(map[string]*attendance.Session)},
		marks:      &marksTable{table: make(map[string]*marks.Record)},
	}
	return db, nil
}
