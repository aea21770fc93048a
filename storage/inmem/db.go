package inmemdb

import (
	"sync"

	"github.com/trezcool/masomo-portal/core/classroom"
	"github.com/trezcool/masomo-portal/core/user"
)

// DB is a process local database for development and tests.
type DB struct {
	mu sync.RWMutex

	users         map[int]*user.User
	courses       map[int]*classroom.Course
	assignments   map[int]*classroom.Assignment
	submissions   map[int]*classroom.Submission
	notifications map[int]*classroom.Notification

	pkCount int
}

func Open() *DB {
	return &DB{
		users:         make(map[int]*user.User),
		courses:       make(map[int]*classroom.Course),
		assignments:   make(map[int]*classroom.Assignment),
		submissions:   make(map[int]*classroom.Submission),
		notifications: make(map[int]*classroom.Notification),
	}
}

// nextPK must be called with mu held.
func (db *DB) nextPK() int {
	db.pkCount++
	return db.pkCount
}
