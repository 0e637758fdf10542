package inmemdb

import (
	"sync"

	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/relation"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

// DB is an in-memory store substituting for postgres in tests and local dev.
// A single lock guards all tables so the cross-table invite-accept sequence
// stays atomic, matching the conditional-update guarantee of the SQL backend.
type DB struct {
	mutex sync.RWMutex

	users         map[string]*user.User
	subjects      map[string]*school.Subject
	tasks         map[string]*school.Task
	projects      map[string]*school.Project
	projectTasks  map[string]*school.ProjectTask
	invites       map[string]*relation.ParentInvite
	relations     map[string]*relation.ParentStudentRelation
	notifications map[string]*notification.Notification
}

// Reset empties all tables; for tests.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	db.users = make(map[string]*user.User)
	db.subjects = make(map[string]*school.Subject)
	db.tasks = make(map[string]*school.Task)
	db.projects = make(map[string]*school.Project)
	db.projectTasks = make(map[string]*school.ProjectTask)
	db.invites = make(map[string]*relation.ParentInvite)
	db.relations = make(map[string]*relation.ParentStudentRelation)
	db.notifications = make(map[string]*notification.Notification)
}

func Open() *DB {
	return &DB{
		users:         make(map[string]*user.User),
		subjects:      make(map[string]*school.Subject),
		tasks:         make(map[string]*school.Task),
		projects:      make(map[string]*school.Project),
		projectTasks:  make(map[string]*school.ProjectTask),
		invites:       make(map[string]*relation.ParentInvite),
		relations:     make(map[string]*relation.ParentStudentRelation),
		notifications: make(map[string]*notification.Notification),
	}
}
