package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core/school"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func contains(ids []string, id string) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}

// Subjects

func (repo *schoolRepository) CreateSubject(_ context.Context, s school.Subject) (school.Subject, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s.ID = uuid.New().String()
	repo.db.subjects[s.ID] = &s
	return s, nil
}

func (repo *schoolRepository) FilterSubjectsByStudent(_ context.Context, studentIDs []string) ([]school.Subject, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	subjects := make([]school.Subject, 0)
	for _, s := range repo.db.subjects {
		if contains(studentIDs, s.StudentID) {
			subjects = append(subjects, *s)
		}
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].CreatedAt.Before(subjects[j].CreatedAt) })
	return subjects, nil
}

// Tasks

func (repo *schoolRepository) CreateTask(_ context.Context, t school.Task) (school.Task, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t.ID = uuid.New().String()
	repo.db.tasks[t.ID] = &t
	return t, nil
}

func (repo *schoolRepository) FilterTasksByStudent(_ context.Context, studentIDs []string) ([]school.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tasks := make([]school.Task, 0)
	for _, t := range repo.db.tasks {
		if contains(studentIDs, t.StudentID) {
			tasks = append(tasks, *t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })
	return tasks, nil
}

func (repo *schoolRepository) GetOwnedTask(_ context.Context, id, studentID string) (school.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if t, ok := repo.db.tasks[id]; ok && t.StudentID == studentID {
		return *t, nil
	}
	return school.Task{}, school.ErrNotFound
}

func (repo *schoolRepository) UpdateTask(_ context.Context, t school.Task) (school.Task, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if orig, ok := repo.db.tasks[t.ID]; !ok || orig.StudentID != t.StudentID {
		return school.Task{}, school.ErrNotFound
	}
	repo.db.tasks[t.ID] = &t
	return t, nil
}

func (repo *schoolRepository) DeleteTask(_ context.Context, id, studentID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if t, ok := repo.db.tasks[id]; ok && t.StudentID == studentID {
		delete(repo.db.tasks, id)
		return nil
	}
	return school.ErrNotFound
}

// Projects

func (repo *schoolRepository) CreateProject(_ context.Context, p school.Project) (school.Project, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	p.ID = uuid.New().String()
	repo.db.projects[p.ID] = &p
	return p, nil
}

func (repo *schoolRepository) FilterProjectsByStudent(_ context.Context, studentIDs []string) ([]school.Project, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	projects := make([]school.Project, 0)
	for _, p := range repo.db.projects {
		if contains(studentIDs, p.StudentID) {
			projects = append(projects, *p)
		}
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].CreatedAt.Before(projects[j].CreatedAt) })
	return projects, nil
}

func (repo *schoolRepository) GetProject(_ context.Context, id string) (school.Project, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.projects[id]; ok {
		return *p, nil
	}
	return school.Project{}, school.ErrNotFound
}

// Project tasks

func (repo *schoolRepository) CreateProjectTask(_ context.Context, pt school.ProjectTask) (school.ProjectTask, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	pt.ID = uuid.New().String()
	repo.db.projectTasks[pt.ID] = &pt
	return pt, nil
}

func (repo *schoolRepository) FilterProjectTasksByProject(_ context.Context, projectID string) ([]school.ProjectTask, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	tasks := make([]school.ProjectTask, 0)
	for _, pt := range repo.db.projectTasks {
		if pt.ProjectID == projectID {
			tasks = append(tasks, *pt)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].CreatedAt.Before(tasks[j].CreatedAt) })
	return tasks, nil
}

func (repo *schoolRepository) GetOwnedProjectTask(_ context.Context, id, projectID, studentID string) (school.ProjectTask, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if pt, ok := repo.db.projectTasks[id]; ok && pt.ProjectID == projectID && pt.StudentID == studentID {
		return *pt, nil
	}
	return school.ProjectTask{}, school.ErrNotFound
}

func (repo *schoolRepository) UpdateProjectTask(_ context.Context, pt school.ProjectTask) (school.ProjectTask, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if orig, ok := repo.db.projectTasks[pt.ID]; !ok || orig.StudentID != pt.StudentID {
		return school.ProjectTask{}, school.ErrNotFound
	}
	repo.db.projectTasks[pt.ID] = &pt
	return pt, nil
}

// Aggregates

func (repo *schoolRepository) GetTaskStats(_ context.Context, studentID string) (school.TaskStats, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var stats school.TaskStats
	for _, t := range repo.db.tasks {
		if t.StudentID != studentID {
			continue
		}
		stats.Total++
		if t.Completed {
			stats.Completed++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	return stats, nil
}

func (repo *schoolRepository) CountProjectsByStudent(_ context.Context, studentID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, p := range repo.db.projects {
		if p.StudentID == studentID {
			n++
		}
	}
	return n, nil
}
