package school

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/user"
)

var (
	// ErrNotFound covers both "no such record" and "record owned by another
	// student": ownership misses must be indistinguishable from absence.
	ErrNotFound = errors.New("not found")

	// ErrAccessDenied is only returned where the resource is already known to
	// exist (a parent hitting a project outside their accepted relations).
	ErrAccessDenied = errors.New("access denied")
)

type (
	Repository interface {
		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		FilterSubjectsByStudent(ctx context.Context, studentIDs []string) ([]Subject, error)

		CreateTask(ctx context.Context, t Task) (Task, error)
		FilterTasksByStudent(ctx context.Context, studentIDs []string) ([]Task, error)
		// GetOwnedTask returns ErrNotFound unless the task exists AND belongs to studentID.
		GetOwnedTask(ctx context.Context, id, studentID string) (Task, error)
		// UpdateTask persists t conditionally on (t.ID, t.StudentID) matching; ErrNotFound otherwise.
		UpdateTask(ctx context.Context, t Task) (Task, error)
		DeleteTask(ctx context.Context, id, studentID string) error

		CreateProject(ctx context.Context, p Project) (Project, error)
		FilterProjectsByStudent(ctx context.Context, studentIDs []string) ([]Project, error)
		GetProject(ctx context.Context, id string) (Project, error)

		CreateProjectTask(ctx context.Context, pt ProjectTask) (ProjectTask, error)
		FilterProjectTasksByProject(ctx context.Context, projectID string) ([]ProjectTask, error)
		GetOwnedProjectTask(ctx context.Context, id, projectID, studentID string) (ProjectTask, error)
		UpdateProjectTask(ctx context.Context, pt ProjectTask) (ProjectTask, error)

		GetTaskStats(ctx context.Context, studentID string) (TaskStats, error)
		CountProjectsByStudent(ctx context.Context, studentID string) (int, error)
	}

	// Ledger answers which students an authenticated parent may see.
	Ledger interface {
		StudentsVisibleTo(ctx context.Context, parentID string) ([]string, error)
	}

	// Notifier receives fire-and-forget events about student activity.
	Notifier interface {
		Dispatch(evt notification.Event)
	}

	Service struct {
		repo     Repository
		ledger   Ledger
		notifier Notifier
	}
)

func NewService(repo Repository, ledger Ledger, notifier Notifier) *Service {
	return &Service{
		repo:     repo,
		ledger:   ledger,
		notifier: notifier,
	}
}

// visibleStudentIDs computes the record scope for list/read operations:
// a student sees themselves; a parent sees every student they hold an
// accepted relation to (possibly none).
func (svc *Service) visibleStudentIDs(ctx context.Context, principal user.User) ([]string, error) {
	if principal.IsStudent() {
		return []string{principal.ID}, nil
	}
	ids, err := svc.ledger.StudentsVisibleTo(ctx, principal.ID)
	if err != nil {
		return nil, errors.Wrap(err, "listing visible students")
	}
	return ids, nil
}

// Subjects

func (svc *Service) ListSubjects(ctx context.Context, principal user.User) ([]Subject, error) {
	ids, err := svc.visibleStudentIDs(ctx, principal)
	if err != nil {
		return nil, err
	}
	return svc.repo.FilterSubjectsByStudent(ctx, ids)
}

func (svc *Service) CreateSubject(ctx context.Context, principal user.User, ns NewSubject) (Subject, error) {
	if !principal.IsStudent() {
		return Subject{}, ErrAccessDenied
	}
	return svc.repo.CreateSubject(ctx, Subject{
		Name:      ns.Name,
		Color:     ns.Color,
		StudentID: principal.ID,
		CreatedAt: time.Now().UTC(),
	})
}

// SeedDefaultSubjects creates the default subject set for a new student.
func (svc *Service) SeedDefaultSubjects(ctx context.Context, studentID string) error {
	now := time.Now().UTC()
	for _, s := range DefaultSubjects {
		s.StudentID = studentID
		s.CreatedAt = now
		if _, err := svc.repo.CreateSubject(ctx, s); err != nil {
			return errors.Wrapf(err, "creating subject %q", s.Name)
		}
	}
	return nil
}

// Tasks

func (svc *Service) ListTasks(ctx context.Context, principal user.User) ([]Task, error) {
	ids, err := svc.visibleStudentIDs(ctx, principal)
	if err != nil {
		return nil, err
	}
	return svc.repo.FilterTasksByStudent(ctx, ids)
}

func (svc *Service) CreateTask(ctx context.Context, principal user.User, nt NewTask) (Task, error) {
	if !principal.IsStudent() {
		return Task{}, ErrAccessDenied
	}
	task, err := svc.repo.CreateTask(ctx, Task{
		Title:       nt.Title,
		Description: nt.Description,
		SubjectID:   nt.SubjectID,
		StudentID:   principal.ID,
		DueDate:     nt.DueDate,
		Priority:    nt.Priority,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return Task{}, errors.Wrap(err, "creating task")
	}
	svc.notifier.Dispatch(notification.Event{Student: principal, Message: "New task created: " + task.Title})
	return task, nil
}

func (svc *Service) UpdateTask(ctx context.Context, principal user.User, id string, ut UpdateTask) (Task, error) {
	if !principal.IsStudent() {
		return Task{}, ErrAccessDenied
	}
	task, err := svc.repo.GetOwnedTask(ctx, id, principal.ID)
	if err != nil {
		return Task{}, err
	}

	if ut.Title != "" {
		task.Title = ut.Title
	}
	if ut.Description != "" {
		task.Description = ut.Description
	}
	if ut.SubjectID != "" {
		task.SubjectID = ut.SubjectID
	}
	if ut.DueDate != nil {
		task.DueDate = ut.DueDate
	}
	if ut.Priority != "" {
		task.Priority = ut.Priority
	}

	var completedNow bool
	if ut.Completed != nil {
		// CompletedAt is stamped exactly once, on the first completion;
		// re-completing an already-completed task is a no-op for both the
		// timestamp and the notification.
		if *ut.Completed && !task.Completed {
			now := time.Now().UTC()
			task.CompletedAt = &now
			completedNow = true
		}
		task.Completed = *ut.Completed
	}

	task, err = svc.repo.UpdateTask(ctx, task)
	if err != nil {
		return Task{}, err
	}
	if completedNow {
		svc.notifier.Dispatch(notification.Event{Student: principal, Message: "Task completed: " + task.Title})
	}
	return task, nil
}

func (svc *Service) DeleteTask(ctx context.Context, principal user.User, id string) error {
	if !principal.IsStudent() {
		return ErrAccessDenied
	}
	return svc.repo.DeleteTask(ctx, id, principal.ID)
}

// Projects

func (svc *Service) ListProjects(ctx context.Context, principal user.User) ([]Project, error) {
	ids, err := svc.visibleStudentIDs(ctx, principal)
	if err != nil {
		return nil, err
	}
	return svc.repo.FilterProjectsByStudent(ctx, ids)
}

func (svc *Service) CreateProject(ctx context.Context, principal user.User, np NewProject) (Project, error) {
	if !principal.IsStudent() {
		return Project{}, ErrAccessDenied
	}
	return svc.repo.CreateProject(ctx, Project{
		Name:        np.Name,
		Description: np.Description,
		SubjectID:   np.SubjectID,
		StudentID:   principal.ID,
		CreatedAt:   time.Now().UTC(),
	})
}

// visibleProject enforces the nested-resource rule: the project must exist
// (ErrNotFound otherwise) and be visible to the principal. A student miss is
// ErrNotFound; a parent miss is ErrAccessDenied.
func (svc *Service) visibleProject(ctx context.Context, principal user.User, projectID string) (Project, error) {
	project, err := svc.repo.GetProject(ctx, projectID)
	if err != nil {
		return Project{}, err
	}
	if principal.IsStudent() {
		if project.StudentID != principal.ID {
			return Project{}, ErrNotFound
		}
		return project, nil
	}
	ids, err := svc.ledger.StudentsVisibleTo(ctx, principal.ID)
	if err != nil {
		return Project{}, errors.Wrap(err, "listing visible students")
	}
	for _, id := range ids {
		if id == project.StudentID {
			return project, nil
		}
	}
	return Project{}, ErrAccessDenied
}

func (svc *Service) ListProjectTasks(ctx context.Context, principal user.User, projectID string) ([]ProjectTask, error) {
	if _, err := svc.visibleProject(ctx, principal, projectID); err != nil {
		return nil, err
	}
	return svc.repo.FilterProjectTasksByProject(ctx, projectID)
}

func (svc *Service) CreateProjectTask(ctx context.Context, principal user.User, projectID string, npt NewProjectTask) (ProjectTask, error) {
	if !principal.IsStudent() {
		return ProjectTask{}, ErrAccessDenied
	}
	project, err := svc.repo.GetProject(ctx, projectID)
	if err != nil {
		return ProjectTask{}, err
	}
	if project.StudentID != principal.ID {
		return ProjectTask{}, ErrNotFound
	}
	return svc.repo.CreateProjectTask(ctx, ProjectTask{
		Title:       npt.Title,
		Description: npt.Description,
		ProjectID:   projectID,
		StudentID:   principal.ID,
		Status:      npt.Status,
		DueDate:     npt.DueDate,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *Service) UpdateProjectTask(ctx context.Context, principal user.User, projectID, taskID string, upt UpdateProjectTask) (ProjectTask, error) {
	if !principal.IsStudent() {
		return ProjectTask{}, ErrAccessDenied
	}
	pt, err := svc.repo.GetOwnedProjectTask(ctx, taskID, projectID, principal.ID)
	if err != nil {
		return ProjectTask{}, err
	}

	var doneNow bool
	if upt.Title != "" {
		pt.Title = upt.Title
	}
	if upt.Description != "" {
		pt.Description = upt.Description
	}
	if upt.DueDate != nil {
		pt.DueDate = upt.DueDate
	}
	if upt.Status != "" {
		// only the transition into "done" from another column notifies
		doneNow = upt.Status == StatusDone && pt.Status != StatusDone
		pt.Status = upt.Status
	}

	pt, err = svc.repo.UpdateProjectTask(ctx, pt)
	if err != nil {
		return ProjectTask{}, err
	}
	if doneNow {
		svc.notifier.Dispatch(notification.Event{Student: principal, Message: "Project task completed: " + pt.Title})
	}
	return pt, nil
}

// Aggregates (parent dashboard)

func (svc *Service) GetTaskStats(ctx context.Context, studentID string) (TaskStats, error) {
	return svc.repo.GetTaskStats(ctx, studentID)
}

func (svc *Service) CountProjects(ctx context.Context, studentID string) (int, error) {
	return svc.repo.CountProjectsByStudent(ctx, studentID)
}
