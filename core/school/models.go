package school

import (
	"time"

	"github.com/trezcool/shule/core"
)

// Task priorities
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ProjectTask Kanban columns
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

type (
	Subject struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Color     string    `json:"color"`
		StudentID string    `json:"student_id"`
		CreatedAt time.Time `json:"created_at"` // UTC
	}

	Task struct {
		ID          string     `json:"id"`
		Title       string     `json:"title"`
		Description string     `json:"description,omitempty"`
		SubjectID   string     `json:"subject_id"`
		StudentID   string     `json:"student_id"`
		DueDate     *time.Time `json:"due_date,omitempty"`
		Completed   bool       `json:"completed"`
		Priority    Priority   `json:"priority"`
		CreatedAt   time.Time  `json:"created_at"`              // UTC
		CompletedAt *time.Time `json:"completed_at,omitempty"` // set once, on first completion
	}

	Project struct {
		ID          string    `json:"id"`
		Name        string    `json:"name"`
		Description string    `json:"description,omitempty"`
		SubjectID   string    `json:"subject_id"`
		StudentID   string    `json:"student_id"`
		CreatedAt   time.Time `json:"created_at"` // UTC
	}

	ProjectTask struct {
		ID          string     `json:"id"`
		Title       string     `json:"title"`
		Description string     `json:"description,omitempty"`
		ProjectID   string     `json:"project_id"`
		StudentID   string     `json:"student_id"`
		Status      Status     `json:"status"`
		DueDate     *time.Time `json:"due_date,omitempty"`
		CreatedAt   time.Time  `json:"created_at"` // UTC
	}
)

// DefaultSubjects is seeded for every new student account.
var DefaultSubjects = []Subject{
	{Name: "Mathematics", Color: "#3B82F6"},
	{Name: "Science", Color: "#10B981"},
	{Name: "English", Color: "#F59E0B"},
	{Name: "History", Color: "#EF4444"},
	{Name: "Geography", Color: "#8B5CF6"},
	{Name: "Art", Color: "#EC4899"},
	{Name: "Physical Education", Color: "#06B6D4"},
	{Name: "Music", Color: "#84CC16"},
}

type NewSubject struct {
	Name  string `json:"name" validate:"required"`
	Color string `json:"color" validate:"required,hexcolor"`
}

func (ns *NewSubject) Validate() error {
	ns.Name = core.CleanString(ns.Name)
	ns.Color = core.CleanString(ns.Color)
	return core.Validate.Struct(ns)
}

type NewTask struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	SubjectID   string     `json:"subject_id" validate:"required"`
	DueDate     *time.Time `json:"due_date"`
	Priority    Priority   `json:"priority" validate:"omitempty,oneof=low medium high"`
}

func (nt *NewTask) Validate() error {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)
	if nt.Priority == "" {
		nt.Priority = PriorityMedium
	}
	return core.Validate.Struct(nt)
}

// UpdateTask defines what information may be provided to modify an existing Task.
// nil/empty fields are left untouched.
type UpdateTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	SubjectID   string     `json:"subject_id"`
	DueDate     *time.Time `json:"due_date"`
	Priority    Priority   `json:"priority" validate:"omitempty,oneof=low medium high"`
	Completed   *bool      `json:"completed"`
}

func (ut *UpdateTask) Validate() error {
	ut.Title = core.CleanString(ut.Title)
	ut.Description = core.CleanString(ut.Description)
	return core.Validate.Struct(ut)
}

type NewProject struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	SubjectID   string `json:"subject_id" validate:"required"`
}

func (np *NewProject) Validate() error {
	np.Name = core.CleanString(np.Name)
	np.Description = core.CleanString(np.Description)
	return core.Validate.Struct(np)
}

type NewProjectTask struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description"`
	Status      Status     `json:"status" validate:"omitempty,oneof=todo in_progress done"`
	DueDate     *time.Time `json:"due_date"`
}

func (npt *NewProjectTask) Validate() error {
	npt.Title = core.CleanString(npt.Title)
	npt.Description = core.CleanString(npt.Description)
	if npt.Status == "" {
		npt.Status = StatusTodo
	}
	return core.Validate.Struct(npt)
}

type UpdateProjectTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status" validate:"omitempty,oneof=todo in_progress done"`
	DueDate     *time.Time `json:"due_date"`
}

func (upt *UpdateProjectTask) Validate() error {
	upt.Title = core.CleanString(upt.Title)
	upt.Description = core.CleanString(upt.Description)
	return core.Validate.Struct(upt)
}

// TaskStats is the per-student aggregate shown on the parent dashboard.
type TaskStats struct {
	Total     int `json:"total_tasks"`
	Completed int `json:"completed_tasks"`
	Pending   int `json:"pending_tasks"`
}
