package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/school"
)

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

type (
	subjectRow struct {
		ID        string    `db:"id"`
		Name      string    `db:"name"`
		Color     string    `db:"color"`
		StudentID string    `db:"student_id"`
		CreatedAt time.Time `db:"created_at"`
	}

	taskRow struct {
		ID          string       `db:"id"`
		Title       string       `db:"title"`
		Description string       `db:"description"`
		SubjectID   string       `db:"subject_id"`
		StudentID   string       `db:"student_id"`
		DueDate     sql.NullTime `db:"due_date"`
		Completed   bool         `db:"completed"`
		Priority    string       `db:"priority"`
		CreatedAt   time.Time    `db:"created_at"`
		CompletedAt sql.NullTime `db:"completed_at"`
	}

	projectRow struct {
		ID          string    `db:"id"`
		Name        string    `db:"name"`
		Description string    `db:"description"`
		SubjectID   string    `db:"subject_id"`
		StudentID   string    `db:"student_id"`
		CreatedAt   time.Time `db:"created_at"`
	}

	projectTaskRow struct {
		ID          string       `db:"id"`
		Title       string       `db:"title"`
		Description string       `db:"description"`
		ProjectID   string       `db:"project_id"`
		StudentID   string       `db:"student_id"`
		Status      string       `db:"status"`
		DueDate     sql.NullTime `db:"due_date"`
		CreatedAt   time.Time    `db:"created_at"`
	}
)

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func (r subjectRow) unpack() school.Subject {
	return school.Subject{ID: r.ID, Name: r.Name, Color: r.Color, StudentID: r.StudentID, CreatedAt: r.CreatedAt}
}

func (r taskRow) unpack() school.Task {
	return school.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		SubjectID:   r.SubjectID,
		StudentID:   r.StudentID,
		DueDate:     timePtr(r.DueDate),
		Completed:   r.Completed,
		Priority:    school.Priority(r.Priority),
		CreatedAt:   r.CreatedAt,
		CompletedAt: timePtr(r.CompletedAt),
	}
}

func (r projectRow) unpack() school.Project {
	return school.Project{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		SubjectID:   r.SubjectID,
		StudentID:   r.StudentID,
		CreatedAt:   r.CreatedAt,
	}
}

func (r projectTaskRow) unpack() school.ProjectTask {
	return school.ProjectTask{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		ProjectID:   r.ProjectID,
		StudentID:   r.StudentID,
		Status:      school.Status(r.Status),
		DueDate:     timePtr(r.DueDate),
		CreatedAt:   r.CreatedAt,
	}
}

// trapNoRowsErr maps psql "no rows" err to school.ErrNotFound
func (repo schoolRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return school.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// Subjects

func (repo schoolRepository) CreateSubject(ctx context.Context, s school.Subject) (school.Subject, error) {
	s.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO subject (id, name, color, student_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.Name, s.Color, s.StudentID, s.CreatedAt,
	)
	if err != nil {
		return school.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return s, nil
}

func (repo schoolRepository) FilterSubjectsByStudent(ctx context.Context, studentIDs []string) ([]school.Subject, error) {
	subjects := make([]school.Subject, 0)
	if len(studentIDs) == 0 {
		return subjects, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM subject WHERE student_id IN (?) ORDER BY created_at`, studentIDs)
	if err != nil {
		return nil, errors.Wrap(err, "expanding student ID list")
	}
	var rows []subjectRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "filtering subjects")
	}
	for _, row := range rows {
		subjects = append(subjects, row.unpack())
	}
	return subjects, nil
}

// Tasks

func (repo schoolRepository) CreateTask(ctx context.Context, t school.Task) (school.Task, error) {
	t.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO task (id, title, description, subject_id, student_id, due_date, completed, priority, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.Title, t.Description, t.SubjectID, t.StudentID, nullTime(t.DueDate), t.Completed, string(t.Priority), t.CreatedAt,
	)
	if err != nil {
		return school.Task{}, errors.Wrap(err, "inserting task")
	}
	return t, nil
}

func (repo schoolRepository) FilterTasksByStudent(ctx context.Context, studentIDs []string) ([]school.Task, error) {
	tasks := make([]school.Task, 0)
	if len(studentIDs) == 0 {
		return tasks, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM task WHERE student_id IN (?) ORDER BY created_at`, studentIDs)
	if err != nil {
		return nil, errors.Wrap(err, "expanding student ID list")
	}
	var rows []taskRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "filtering tasks")
	}
	for _, row := range rows {
		tasks = append(tasks, row.unpack())
	}
	return tasks, nil
}

func (repo schoolRepository) GetOwnedTask(ctx context.Context, id, studentID string) (school.Task, error) {
	var row taskRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM task WHERE id = $1 AND student_id = $2`, id, studentID)
	if err != nil {
		return school.Task{}, repo.trapNoRowsErr(err, "finding task")
	}
	return row.unpack(), nil
}

func (repo schoolRepository) UpdateTask(ctx context.Context, t school.Task) (school.Task, error) {
	// ownership is part of the match: a concurrent delete or a foreign task
	// both surface as not-found
	res, err := repo.db.ExecContext(ctx,
		`UPDATE task SET title = $3, description = $4, subject_id = $5, due_date = $6, completed = $7, priority = $8, completed_at = $9
		 WHERE id = $1 AND student_id = $2`,
		t.ID, t.StudentID, t.Title, t.Description, t.SubjectID, nullTime(t.DueDate), t.Completed, string(t.Priority), nullTime(t.CompletedAt),
	)
	if err != nil {
		return school.Task{}, errors.Wrap(err, "updating task")
	}
	if n, err := res.RowsAffected(); err != nil {
		return school.Task{}, errors.Wrap(err, "updating task")
	} else if n == 0 {
		return school.Task{}, school.ErrNotFound
	}
	return t, nil
}

func (repo schoolRepository) DeleteTask(ctx context.Context, id, studentID string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM task WHERE id = $1 AND student_id = $2`, id, studentID)
	if err != nil {
		return errors.Wrap(err, "deleting task")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "deleting task")
	} else if n == 0 {
		return school.ErrNotFound
	}
	return nil
}

// Projects

func (repo schoolRepository) CreateProject(ctx context.Context, p school.Project) (school.Project, error) {
	p.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO project (id, name, description, subject_id, student_id, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Name, p.Description, p.SubjectID, p.StudentID, p.CreatedAt,
	)
	if err != nil {
		return school.Project{}, errors.Wrap(err, "inserting project")
	}
	return p, nil
}

func (repo schoolRepository) FilterProjectsByStudent(ctx context.Context, studentIDs []string) ([]school.Project, error) {
	projects := make([]school.Project, 0)
	if len(studentIDs) == 0 {
		return projects, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM project WHERE student_id IN (?) ORDER BY created_at`, studentIDs)
	if err != nil {
		return nil, errors.Wrap(err, "expanding student ID list")
	}
	var rows []projectRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "filtering projects")
	}
	for _, row := range rows {
		projects = append(projects, row.unpack())
	}
	return projects, nil
}

func (repo schoolRepository) GetProject(ctx context.Context, id string) (school.Project, error) {
	var row projectRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM project WHERE id = $1`, id); err != nil {
		return school.Project{}, repo.trapNoRowsErr(err, "finding project")
	}
	return row.unpack(), nil
}

// Project tasks

func (repo schoolRepository) CreateProjectTask(ctx context.Context, pt school.ProjectTask) (school.ProjectTask, error) {
	pt.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO project_task (id, title, description, project_id, student_id, status, due_date, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		pt.ID, pt.Title, pt.Description, pt.ProjectID, pt.StudentID, string(pt.Status), nullTime(pt.DueDate), pt.CreatedAt,
	)
	if err != nil {
		return school.ProjectTask{}, errors.Wrap(err, "inserting project task")
	}
	return pt, nil
}

func (repo schoolRepository) FilterProjectTasksByProject(ctx context.Context, projectID string) ([]school.ProjectTask, error) {
	tasks := make([]school.ProjectTask, 0)
	var rows []projectTaskRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM project_task WHERE project_id = $1 ORDER BY created_at`, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "filtering project tasks")
	}
	for _, row := range rows {
		tasks = append(tasks, row.unpack())
	}
	return tasks, nil
}

func (repo schoolRepository) GetOwnedProjectTask(ctx context.Context, id, projectID, studentID string) (school.ProjectTask, error) {
	var row projectTaskRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT * FROM project_task WHERE id = $1 AND project_id = $2 AND student_id = $3`, id, projectID, studentID)
	if err != nil {
		return school.ProjectTask{}, repo.trapNoRowsErr(err, "finding project task")
	}
	return row.unpack(), nil
}

func (repo schoolRepository) UpdateProjectTask(ctx context.Context, pt school.ProjectTask) (school.ProjectTask, error) {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE project_task SET title = $3, description = $4, status = $5, due_date = $6
		 WHERE id = $1 AND student_id = $2`,
		pt.ID, pt.StudentID, pt.Title, pt.Description, string(pt.Status), nullTime(pt.DueDate),
	)
	if err != nil {
		return school.ProjectTask{}, errors.Wrap(err, "updating project task")
	}
	if n, err := res.RowsAffected(); err != nil {
		return school.ProjectTask{}, errors.Wrap(err, "updating project task")
	} else if n == 0 {
		return school.ProjectTask{}, school.ErrNotFound
	}
	return pt, nil
}

// Aggregates

func (repo schoolRepository) GetTaskStats(ctx context.Context, studentID string) (school.TaskStats, error) {
	var stats school.TaskStats
	err := repo.db.GetContext(ctx, &stats.Total, `SELECT COUNT(*) FROM task WHERE student_id = $1`, studentID)
	if err != nil {
		return school.TaskStats{}, errors.Wrap(err, "counting tasks")
	}
	err = repo.db.GetContext(ctx, &stats.Completed, `SELECT COUNT(*) FROM task WHERE student_id = $1 AND completed`, studentID)
	if err != nil {
		return school.TaskStats{}, errors.Wrap(err, "counting completed tasks")
	}
	stats.Pending = stats.Total - stats.Completed
	return stats, nil
}

func (repo schoolRepository) CountProjectsByStudent(ctx context.Context, studentID string) (int, error) {
	var n int
	if err := repo.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM project WHERE student_id = $1`, studentID); err != nil {
		return 0, errors.Wrap(err, "counting projects")
	}
	return n, nil
}
