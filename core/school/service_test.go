package school_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
)

// stubLedger maps parent IDs to visible student IDs.
type stubLedger map[string][]string

func (l stubLedger) StudentsVisibleTo(_ context.Context, parentID string) ([]string, error) {
	return l[parentID], nil
}

// recordingNotifier captures dispatched events.
type recordingNotifier struct {
	events []notification.Event
}

func (n *recordingNotifier) Dispatch(evt notification.Event) {
	n.events = append(n.events, evt)
}

func setup(t *testing.T, ledger stubLedger) (*school.Service, *recordingNotifier) {
	t.Helper()
	db := inmemdb.Open()
	notifier := &recordingNotifier{}
	return school.NewService(inmemdb.NewSchoolRepository(db), ledger, notifier), notifier
}

func student(id, name string) user.User {
	return user.User{ID: id, Name: name, Role: user.RoleStudent, IsActive: true}
}

func parent(id, name string) user.User {
	return user.User{ID: id, Name: name, Role: user.RoleParent, IsActive: true}
}

func TestService_SeedDefaultSubjects(t *testing.T) {
	ctx := context.Background()
	alice := student("s1", "Alice")
	svc, _ := setup(t, stubLedger{})

	require.NoError(t, svc.SeedDefaultSubjects(ctx, alice.ID))

	subjects, err := svc.ListSubjects(ctx, alice)
	require.NoError(t, err)
	require.Len(t, subjects, len(school.DefaultSubjects))

	got := make(map[string]string, len(subjects))
	for _, s := range subjects {
		assert.Equal(t, alice.ID, s.StudentID)
		got[s.Name] = s.Color
	}
	for _, want := range school.DefaultSubjects {
		assert.Equal(t, want.Color, got[want.Name])
	}
}

func TestService_CreateSubject(t *testing.T) {
	ctx := context.Background()
	alice := student("s1", "Alice")
	svc, _ := setup(t, stubLedger{})

	subject, err := svc.CreateSubject(ctx, alice, school.NewSubject{Name: "Chemistry", Color: "#FF0000"})
	require.NoError(t, err)
	assert.NotEmpty(t, subject.ID)
	assert.Equal(t, alice.ID, subject.StudentID)

	// parents have no subjects of their own
	_, err = svc.CreateSubject(ctx, parent("p1", "Pat"), school.NewSubject{Name: "Nope", Color: "#000000"})
	assert.Equal(t, school.ErrAccessDenied, errors.Cause(err))
}

func TestService_TaskLifecycle(t *testing.T) {
	ctx := context.Background()
	alice := student("s1", "Alice")
	bob := student("s2", "Bob")
	svc, notifier := setup(t, stubLedger{})

	task, err := svc.CreateTask(ctx, alice, school.NewTask{Title: "Read chapter 4", SubjectID: "sub1"})
	require.NoError(t, err)
	assert.Equal(t, school.PriorityMedium, task.Priority)
	assert.False(t, task.Completed)
	assert.Nil(t, task.CompletedAt)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, "New task created: Read chapter 4", notifier.events[0].Message)
	assert.Equal(t, alice.ID, notifier.events[0].Student.ID)

	// another student cannot see or touch it; absence and foreign ownership
	// are indistinguishable
	done := true
	_, err = svc.UpdateTask(ctx, bob, task.ID, school.UpdateTask{Completed: &done})
	assert.Equal(t, school.ErrNotFound, errors.Cause(err))
	assert.Equal(t, school.ErrNotFound, errors.Cause(svc.DeleteTask(ctx, bob, task.ID)))

	// completing stamps CompletedAt and notifies
	task, err = svc.UpdateTask(ctx, alice, task.ID, school.UpdateTask{Completed: &done})
	require.NoError(t, err)
	assert.True(t, task.Completed)
	require.NotNil(t, task.CompletedAt)
	require.Len(t, notifier.events, 2)
	assert.Equal(t, "Task completed: Read chapter 4", notifier.events[1].Message)

	// re-completing is a no-op for the timestamp and the notification
	completedAt := *task.CompletedAt
	task, err = svc.UpdateTask(ctx, alice, task.ID, school.UpdateTask{Completed: &done})
	require.NoError(t, err)
	assert.Equal(t, completedAt, *task.CompletedAt)
	assert.Len(t, notifier.events, 2)

	// un-completing keeps the old timestamp around but clears the flag
	notDone := false
	task, err = svc.UpdateTask(ctx, alice, task.ID, school.UpdateTask{Completed: &notDone})
	require.NoError(t, err)
	assert.False(t, task.Completed)
	assert.Len(t, notifier.events, 2)

	require.NoError(t, svc.DeleteTask(ctx, alice, task.ID))
	assert.Equal(t, school.ErrNotFound, errors.Cause(svc.DeleteTask(ctx, alice, task.ID)))
}

func TestService_ListTasks_visibility(t *testing.T) {
	ctx := context.Background()
	alice := student("s1", "Alice")
	bob := student("s2", "Bob")
	pat := parent("p1", "Pat")
	svc, _ := setup(t, stubLedger{pat.ID: {alice.ID}})

	_, err := svc.CreateTask(ctx, alice, school.NewTask{Title: "A", SubjectID: "sub1"})
	require.NoError(t, err)
	_, err = svc.CreateTask(ctx, bob, school.NewTask{Title: "B", SubjectID: "sub1"})
	require.NoError(t, err)

	tasks, err := svc.ListTasks(ctx, alice)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "A", tasks[0].Title)

	// the parent sees only their linked student's tasks
	tasks, err = svc.ListTasks(ctx, pat)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "A", tasks[0].Title)

	// an unlinked parent sees an empty list, not an error
	tasks, err = svc.ListTasks(ctx, parent("p2", "Sam"))
	require.NoError(t, err)
	assert.Empty(t, tasks)

	// parents cannot create tasks
	_, err = svc.CreateTask(ctx, pat, school.NewTask{Title: "Nope", SubjectID: "sub1"})
	assert.Equal(t, school.ErrAccessDenied, errors.Cause(err))
}

func TestService_ProjectTasks(t *testing.T) {
	ctx := context.Background()
	alice := student("s1", "Alice")
	bob := student("s2", "Bob")
	pat := parent("p1", "Pat")
	sam := parent("p2", "Sam")
	svc, notifier := setup(t, stubLedger{pat.ID: {alice.ID}})

	project, err := svc.CreateProject(ctx, alice, school.NewProject{Name: "Volcano model", SubjectID: "sub1"})
	require.NoError(t, err)

	pt, err := svc.CreateProjectTask(ctx, alice, project.ID, school.NewProjectTask{Title: "Buy clay"})
	require.NoError(t, err)
	assert.Equal(t, school.StatusTodo, pt.Status)

	// a foreign student gets a 404-style miss on the nested collection
	_, err = svc.ListProjectTasks(ctx, bob, project.ID)
	assert.Equal(t, school.ErrNotFound, errors.Cause(err))
	_, err = svc.CreateProjectTask(ctx, bob, project.ID, school.NewProjectTask{Title: "Nope"})
	assert.Equal(t, school.ErrNotFound, errors.Cause(err))

	// a linked parent can read; an unlinked parent is denied, not 404:
	// the project ID necessarily came from a prior authorized read
	tasks, err := svc.ListProjectTasks(ctx, pat, project.ID)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	_, err = svc.ListProjectTasks(ctx, sam, project.ID)
	assert.Equal(t, school.ErrAccessDenied, errors.Cause(err))

	// an unknown project is a plain miss for everyone
	_, err = svc.ListProjectTasks(ctx, sam, "nope")
	assert.Equal(t, school.ErrNotFound, errors.Cause(err))

	// only the transition into done notifies
	notifier.events = nil
	pt, err = svc.UpdateProjectTask(ctx, alice, project.ID, pt.ID, school.UpdateProjectTask{Status: school.StatusInProgress})
	require.NoError(t, err)
	assert.Empty(t, notifier.events)

	pt, err = svc.UpdateProjectTask(ctx, alice, project.ID, pt.ID, school.UpdateProjectTask{Status: school.StatusDone})
	require.NoError(t, err)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, "Project task completed: Buy clay", notifier.events[0].Message)

	// done -> done does not notify again
	_, err = svc.UpdateProjectTask(ctx, alice, project.ID, pt.ID, school.UpdateProjectTask{Status: school.StatusDone})
	require.NoError(t, err)
	assert.Len(t, notifier.events, 1)

	// task ID under the wrong project is a miss
	_, err = svc.UpdateProjectTask(ctx, alice, "nope", pt.ID, school.UpdateProjectTask{Status: school.StatusTodo})
	assert.Equal(t, school.ErrNotFound, errors.Cause(err))
}

func TestService_TaskStats(t *testing.T) {
	ctx := context.Background()
	alice := student("s1", "Alice")
	svc, _ := setup(t, stubLedger{})

	for i, title := range []string{"a", "b", "c"} {
		task, err := svc.CreateTask(ctx, alice, school.NewTask{Title: title, SubjectID: "sub1"})
		require.NoError(t, err)
		if i == 0 {
			done := true
			_, err = svc.UpdateTask(ctx, alice, task.ID, school.UpdateTask{Completed: &done})
			require.NoError(t, err)
		}
	}
	_, err := svc.CreateProject(ctx, alice, school.NewProject{Name: "P", SubjectID: "sub1"})
	require.NoError(t, err)

	stats, err := svc.GetTaskStats(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, school.TaskStats{Total: 3, Completed: 1, Pending: 2}, stats)

	projects, err := svc.CountProjects(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, projects)

	// a fresh student has all-zero stats
	stats, err = svc.GetTaskStats(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, school.TaskStats{}, stats)
}
