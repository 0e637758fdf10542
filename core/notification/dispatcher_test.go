package notification_test

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
)

// stubLedger maps student IDs to linked parent IDs.
type stubLedger map[string][]string

func (l stubLedger) ParentsOf(_ context.Context, studentID string) ([]string, error) {
	return l[studentID], nil
}

// stubUsers resolves accounts by ID.
type stubUsers map[string]user.User

func (u stubUsers) FilterByID(_ context.Context, ids []string) ([]user.User, error) {
	users := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if usr, ok := u[id]; ok {
			users = append(users, usr)
		}
	}
	return users, nil
}

func testLogger() *logsvc.TestLogger {
	return logsvc.NewTestLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))
}

func student(id, name string) user.User {
	return user.User{ID: id, Name: name, Role: user.RoleStudent, IsActive: true}
}

func parent(id, name, email string) user.User {
	return user.User{ID: id, Name: name, Email: email, Role: user.RoleParent, IsActive: true}
}

func TestDispatcher_fanOut(t *testing.T) {
	ctx := context.Background()
	emailsvc.ClearSentMessages()

	alice := student("s1", "Alice")
	pat := parent("p1", "Pat", "pat@test.cd")
	mia := parent("p2", "Mia", "mia@test.cd")

	repo := inmemdb.NewNotificationRepository(inmemdb.Open())
	ledger := stubLedger{alice.ID: {pat.ID, mia.ID}}
	users := stubUsers{pat.ID: pat, mia.ID: mia}
	d := notification.NewDispatcherMock(repo, ledger, users, emailsvc.NewConsoleServiceMock(), testLogger())
	svc := notification.NewService(repo)

	d.Dispatch(notification.Event{Student: alice, Message: "New task created: Read chapter 4"})

	// one unread in-app notification per linked parent
	for _, p := range []user.User{pat, mia} {
		ns, err := svc.ListFor(ctx, p)
		require.NoError(t, err)
		require.Len(t, ns, 1)
		n := ns[0]
		assert.Equal(t, p.ID, n.UserID)
		assert.Equal(t, "Student Update", n.Title)
		assert.Equal(t, "Alice: New task created: Read chapter 4", n.Message)
		assert.Equal(t, notification.TypeTaskUpdate, n.Type)
		assert.False(t, n.Read)
	}

	// plus one advisory email each
	msgs := emailsvc.GetSentMessages()
	require.Len(t, msgs, 2)
	for _, msg := range msgs {
		assert.Equal(t, "School Work Update - Alice", msg.Subject)
		assert.Equal(t, "New task created: Read chapter 4", msg.Body)
	}

	// the student themselves gets nothing
	ns, err := svc.ListFor(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, ns)
}

func TestDispatcher_noLinkedParents(t *testing.T) {
	emailsvc.ClearSentMessages()

	alice := student("s1", "Alice")
	repo := inmemdb.NewNotificationRepository(inmemdb.Open())
	d := notification.NewDispatcherMock(repo, stubLedger{}, stubUsers{}, emailsvc.NewConsoleServiceMock(), testLogger())

	d.Dispatch(notification.Event{Student: alice, Message: "Task completed: x"})

	assert.Empty(t, emailsvc.GetSentMessages())
}

func TestDispatcher_asyncDrain(t *testing.T) {
	ctx := context.Background()
	alice := student("s1", "Alice")
	pat := parent("p1", "Pat", "pat@test.cd")

	repo := inmemdb.NewNotificationRepository(inmemdb.Open())
	d := notification.NewDispatcher(repo, stubLedger{alice.ID: {pat.ID}}, stubUsers{pat.ID: pat}, emailsvc.NewConsoleServiceMock(), testLogger())
	svc := notification.NewService(repo)

	for i := 0; i < 5; i++ {
		d.Dispatch(notification.Event{Student: alice, Message: "Task completed: x"})
	}
	d.Close() // drains pending events

	ns, err := svc.ListFor(ctx, pat)
	require.NoError(t, err)
	assert.Len(t, ns, 5)
}

func TestService_MarkRead(t *testing.T) {
	ctx := context.Background()
	pat := parent("p1", "Pat", "pat@test.cd")
	mia := parent("p2", "Mia", "mia@test.cd")

	repo := inmemdb.NewNotificationRepository(inmemdb.Open())
	svc := notification.NewService(repo)

	n, err := repo.CreateNotification(ctx, notification.Notification{
		UserID:  pat.ID,
		Title:   "Student Update",
		Message: "Alice: Task completed: x",
		Type:    notification.TypeTaskUpdate,
	})
	require.NoError(t, err)

	// only the recipient can flip the flag; anyone else sees a miss
	err = svc.MarkRead(ctx, mia, n.ID)
	assert.Equal(t, notification.ErrNotFound, errors.Cause(err))

	require.NoError(t, svc.MarkRead(ctx, pat, n.ID))
	ns, err := svc.ListFor(ctx, pat)
	require.NoError(t, err)
	require.Len(t, ns, 1)
	assert.True(t, ns[0].Read)

	err = svc.MarkRead(ctx, pat, "nope")
	assert.Equal(t, notification.ErrNotFound, errors.Cause(err))
}
