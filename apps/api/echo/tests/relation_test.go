package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/relation"
	"github.com/trezcool/shule/core/school"
)

func Test_relationAPI_inviteFlow(t *testing.T) {
	resetDB(t)
	alice := createStudent(t, "Alice", "alice@test.cd")
	pat := createParent(t, "Pat", "pat@test.cd")
	sam := createParent(t, "Sam", "sam@test.cd")
	aliceToken := getToken(t, alice)
	patToken := getToken(t, pat)

	// parents cannot invite
	body := marchallObj(t, relation.NewInvite{ParentEmail: "x@test.cd"})
	req, rec := newAuthRequest(http.MethodPost, "/v1/parents/invite", patToken, body)
	app.ServeHTTP(rec, req)
	checkCode(t, http.StatusForbidden, rec)

	body = marchallObj(t, relation.NewInvite{ParentEmail: pat.Email})
	req, rec = newAuthRequest(http.MethodPost, "/v1/parents/invite", aliceToken, body)
	app.ServeHTTP(rec, req)
	checkCode(t, http.StatusCreated, rec)

	var inv relation.ParentInvite
	decodeBody(t, rec, &inv)
	require.Len(t, inv.InviteCode, 8)

	// students cannot accept
	acceptBody := marchallObj(t, relation.AcceptInvite{InviteCode: inv.InviteCode})
	req, rec = newAuthRequest(http.MethodPost, "/v1/parents/accept-invite", aliceToken, acceptBody)
	app.ServeHTTP(rec, req)
	checkCode(t, http.StatusForbidden, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/parents/accept-invite", patToken, acceptBody)
	app.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)

	var rel relation.ParentStudentRelation
	decodeBody(t, rec, &rel)
	assert.Equal(t, pat.ID, rel.ParentID)
	assert.Equal(t, alice.ID, rel.StudentID)

	// a code is single-use, even for a different parent
	req, rec = newAuthRequest(http.MethodPost, "/v1/parents/accept-invite", getToken(t, sam), acceptBody)
	app.ServeHTTP(rec, req)
	checkCode(t, http.StatusNotFound, rec)

	// re-inviting an already connected parent is a conflict
	body = marchallObj(t, relation.NewInvite{ParentEmail: pat.Email})
	req, rec = newAuthRequest(http.MethodPost, "/v1/parents/invite", aliceToken, body)
	app.ServeHTTP(rec, req)
	checkCode(t, http.StatusConflict, rec)
}

func Test_relationAPI_studentList(t *testing.T) {
	resetDB(t)
	alice := createStudent(t, "Alice", "alice@test.cd")
	pat := createParent(t, "Pat", "pat@test.cd")
	aliceToken := getToken(t, alice)
	patToken := getToken(t, pat)

	// an unlinked parent gets an empty dashboard
	req, rec := newAuthRequest(http.MethodGet, "/v1/parents/students", patToken)
	app.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)
	var overviews []echoapi.StudentOverview
	decodeBody(t, rec, &overviews)
	assert.Empty(t, overviews)

	// students never get the parent dashboard
	req, rec = newAuthRequest(http.MethodGet, "/v1/parents/students", aliceToken)
	app.ServeHTTP(rec, req)
	checkCode(t, http.StatusForbidden, rec)

	linkParent(t, aliceToken, patToken, pat.Email)

	// give Alice some records
	body := marchallObj(t, school.NewTask{Title: "A", SubjectID: "sub1"})
	req, rec = newAuthRequest(http.MethodPost, "/v1/tasks", aliceToken, body)
	app.ServeHTTP(rec, req)
	checkCode(t, http.StatusCreated, rec)
	var task school.Task
	decodeBody(t, rec, &task)

	done := true
	body = marchallObj(t, school.UpdateTask{Completed: &done})
	req, rec = newAuthRequest(http.MethodPut, "/v1/tasks/"+task.ID, aliceToken, body)
	app.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)

	body = marchallObj(t, school.NewTask{Title: "B", SubjectID: "sub1"})
	req, rec = newAuthRequest(http.MethodPost, "/v1/tasks", aliceToken, body)
	app.ServeHTTP(rec, req)
	checkCode(t, http.StatusCreated, rec)

	body = marchallObj(t, school.NewProject{Name: "P", SubjectID: "sub1"})
	req, rec = newAuthRequest(http.MethodPost, "/v1/projects", aliceToken, body)
	app.ServeHTTP(rec, req)
	checkCode(t, http.StatusCreated, rec)

	req, rec = newAuthRequest(http.MethodGet, "/v1/parents/students", patToken)
	app.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)
	decodeBody(t, rec, &overviews)
	require.Len(t, overviews, 1)
	assert.Equal(t, alice.ID, overviews[0].ID)
	assert.Equal(t, school.TaskStats{Total: 2, Completed: 1, Pending: 1}, overviews[0].Stats)
	assert.Equal(t, 1, overviews[0].Projects)
}

func Test_notificationAPI_flow(t *testing.T) {
	resetDB(t)
	alice := createStudent(t, "Alice", "alice@test.cd")
	pat := createParent(t, "Pat", "pat@test.cd")
	mia := createParent(t, "Mia", "mia@test.cd")
	aliceToken := getToken(t, alice)
	patToken := getToken(t, pat)
	miaToken := getToken(t, mia)

	linkParent(t, aliceToken, patToken, pat.Email)

	// student activity fans out to the linked parent
	body := marchallObj(t, school.NewTask{Title: "Read chapter 4", SubjectID: "sub1"})
	req, rec := newAuthRequest(http.MethodPost, "/v1/tasks", aliceToken, body)
	app.ServeHTTP(rec, req)
	checkCode(t, http.StatusCreated, rec)

	req, rec = newAuthRequest(http.MethodGet, "/v1/notifications", patToken)
	app.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)
	var ns []notification.Notification
	decodeBody(t, rec, &ns)
	require.Len(t, ns, 1)
	assert.Equal(t, "Student Update", ns[0].Title)
	assert.Equal(t, "Alice: New task created: Read chapter 4", ns[0].Message)
	assert.Equal(t, notification.TypeTaskUpdate, ns[0].Type)
	assert.False(t, ns[0].Read)

	// unlinked parent hears nothing
	req, rec = newAuthRequest(http.MethodGet, "/v1/notifications", miaToken)
	app.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)
	var empty []notification.Notification
	decodeBody(t, rec, &empty)
	assert.Empty(t, empty)

	// only the recipient can mark it read
	req, rec = newAuthRequest(http.MethodPut, "/v1/notifications/"+ns[0].ID+"/read", miaToken)
	app.ServeHTTP(rec, req)
	checkCode(t, http.StatusNotFound, rec)

	req, rec = newAuthRequest(http.MethodPut, "/v1/notifications/"+ns[0].ID+"/read", patToken)
	app.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)

	req, rec = newAuthRequest(http.MethodGet, "/v1/notifications", patToken)
	app.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)
	decodeBody(t, rec, &ns)
	require.Len(t, ns, 1)
	assert.True(t, ns[0].Read)
}

// linkParent runs the invite/accept flow so the parent can see the student.
func linkParent(t *testing.T, studentToken, parentToken, parentEmail string) {
	t.Helper()

	body := marchallObj(t, relation.NewInvite{ParentEmail: parentEmail})
	req, rec := newAuthRequest(http.MethodPost, "/v1/parents/invite", studentToken, body)
	app.ServeHTTP(rec, req)
	checkCode(t, http.StatusCreated, rec)
	var inv relation.ParentInvite
	decodeBody(t, rec, &inv)

	body = marchallObj(t, relation.AcceptInvite{InviteCode: inv.InviteCode})
	req, rec = newAuthRequest(http.MethodPost, "/v1/parents/accept-invite", parentToken, body)
	app.ServeHTTP(rec, req)
	checkCode(t, http.StatusOK, rec)
}
