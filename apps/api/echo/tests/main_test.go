package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	. "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/notification"
	"github.com/trezcool/shule/core/relation"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
)

var (
	db  *inmemdb.DB
	app Server

	usrRepo   user.Repository
	usrSvc    *user.Service
	relSvc    *relation.Service
	schoolSvc *school.Service
	notifSvc  *notification.Service

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

// userGetter defers to the user service once it is wired.
type userGetter struct{}

func (userGetter) FilterByID(ctx context.Context, ids []string) ([]user.User, error) {
	return usrSvc.FilterByID(ctx, ids)
}

func (userGetter) GetByEmail(ctx context.Context, email string) (user.User, error) {
	return usrSvc.GetByEmail(ctx, email)
}

func TestMain(m *testing.M) {
	core.Conf.Debug = false
	core.Conf.TestMode = true

	logger := logsvc.NewTestLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))
	mailSvc := emailsvc.NewConsoleServiceMock()

	db = inmemdb.Open()
	usrRepo = inmemdb.NewUserRepository(db)

	relSvc = relation.NewService(inmemdb.NewRelationRepository(db), userGetter{}, mailSvc)
	notifRepo := inmemdb.NewNotificationRepository(db)
	notifSvc = notification.NewService(notifRepo)
	dispatcher := notification.NewDispatcherMock(notifRepo, relSvc, userGetter{}, mailSvc, logger)
	schoolSvc = school.NewService(inmemdb.NewSchoolRepository(db), relSvc, dispatcher)
	usrSvc = user.NewService(usrRepo, schoolSvc, mailSvc, logger)

	app = NewServer(&Options{
		Address:         ":0",
		DisableReqLogs:  true,
		UserSvc:         usrSvc,
		SchoolSvc:       schoolSvc,
		RelationSvc:     relSvc,
		NotificationSvc: notifSvc,
		Logger:          logger,
	})

	os.Exit(m.Run())
}

func resetDB(t *testing.T) {
	t.Helper()
	db.Reset()
	emailsvc.ClearSentMessages()
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func createUser(t *testing.T, name, email, pwd string, role user.Role) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser(): %v", err)
		}
	}
	usr, err := usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser(): %v", err)
	}
	return usr
}

func createStudent(t *testing.T, name, email string) user.User {
	return createUser(t, name, email, "Password123", user.RoleStudent)
}

func createParent(t *testing.T, name, email string) user.User {
	return createUser(t, name, email, "Password123", user.RoleParent)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decodeBody(): %v: %s", err, rec.Body.String())
	}
}

func checkCode(t *testing.T, wantCode int, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != wantCode {
		t.Errorf("code = %v; wantCode %v; body = %s", rec.Code, wantCode, rec.Body.String())
	}
}
