package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/workout_journal/internal/handlers"
	"github.com/Skotchmaster/workout_journal/internal/models"
	"github.com/Skotchmaster/workout_journal/internal/store"
	httpserver "github.com/Skotchmaster/workout_journal/internal/transport/http"
)

var testSecret = []byte("test-secret")

type testEnv struct {
	T  *testing.T
	E  *echo.Echo
	DB *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Note{}, &models.Tag{}, &models.NoteTag{}))

	e := echo.New()
	deps := httpserver.Deps{
		AuthHandler:   &handlers.AuthHandler{Store: store.NewGormStore(db), JWTSecret: testSecret},
		NoteHandler:   &handlers.NoteHandler{DB: db},
		TagHandler:    &handlers.TagHandler{DB: db},
		SearchHandler: &handlers.SearchHandler{},
		JWTSecret:     testSecret,
	}
	httpserver.Register(e, &deps)

	return &testEnv{T: t, E: e, DB: db}
}

func (env *testEnv) doJSON(method, path string, body interface{}, token string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for _, ck := range cookies {
		req.AddCookie(ck)
	}

	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

// signup registers a fresh user and returns the access token plus the
// refresh cookie the server set.
func (env *testEnv) signup(email, password, username string) (string, *http.Cookie) {
	payload := map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}
	rec := env.doJSON(http.MethodPost, "/api/signup", payload, "")
	require.Equal(env.T, http.StatusCreated, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(env.T, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(env.T, resp.Token)

	var refresh *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == handlers.RefreshCookieName {
			refresh = ck
		}
	}
	require.NotNil(env.T, refresh)

	return resp.Token, refresh
}
