package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func (e *testEnv) doJSON(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestCreateUserAndConflict(t *testing.T) {
	env := newTestEnv(t, "user1")

	w := env.doJSON(t, http.MethodPost, "/users", `{"authUserId":"a1","username":"alice","bio":"hi"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	// same username again surfaces as conflict, not a generic error
	w = env.doJSON(t, http.MethodPost, "/users", `{"authUserId":"a2","username":"alice"}`)
	require.Equal(t, http.StatusConflict, w.Code)

	w = env.doJSON(t, http.MethodPost, "/users", `{"username":"missingauth"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUserNotFound(t *testing.T) {
	env := newTestEnv(t, "user1")

	w := env.do(t, http.MethodGet, "/users/missing")
	require.Equal(t, http.StatusNotFound, w.Code)

	env.seedUser(t, "user9")
	w = env.do(t, http.MethodGet, "/users/user9")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Username string `json:"username"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "user9", body.Data.Username)
}
