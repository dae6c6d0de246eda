package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/labpractice/internal/model"
	"github.com/hitoshi/labpractice/internal/session"
)

const testSessionSecret = "test-session-secret"

// newTestSessions はメモリストアを使うsession.Managerを生成する。
func newTestSessions(t *testing.T) (*session.Manager, *session.MemoryStore) {
	t.Helper()
	codec, err := session.NewCodec(testSessionSecret)
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}
	store := session.NewMemoryStore()
	return session.NewManager(store, codec, session.Config{MaxAge: time.Hour}), store
}

// withSessionUser はログイン済みセッションをリクエストコンテキストに注入する。
func withSessionUser(r *http.Request, user model.User) *http.Request {
	s := &session.Session{ID: "test-session", ExpiresAt: time.Now().Add(time.Hour)}
	s.State.CompleteLogin(user)
	return r.WithContext(session.ContextWithSession(r.Context(), s))
}

var (
	testStudent    = model.User{Subject: "abc123", Email: "estudiante@test.com", Name: "Ana", Role: model.RoleStudent}
	testInstructor = model.User{Subject: "def456", Email: "docente@test.com", Name: "Luis", Role: model.RoleInstructor}
)

// decodeErrorCode はエラーレスポンスのcodeを返す。
func decodeErrorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body.Code
}

// sessionCookie はレスポンスに設定されたセッションCookieを返す。
func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}
