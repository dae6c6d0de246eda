package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/labpractice/internal/model"
)

func TestState_BeginLogin_OverwritesPending(t *testing.T) {
	var s State
	s.BeginLogin(PendingLogin{Verifier: "v1", State: "s1"})
	s.BeginLogin(PendingLogin{Verifier: "v2", State: "s2"})

	require.NotNil(t, s.Pending)
	assert.Equal(t, "v2", s.Pending.Verifier)
	assert.Equal(t, "s2", s.Pending.State)
	assert.False(t, s.Authenticated())
}

func TestState_BeginLogin_KeepsExistingUser(t *testing.T) {
	s := State{User: &model.User{Subject: "abc123", Role: model.RoleStudent}}
	s.BeginLogin(PendingLogin{Verifier: "v", State: "s"})

	assert.True(t, s.Authenticated())
	assert.NotNil(t, s.Pending)
}

func TestState_CompleteLogin_StoresUserAndClearsPending(t *testing.T) {
	var s State
	s.BeginLogin(PendingLogin{Verifier: "v", State: "s"})
	s.CompleteLogin(model.User{Subject: "abc123", Email: "estudiante@test.com", Role: model.RoleStudent})

	assert.Nil(t, s.Pending)
	require.True(t, s.Authenticated())
	assert.Equal(t, "abc123", s.User.Subject)
	assert.Equal(t, model.RoleStudent, s.User.Role)
}

func TestState_Authenticated_RequiresSubject(t *testing.T) {
	s := State{User: &model.User{}}
	assert.False(t, s.Authenticated())

	var nilState *State
	assert.False(t, nilState.Authenticated())
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()
	s := &Session{ExpiresAt: now}
	assert.True(t, s.Expired(now))
	assert.False(t, s.Expired(now.Add(-time.Second)))
}
