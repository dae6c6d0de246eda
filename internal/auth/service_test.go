package auth

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/labpractice/internal/model"
	"github.com/hitoshi/labpractice/internal/session"
)

// --- モック定義 ---

type fakeProvider struct {
	exchangeFn func(ctx context.Context, code, verifier string) (*ClaimSet, error)
}

func (f *fakeProvider) AuthCodeURL(state, challenge string) string {
	q := url.Values{
		"state":                 {state},
		"code_challenge":        {challenge},
		"code_challenge_method": {ChallengeMethodS256},
	}
	return "https://idp.example/authorize?" + q.Encode()
}

func (f *fakeProvider) Exchange(ctx context.Context, code, verifier string) (*ClaimSet, error) {
	if f.exchangeFn != nil {
		return f.exchangeFn(ctx, code, verifier)
	}
	return &ClaimSet{Subject: "abc123", Email: "estudiante@test.com", Name: "Ana"}, nil
}

type fakeUserRepo struct {
	users        map[string]model.User
	upsertErr    error
	findErr      error
	dropOnUpsert bool
	upsertCalls  int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]model.User)}
}

func (f *fakeUserRepo) Upsert(ctx context.Context, user *model.User) error {
	f.upsertCalls++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if !f.dropOnUpsert {
		f.users[user.Subject] = *user
	}
	return nil
}

func (f *fakeUserRepo) FindBySubject(ctx context.Context, subject string) (*model.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	u, ok := f.users[subject]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func newReadyService(p IdentityProvider, repo *fakeUserRepo) *Service {
	g := NewProviderGate(nil)
	g.Set(p)
	return NewService(g, repo)
}

func beginLogin(t *testing.T, svc *Service, st *session.State) url.Values {
	t.Helper()
	redirect, err := svc.BeginLogin(st)
	require.NoError(t, err)
	u, err := url.Parse(redirect)
	require.NoError(t, err)
	return u.Query()
}

// --- テスト ---

func TestService_BeginLogin_NotReady(t *testing.T) {
	svc := NewService(NewProviderGate(nil), newFakeUserRepo())
	st := &session.State{}

	_, err := svc.BeginLogin(st)

	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Nil(t, st.Pending)
}

func TestService_BeginLogin_StoresVerifierBoundToState(t *testing.T) {
	svc := newReadyService(&fakeProvider{}, newFakeUserRepo())
	st := &session.State{}

	q := beginLogin(t, svc, st)

	require.NotNil(t, st.Pending)
	assert.Equal(t, q.Get("state"), st.Pending.State)
	assert.Equal(t, ChallengeFor(st.Pending.Verifier), q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
}

func TestService_BeginLogin_FreshVerifierEachTime(t *testing.T) {
	svc := newReadyService(&fakeProvider{}, newFakeUserRepo())
	st := &session.State{}

	beginLogin(t, svc, st)
	first := *st.Pending
	beginLogin(t, svc, st)

	assert.NotEqual(t, first.Verifier, st.Pending.Verifier)
	assert.NotEqual(t, first.State, st.Pending.State)
}

func TestService_CompleteLogin_Success(t *testing.T) {
	var gotVerifier, gotCode string
	provider := &fakeProvider{exchangeFn: func(ctx context.Context, code, verifier string) (*ClaimSet, error) {
		gotCode, gotVerifier = code, verifier
		return &ClaimSet{Subject: "abc123", Email: "estudiante@test.com", Name: "Ana"}, nil
	}}
	repo := newFakeUserRepo()
	svc := newReadyService(provider, repo)
	st := &session.State{}
	q := beginLogin(t, svc, st)
	verifier := st.Pending.Verifier

	user, err := svc.CompleteLogin(context.Background(), st, CallbackParams{Code: "the-code", State: q.Get("state")})

	require.NoError(t, err)
	assert.Equal(t, "the-code", gotCode)
	assert.Equal(t, verifier, gotVerifier)
	assert.Equal(t, model.User{Subject: "abc123", Email: "estudiante@test.com", Name: "Ana", Role: model.RoleStudent}, *user)
	require.True(t, st.Authenticated())
	assert.Equal(t, model.RoleStudent, st.User.Role)
	assert.Nil(t, st.Pending)
}

func TestService_CompleteLogin_InstructorRole(t *testing.T) {
	provider := &fakeProvider{exchangeFn: func(ctx context.Context, code, verifier string) (*ClaimSet, error) {
		return &ClaimSet{Subject: "doc-1", Email: "docente@universidad.edu", Name: "Luis"}, nil
	}}
	svc := newReadyService(provider, newFakeUserRepo())
	st := &session.State{}
	q := beginLogin(t, svc, st)

	user, err := svc.CompleteLogin(context.Background(), st, CallbackParams{Code: "c", State: q.Get("state")})

	require.NoError(t, err)
	assert.Equal(t, model.RoleInstructor, user.Role)
}

func TestService_CompleteLogin_NotReady(t *testing.T) {
	svc := NewService(NewProviderGate(nil), newFakeUserRepo())
	st := &session.State{Pending: &session.PendingLogin{Verifier: "v", State: "s"}}

	_, err := svc.CompleteLogin(context.Background(), st, CallbackParams{Code: "c", State: "s"})

	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.NotNil(t, st.Pending)
}

func TestService_CompleteLogin_WithoutBeginLogin(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newReadyService(&fakeProvider{}, repo)
	st := &session.State{}

	_, err := svc.CompleteLogin(context.Background(), st, CallbackParams{Code: "c", State: "s"})

	assert.ErrorIs(t, err, ErrMissingVerifier)
	assert.False(t, st.Authenticated())
	assert.Equal(t, 0, repo.upsertCalls)
}

func TestService_CompleteLogin_StateMismatch(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newReadyService(&fakeProvider{}, repo)
	st := &session.State{}
	beginLogin(t, svc, st)
	pending := *st.Pending

	_, err := svc.CompleteLogin(context.Background(), st, CallbackParams{Code: "c", State: "someone-else"})

	assert.ErrorIs(t, err, ErrStateMismatch)
	assert.Equal(t, pending, *st.Pending)
	assert.False(t, st.Authenticated())
	assert.Equal(t, 0, repo.upsertCalls)
}

func TestService_CompleteLogin_ProviderError(t *testing.T) {
	svc := newReadyService(&fakeProvider{}, newFakeUserRepo())
	st := &session.State{}
	q := beginLogin(t, svc, st)

	_, err := svc.CompleteLogin(context.Background(), st, CallbackParams{
		State:            q.Get("state"),
		Error:            "access_denied",
		ErrorDescription: "user cancelled",
	})

	var exchangeErr *TokenExchangeError
	assert.ErrorAs(t, err, &exchangeErr)
	assert.Equal(t, "exchange", Stage(err))
}

func TestService_CompleteLogin_ExchangeFails_NoMutation(t *testing.T) {
	provider := &fakeProvider{exchangeFn: func(ctx context.Context, code, verifier string) (*ClaimSet, error) {
		return nil, errors.New("invalid_grant")
	}}
	repo := newFakeUserRepo()
	svc := newReadyService(provider, repo)
	st := &session.State{}
	q := beginLogin(t, svc, st)
	pending := *st.Pending

	_, err := svc.CompleteLogin(context.Background(), st, CallbackParams{Code: "c", State: q.Get("state")})

	var exchangeErr *TokenExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	assert.Equal(t, pending, *st.Pending)
	assert.False(t, st.Authenticated())
	assert.Equal(t, 0, repo.upsertCalls)
}

func TestService_CompleteLogin_UpsertFails(t *testing.T) {
	repo := newFakeUserRepo()
	repo.upsertErr = errors.New("db down")
	svc := newReadyService(&fakeProvider{}, repo)
	st := &session.State{}
	q := beginLogin(t, svc, st)

	_, err := svc.CompleteLogin(context.Background(), st, CallbackParams{Code: "c", State: q.Get("state")})

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "upsert", storageErr.Stage)
	assert.Equal(t, "upsert", Stage(err))
	assert.False(t, st.Authenticated())
	assert.NotNil(t, st.Pending)
}

func TestService_CompleteLogin_ReadBackFails(t *testing.T) {
	repo := newFakeUserRepo()
	repo.findErr = errors.New("db down")
	svc := newReadyService(&fakeProvider{}, repo)
	st := &session.State{}
	q := beginLogin(t, svc, st)

	_, err := svc.CompleteLogin(context.Background(), st, CallbackParams{Code: "c", State: q.Get("state")})

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "read_back", storageErr.Stage)
	assert.False(t, st.Authenticated())
}

func TestService_CompleteLogin_ReadBackMissingRow(t *testing.T) {
	repo := newFakeUserRepo()
	repo.dropOnUpsert = true
	svc := newReadyService(&fakeProvider{}, repo)
	st := &session.State{}
	q := beginLogin(t, svc, st)

	_, err := svc.CompleteLogin(context.Background(), st, CallbackParams{Code: "c", State: q.Get("state")})

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "read_back", storageErr.Stage)
	assert.False(t, st.Authenticated())
}

func TestService_CompleteLogin_UsesStoredRow(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newReadyService(&fakeProvider{}, repo)
	st := &session.State{}
	q := beginLogin(t, svc, st)

	// 同じsubjectで2回ログインしても行は1つで、2回目の入力値になる
	_, err := svc.CompleteLogin(context.Background(), st, CallbackParams{Code: "c", State: q.Get("state")})
	require.NoError(t, err)

	svc.gate.Set(&fakeProvider{exchangeFn: func(ctx context.Context, code, verifier string) (*ClaimSet, error) {
		return &ClaimSet{Subject: "abc123", Email: "docente@test.com", Name: "Ana P."}, nil
	}})
	q = beginLogin(t, svc, st)
	user, err := svc.CompleteLogin(context.Background(), st, CallbackParams{Code: "c2", State: q.Get("state")})
	require.NoError(t, err)

	assert.Len(t, repo.users, 1)
	assert.Equal(t, model.RoleInstructor, user.Role)
	assert.Equal(t, "Ana P.", st.User.Name)
}

func TestService_ConcurrentSessionsDoNotCrossContaminate(t *testing.T) {
	svc := newReadyService(&fakeProvider{}, newFakeUserRepo())
	stA := &session.State{}
	stB := &session.State{}

	qA := beginLogin(t, svc, stA)
	beginLogin(t, svc, stB)

	// セッションBにセッションAの認可レスポンスを提示する
	_, err := svc.CompleteLogin(context.Background(), stB, CallbackParams{Code: "code-for-a", State: qA.Get("state")})

	assert.ErrorIs(t, err, ErrStateMismatch)
	assert.False(t, stB.Authenticated())
	assert.False(t, stA.Authenticated())
}

func TestStage(t *testing.T) {
	assert.Equal(t, "readiness", Stage(ErrServiceUnavailable))
	assert.Equal(t, "pending_login", Stage(ErrMissingVerifier))
	assert.Equal(t, "state", Stage(ErrStateMismatch))
	assert.Equal(t, "unknown", Stage(errors.New("x")))
}
