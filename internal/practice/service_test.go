package practice

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/labpractice/internal/model"
	"github.com/hitoshi/labpractice/internal/security"
)

// --- モック ---

type mockPracticeRepo struct {
	listFn     func(ctx context.Context) ([]model.Practice, error)
	findByIDFn func(ctx context.Context, id int64) (*model.Practice, error)
	createFn   func(ctx context.Context, p *model.Practice) (*model.Practice, error)
	updateFn   func(ctx context.Context, id int64, patch model.PracticePatch) (*model.Practice, error)
	closeFn    func(ctx context.Context, id int64) (*model.Practice, error)
}

func (m *mockPracticeRepo) List(ctx context.Context) ([]model.Practice, error) {
	return m.listFn(ctx)
}
func (m *mockPracticeRepo) FindByID(ctx context.Context, id int64) (*model.Practice, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockPracticeRepo) Create(ctx context.Context, p *model.Practice) (*model.Practice, error) {
	return m.createFn(ctx, p)
}
func (m *mockPracticeRepo) Update(ctx context.Context, id int64, patch model.PracticePatch) (*model.Practice, error) {
	return m.updateFn(ctx, id, patch)
}
func (m *mockPracticeRepo) Close(ctx context.Context, id int64) (*model.Practice, error) {
	return m.closeFn(ctx, id)
}

func ptr[T any](v T) *T { return &v }

func requireAPIError(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, code, apiErr.Code)
}

func TestService_Get(t *testing.T) {
	repo := &mockPracticeRepo{findByIDFn: func(ctx context.Context, id int64) (*model.Practice, error) {
		if id == 1 {
			return &model.Practice{ID: 1, Title: "Ley de Ohm"}, nil
		}
		return nil, nil
	}}
	svc := NewService(repo, security.NewContentSanitizer())

	p, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Ley de Ohm", p.Title)

	_, err = svc.Get(context.Background(), 2)
	requireAPIError(t, err, model.ErrCodePracticeNotFound)
}

func TestService_List_WrapsRepositoryError(t *testing.T) {
	dbErr := errors.New("connection reset")
	svc := NewService(&mockPracticeRepo{listFn: func(ctx context.Context) ([]model.Practice, error) {
		return nil, dbErr
	}}, security.NewContentSanitizer())

	_, err := svc.List(context.Background())
	assert.ErrorIs(t, err, dbErr)
}

func TestService_Create(t *testing.T) {
	var saved *model.Practice
	repo := &mockPracticeRepo{createFn: func(ctx context.Context, p *model.Practice) (*model.Practice, error) {
		saved = p
		out := *p
		out.ID = 10
		if out.Status == "" {
			out.Status = model.PracticeDraft
		}
		return &out, nil
	}}
	svc := NewService(repo, security.NewContentSanitizer())
	creator := &model.User{Subject: "doc-1", Role: model.RoleInstructor}

	created, err := svc.Create(context.Background(), creator, CreateInput{
		Title:            "  Circuitos RC  ",
		Description:      ptr(`<p>Medir</p><script>x()</script>`),
		SimulationConfig: json.RawMessage(`{"resistencia": 100}`),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(10), created.ID)
	assert.Equal(t, model.PracticeDraft, created.Status)
	assert.Equal(t, "Circuitos RC", saved.Title)
	assert.Equal(t, "<p>Medir</p>", *saved.Description)
	assert.Equal(t, "doc-1", *saved.CreatedBy)
	assert.JSONEq(t, `{"resistencia": 100}`, string(saved.SimulationConfig))
}

func TestService_Create_Validation(t *testing.T) {
	svc := NewService(&mockPracticeRepo{createFn: func(ctx context.Context, p *model.Practice) (*model.Practice, error) {
		t.Fatal("repository should not be called")
		return nil, nil
	}}, security.NewContentSanitizer())

	_, err := svc.Create(context.Background(), nil, CreateInput{Title: "   "})
	requireAPIError(t, err, model.ErrCodeMissingField)

	status := model.PracticeStatus("archivada")
	_, err = svc.Create(context.Background(), nil, CreateInput{Title: "X", Status: &status})
	requireAPIError(t, err, model.ErrCodeInvalidStatus)
}

func TestService_Create_NullConfigIsOmitted(t *testing.T) {
	var saved *model.Practice
	svc := NewService(&mockPracticeRepo{createFn: func(ctx context.Context, p *model.Practice) (*model.Practice, error) {
		saved = p
		return p, nil
	}}, security.NewContentSanitizer())

	_, err := svc.Create(context.Background(), nil, CreateInput{Title: "X", SimulationConfig: json.RawMessage("null")})
	require.NoError(t, err)
	assert.Nil(t, saved.SimulationConfig)
	assert.Nil(t, saved.CreatedBy)
}

func TestService_Update(t *testing.T) {
	var gotPatch model.PracticePatch
	repo := &mockPracticeRepo{updateFn: func(ctx context.Context, id int64, patch model.PracticePatch) (*model.Practice, error) {
		if id != 3 {
			return nil, nil
		}
		gotPatch = patch
		return &model.Practice{ID: 3, Title: *patch.Title, Status: model.PracticePublished}, nil
	}}
	svc := NewService(repo, security.NewContentSanitizer())

	published := model.PracticePublished
	updated, err := svc.Update(context.Background(), 3, model.PracticePatch{Title: ptr(" Nuevo "), Status: &published})
	require.NoError(t, err)
	assert.Equal(t, "Nuevo", updated.Title)
	assert.Equal(t, "Nuevo", *gotPatch.Title)
	assert.Nil(t, gotPatch.Description)

	_, err = svc.Update(context.Background(), 4, model.PracticePatch{})
	requireAPIError(t, err, model.ErrCodePracticeNotFound)

	bad := model.PracticeStatus("x")
	_, err = svc.Update(context.Background(), 3, model.PracticePatch{Status: &bad})
	requireAPIError(t, err, model.ErrCodeInvalidStatus)

	_, err = svc.Update(context.Background(), 3, model.PracticePatch{Title: ptr("")})
	requireAPIError(t, err, model.ErrCodeMissingField)
}

func TestService_Close(t *testing.T) {
	repo := &mockPracticeRepo{closeFn: func(ctx context.Context, id int64) (*model.Practice, error) {
		if id == 5 {
			return &model.Practice{ID: 5, Status: model.PracticeClosed}, nil
		}
		return nil, nil
	}}
	svc := NewService(repo, security.NewContentSanitizer())

	closed, err := svc.Close(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, model.PracticeClosed, closed.Status)

	_, err = svc.Close(context.Background(), 6)
	requireAPIError(t, err, model.ErrCodePracticeNotFound)
}
