package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pactline/pactline/internal/authz"
	"github.com/pactline/pactline/internal/shared"
	"github.com/pactline/pactline/internal/users"
)

type stubRepository struct {
	byEmail  map[string]*users.User
	sessions map[string]int64
}

func newStubRepository() *stubRepository {
	return &stubRepository{byEmail: make(map[string]*users.User), sessions: make(map[string]int64)}
}

func (s *stubRepository) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (s *stubRepository) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	s.sessions[id] = userID
	return nil
}

func (s *stubRepository) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

type stubCompanies struct {
	companies map[int64]authz.Company
}

func (s *stubCompanies) ActiveCompanies(ctx context.Context) ([]authz.Company, error) {
	var out []authz.Company
	for _, c := range s.companies {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubCompanies) ActiveSubsidiaries(ctx context.Context, parentID int64) ([]authz.Company, error) {
	var out []authz.Company
	for _, c := range s.companies {
		if c.Active && c.Kind == authz.CompanyKindSubsidiary && c.ParentCompanyID == parentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubCompanies) FindCompany(ctx context.Context, id int64) (*authz.Company, error) {
	c, ok := s.companies[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

type stubWorkspaces struct{}

func (stubWorkspaces) ActiveWorkspaces(ctx context.Context, companyID int64) ([]authz.Workspace, error) {
	return nil, nil
}

func newTestHandler(t *testing.T, repo Repository) (*Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "pactline_session", "secret", time.Hour, false)
	companies := &stubCompanies{companies: map[int64]authz.Company{
		1: {ID: 1, Kind: authz.CompanyKindGroup, Active: true},
		2: {ID: 2, Kind: authz.CompanyKindSubsidiary, ParentCompanyID: 1, Active: true},
		3: {ID: 3, Kind: authz.CompanyKindGroup, Active: true},
	}}
	engine := authz.NewEngine(companies, stubWorkspaces{}, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), NewService(repo), engine, sessions), sessions
}

func requestWithSession(t *testing.T, sessions *shared.SessionManager, method, target, body string) (*http.Request, *shared.Session) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess, err := sessions.Load(req.Context(), req)
	require.NoError(t, err)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess)), sess
}

func TestLoginSuccess(t *testing.T) {
	repo := newStubRepository()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.byEmail["legal@example.com"] = &users.User{
		ID: 7, Email: "legal@example.com", PasswordHash: string(hash),
		Role: authz.RoleLegalReviewer, CompanyID: 2, IsActive: true,
	}
	handler, sessions := newTestHandler(t, repo)

	req, sess := requestWithSession(t, sessions, http.MethodPost, "/login",
		`{"email":"legal@example.com","password":"correct horse"}`)
	rec := httptest.NewRecorder()
	handler.login(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	userID, ok := sess.UserID()
	require.True(t, ok)
	assert.Equal(t, int64(7), userID)
	assert.Contains(t, repo.sessions, sess.ID)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	repo := newStubRepository()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.byEmail["legal@example.com"] = &users.User{
		ID: 7, Email: "legal@example.com", PasswordHash: string(hash),
		Role: authz.RoleLegalReviewer, CompanyID: 2, IsActive: true,
	}
	handler, sessions := newTestHandler(t, repo)

	req, sess := requestWithSession(t, sessions, http.MethodPost, "/login",
		`{"email":"legal@example.com","password":"wrong password"}`)
	rec := httptest.NewRecorder()
	handler.login(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	_, ok := sess.UserID()
	assert.False(t, ok)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	repo := newStubRepository()
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	repo.byEmail["gone@example.com"] = &users.User{
		ID: 8, Email: "gone@example.com", PasswordHash: string(hash),
		Role: authz.RoleViewer, CompanyID: 2, IsActive: false,
	}
	handler, sessions := newTestHandler(t, repo)

	req, _ := requestWithSession(t, sessions, http.MethodPost, "/login",
		`{"email":"gone@example.com","password":"correct horse"}`)
	rec := httptest.NewRecorder()
	handler.login(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSelectScopeRequiresAdminTier(t *testing.T) {
	handler, sessions := newTestHandler(t, newStubRepository())

	req, _ := requestWithSession(t, sessions, http.MethodPost, "/scope", `{"company_id":2}`)
	viewer := authz.Actor{ID: 9, Role: authz.RoleViewer, CompanyID: 2}
	req = req.WithContext(shared.ContextWithActor(req.Context(), viewer))
	rec := httptest.NewRecorder()
	handler.selectScope(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSelectScopeChecksCompanyAccess(t *testing.T) {
	handler, sessions := newTestHandler(t, newStubRepository())

	groupAdmin := authz.Actor{ID: 10, Role: authz.RoleGroupAdmin, CompanyID: 1}

	req, sess := requestWithSession(t, sessions, http.MethodPost, "/scope", `{"company_id":2}`)
	req = req.WithContext(shared.ContextWithActor(req.Context(), groupAdmin))
	rec := httptest.NewRecorder()
	handler.selectScope(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	companyID, _ := sess.SelectedScope()
	assert.Equal(t, int64(2), companyID)

	req, _ = requestWithSession(t, sessions, http.MethodPost, "/scope", `{"company_id":3}`)
	req = req.WithContext(shared.ContextWithActor(req.Context(), groupAdmin))
	rec = httptest.NewRecorder()
	handler.selectScope(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
