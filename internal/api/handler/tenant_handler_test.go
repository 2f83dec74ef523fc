package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/stackfold/hosting-system/internal/core/domain"
	"github.com/stackfold/hosting-system/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubTenantService struct {
	createFn      func(ctx context.Context, in ports.CreateTenantInput) (*domain.Tenant, error)
	getFn         func(ctx context.Context, name string) (*domain.Tenant, error)
	listFn        func(ctx context.Context, accountID string) ([]*domain.Tenant, error)
	updateFn      func(ctx context.Context, name string, in ports.UpdateTenantInput) (*domain.Tenant, error)
	deleteFn      func(ctx context.Context, name string) error
	provisionFn   func(ctx context.Context, name string) (*domain.Tenant, error)
	deprovisionFn func(ctx context.Context, name string) error
	applyFn       func(ctx context.Context, name string, in ports.ApplyTemplateInput) (*ports.ApplyTemplateResult, error)
	publishFn     func(ctx context.Context, name string, in ports.PublishFileInput) (*domain.ObjectInfo, error)
	structureFn   func(ctx context.Context, name string) ([]domain.ObjectInfo, error)
	loginFn       func(ctx context.Context, name string, creds ports.Credentials) (*ports.SessionResult, error)
	signupFn      func(ctx context.Context, name string, creds ports.Credentials) (*ports.SessionResult, error)
	logoutFn      func(ctx context.Context, token string) error
	verifyFn      func(ctx context.Context, token string) (*domain.AccountProjection, error)
}

func (s *stubTenantService) Create(ctx context.Context, in ports.CreateTenantInput) (*domain.Tenant, error) {
	return s.createFn(ctx, in)
}

func (s *stubTenantService) Get(ctx context.Context, name string) (*domain.Tenant, error) {
	return s.getFn(ctx, name)
}

func (s *stubTenantService) List(ctx context.Context, accountID string) ([]*domain.Tenant, error) {
	return s.listFn(ctx, accountID)
}

func (s *stubTenantService) Update(ctx context.Context, name string, in ports.UpdateTenantInput) (*domain.Tenant, error) {
	return s.updateFn(ctx, name, in)
}

func (s *stubTenantService) Delete(ctx context.Context, name string) error {
	return s.deleteFn(ctx, name)
}

func (s *stubTenantService) ProvisionStorage(ctx context.Context, name string) (*domain.Tenant, error) {
	return s.provisionFn(ctx, name)
}

func (s *stubTenantService) DeprovisionStorage(ctx context.Context, name string) error {
	return s.deprovisionFn(ctx, name)
}

func (s *stubTenantService) ApplyTemplate(ctx context.Context, name string, in ports.ApplyTemplateInput) (*ports.ApplyTemplateResult, error) {
	return s.applyFn(ctx, name, in)
}

func (s *stubTenantService) PublishFile(ctx context.Context, name string, in ports.PublishFileInput) (*domain.ObjectInfo, error) {
	return s.publishFn(ctx, name, in)
}

func (s *stubTenantService) GetStructure(ctx context.Context, name string) ([]domain.ObjectInfo, error) {
	return s.structureFn(ctx, name)
}

func (s *stubTenantService) Login(ctx context.Context, name string, creds ports.Credentials) (*ports.SessionResult, error) {
	return s.loginFn(ctx, name, creds)
}

func (s *stubTenantService) Signup(ctx context.Context, name string, creds ports.Credentials) (*ports.SessionResult, error) {
	return s.signupFn(ctx, name, creds)
}

func (s *stubTenantService) Logout(ctx context.Context, token string) error {
	return s.logoutFn(ctx, token)
}

func (s *stubTenantService) Verify(ctx context.Context, token string) (*domain.AccountProjection, error) {
	return s.verifyFn(ctx, token)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// newTestContext builds an echo context for a tenant-scoped route with the
// platform identity already injected, the way the Auth middleware would.
func newTestContext(method, tenantName, accountID string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, "/", body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if tenantName != "" {
		c.SetParamNames("name")
		c.SetParamValues(tenantName)
	}
	if accountID != "" {
		c.Set("account_id", accountID)
	}
	return c, rec
}

func ownedTenant(name, owner string) *domain.Tenant {
	return &domain.Tenant{
		Name:          name,
		OwnerID:       owner,
		Collaborators: []string{"collab_1"},
		State:         domain.StateUnprovisioned,
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestTenantHandler_Create_Success(t *testing.T) {
	stub := &stubTenantService{
		createFn: func(_ context.Context, in ports.CreateTenantInput) (*domain.Tenant, error) {
			if in.Name != "demo" || in.OwnerID != "owner_1" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return ownedTenant("demo", "owner_1"), nil
		},
	}
	h := NewTenantHandler(stub)

	c, rec := newTestContext(http.MethodPost, "", "owner_1", strings.NewReader(`{"nameSite":"demo"}`))
	if err := h.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["name"] != "demo" || resp["owner_id"] != "owner_1" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
	if _, ok := resp["_links"]; !ok {
		t.Fatal("expected _links in response")
	}
}

func TestTenantHandler_Create_InvalidName(t *testing.T) {
	stub := &stubTenantService{
		createFn: func(context.Context, ports.CreateTenantInput) (*domain.Tenant, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}
	h := NewTenantHandler(stub)

	c, _ := newTestContext(http.MethodPost, "", "owner_1", strings.NewReader(`{"nameSite":"Bad Name!"}`))
	err := h.Create(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
}

func TestTenantHandler_Create_MissingIdentity(t *testing.T) {
	h := NewTenantHandler(&stubTenantService{})

	c, _ := newTestContext(http.MethodPost, "", "", strings.NewReader(`{"nameSite":"demo"}`))
	err := h.Create(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestTenantHandler_Get_ForbiddenForStranger(t *testing.T) {
	stub := &stubTenantService{
		getFn: func(_ context.Context, name string) (*domain.Tenant, error) {
			return ownedTenant(name, "owner_1"), nil
		},
	}
	h := NewTenantHandler(stub)

	c, _ := newTestContext(http.MethodGet, "demo", "stranger", nil)
	if err := h.Get(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestTenantHandler_Get_CollaboratorAllowed(t *testing.T) {
	stub := &stubTenantService{
		getFn: func(_ context.Context, name string) (*domain.Tenant, error) {
			return ownedTenant(name, "owner_1"), nil
		},
	}
	h := NewTenantHandler(stub)

	c, rec := newTestContext(http.MethodGet, "demo", "collab_1", nil)
	if err := h.Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestTenantHandler_Update_OwnerOnly(t *testing.T) {
	var captured ports.UpdateTenantInput
	stub := &stubTenantService{
		getFn: func(_ context.Context, name string) (*domain.Tenant, error) {
			return ownedTenant(name, "owner_1"), nil
		},
		updateFn: func(_ context.Context, name string, in ports.UpdateTenantInput) (*domain.Tenant, error) {
			captured = in
			tenant := ownedTenant(name, "owner_1")
			tenant.Federated = &domain.FederatedDescriptor{
				ProviderURL: in.Federated.ProviderURL,
				ClientID:    in.Federated.ClientID,
				Enabled:     in.Federated.Enabled,
			}
			return tenant, nil
		},
	}
	h := NewTenantHandler(stub)

	body := `{"federated":{"provider_url":"https://idp.example.com","client_id":"client_1","enabled":true}}`

	// A collaborator may read but not change settings.
	c, _ := newTestContext(http.MethodPatch, "demo", "collab_1", strings.NewReader(body))
	if err := h.Update(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for collaborator, got %v", err)
	}
	if captured.Federated != nil {
		t.Fatal("update should not have reached the service")
	}

	c, rec := newTestContext(http.MethodPatch, "demo", "owner_1", strings.NewReader(body))
	if err := h.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if captured.Federated == nil || captured.Federated.ProviderURL != "https://idp.example.com" || !captured.Federated.Enabled {
		t.Fatalf("federated input not forwarded: %+v", captured.Federated)
	}

	var resp struct {
		Federated bool `json:"federated"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Federated {
		t.Error("response should report federation enabled")
	}
}

func TestTenantHandler_Update_InvalidProviderURL(t *testing.T) {
	stub := &stubTenantService{
		getFn: func(_ context.Context, name string) (*domain.Tenant, error) {
			return ownedTenant(name, "owner_1"), nil
		},
	}
	h := NewTenantHandler(stub)

	body := `{"federated":{"provider_url":"not a url","client_id":"client_1","enabled":true}}`
	c, _ := newTestContext(http.MethodPatch, "demo", "owner_1", strings.NewReader(body))
	err := h.Update(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 on malformed provider URL, got %v", err)
	}
}

func TestTenantHandler_Delete_OwnerOnly(t *testing.T) {
	deleted := false
	stub := &stubTenantService{
		getFn: func(_ context.Context, name string) (*domain.Tenant, error) {
			return ownedTenant(name, "owner_1"), nil
		},
		deleteFn: func(_ context.Context, name string) error {
			deleted = true
			return nil
		},
	}
	h := NewTenantHandler(stub)

	// A collaborator may read but not delete.
	c, _ := newTestContext(http.MethodDelete, "demo", "collab_1", nil)
	if err := h.Delete(c); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for collaborator, got %v", err)
	}
	if deleted {
		t.Fatal("delete should not have reached the service")
	}

	c, rec := newTestContext(http.MethodDelete, "demo", "owner_1", nil)
	if err := h.Delete(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNoContent || !deleted {
		t.Fatalf("expected 204 and service call, got %d deleted=%v", rec.Code, deleted)
	}
}

func TestTenantHandler_ProvisionStorage_Success(t *testing.T) {
	stub := &stubTenantService{
		getFn: func(_ context.Context, name string) (*domain.Tenant, error) {
			return ownedTenant(name, "owner_1"), nil
		},
		provisionFn: func(_ context.Context, name string) (*domain.Tenant, error) {
			tenant := ownedTenant(name, "owner_1")
			tenant.State = domain.StateProvisioned
			tenant.Storage = &domain.StorageDescriptor{Provider: "memory", BucketName: "stackfold-demo", SiteURL: "http://sites.test/stackfold-demo"}
			return tenant, nil
		},
	}
	h := NewTenantHandler(stub)

	c, rec := newTestContext(http.MethodPost, "demo", "owner_1", nil)
	if err := h.ProvisionStorage(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	storage, ok := resp["storage"].(map[string]any)
	if !ok || storage["bucket_name"] != "stackfold-demo" {
		t.Fatalf("unexpected storage payload: %+v", resp)
	}
}

func TestTenantHandler_PublishFile_Success(t *testing.T) {
	stub := &stubTenantService{
		getFn: func(_ context.Context, name string) (*domain.Tenant, error) {
			return ownedTenant(name, "owner_1"), nil
		},
		publishFn: func(_ context.Context, name string, in ports.PublishFileInput) (*domain.ObjectInfo, error) {
			if in.Key != "index.html" || string(in.Content) != "<h1>hi</h1>" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.ObjectInfo{Key: in.Key, Size: int64(len(in.Content)), ContentType: "text/html"}, nil
		},
	}
	h := NewTenantHandler(stub)

	body := strings.NewReader(`{"key":"index.html","content":"<h1>hi</h1>","content_type":"text/html"}`)
	c, rec := newTestContext(http.MethodPut, "demo", "owner_1", body)
	if err := h.PublishFile(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestTenantHandler_PublishFile_MissingKey(t *testing.T) {
	h := NewTenantHandler(&stubTenantService{})

	c, _ := newTestContext(http.MethodPut, "demo", "owner_1", strings.NewReader(`{"content":"x"}`))
	err := h.PublishFile(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}
}

func TestTenantHandler_GetStructure_Success(t *testing.T) {
	stub := &stubTenantService{
		getFn: func(_ context.Context, name string) (*domain.Tenant, error) {
			return ownedTenant(name, "owner_1"), nil
		},
		structureFn: func(_ context.Context, name string) ([]domain.ObjectInfo, error) {
			return []domain.ObjectInfo{
				{Key: "css/site.css", Size: 6},
				{Key: "index.html", Size: 16},
			}, nil
		},
	}
	h := NewTenantHandler(stub)

	c, rec := newTestContext(http.MethodGet, "demo", "owner_1", nil)
	if err := h.GetStructure(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["total"] != float64(2) {
		t.Fatalf("expected total 2, got %v", resp["total"])
	}
}

func TestTenantHandler_InvalidPayload(t *testing.T) {
	h := NewTenantHandler(&stubTenantService{})

	c, _ := newTestContext(http.MethodPost, "", "owner_1", strings.NewReader("not-json"))
	err := h.Create(c)

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
