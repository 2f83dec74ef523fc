package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stackfold/hosting-system/internal/core/domain"
	"github.com/stackfold/hosting-system/internal/core/ports"
)

// TeardownQueue accepts teardown jobs for background retry. Implemented by
// the queue dispatcher; a nil queue disables background retries.
type TeardownQueue interface {
	Enqueue(job ports.TeardownJob)
}

// Tenant names seed bucket names, so they must stay bucket-safe.
var tenantNameRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

type tenantService struct {
	tenants     ports.TenantRepository
	accounts    ports.AccountRepository
	groups      ports.GroupRepository
	provisioner ports.ProvisionService
	local       ports.IdentityService
	federated   ports.IdentityService
	issuer      ports.SessionIssuer
	teardowns   TeardownQueue
	locks       sync.Map // tenant name → *sync.Mutex
	log         zerolog.Logger
}

// NewTenantService composes the provisioning engine, identity backends, and
// authorization stores into the public tenant contract.
func NewTenantService(
	tenants ports.TenantRepository,
	accounts ports.AccountRepository,
	groups ports.GroupRepository,
	provisioner ports.ProvisionService,
	local ports.IdentityService,
	federated ports.IdentityService,
	issuer ports.SessionIssuer,
	teardowns TeardownQueue,
	log zerolog.Logger,
) ports.TenantService {
	return &tenantService{
		tenants:     tenants,
		accounts:    accounts,
		groups:      groups,
		provisioner: provisioner,
		local:       local,
		federated:   federated,
		issuer:      issuer,
		teardowns:   teardowns,
		log:         log,
	}
}

// lock serializes lifecycle transitions per tenant. The returned func must
// be called on every exit path.
func (s *tenantService) lock(name string) func() {
	mu, _ := s.locks.LoadOrStore(name, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func (s *tenantService) Create(ctx context.Context, in ports.CreateTenantInput) (*domain.Tenant, error) {
	if !tenantNameRe.MatchString(in.Name) {
		return nil, fmt.Errorf("%w: tenant name %q", domain.ErrInvalidInput, in.Name)
	}
	if in.OwnerID == "" {
		return nil, fmt.Errorf("%w: owner required", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	tenant := &domain.Tenant{
		Name:          in.Name,
		OwnerID:       in.OwnerID,
		Collaborators: []string{},
		State:         domain.StateUnprovisioned,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	created, err := s.tenants.Insert(ctx, tenant)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("tenant", created.Name).Str("owner", created.OwnerID).Msg("tenant created")

	if in.Template == "" {
		return created, nil
	}

	// Template requested at creation: provision storage and seed it in the
	// same call, as the web console expects.
	created, err = s.ProvisionStorage(ctx, created.Name)
	if err != nil {
		return nil, err
	}
	if _, err := s.ApplyTemplate(ctx, created.Name, ports.ApplyTemplateInput{TemplateName: in.Template}); err != nil {
		return nil, err
	}
	return s.tenants.FindByName(ctx, created.Name)
}

func (s *tenantService) Get(ctx context.Context, name string) (*domain.Tenant, error) {
	return s.tenants.FindByName(ctx, name)
}

func (s *tenantService) List(ctx context.Context, accountID string) ([]*domain.Tenant, error) {
	return s.tenants.List(ctx, accountID)
}

func (s *tenantService) Update(ctx context.Context, name string, in ports.UpdateTenantInput) (*domain.Tenant, error) {
	unlock := s.lock(name)
	defer unlock()

	tenant, err := s.tenants.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}

	if in.Federated != nil {
		if in.Federated.Enabled {
			if _, err := url.ParseRequestURI(in.Federated.ProviderURL); err != nil {
				return nil, fmt.Errorf("%w: federated provider URL %q", domain.ErrInvalidInput, in.Federated.ProviderURL)
			}
			if in.Federated.ClientID == "" {
				return nil, fmt.Errorf("%w: federated client id required", domain.ErrInvalidInput)
			}
		}
		tenant.Federated = &domain.FederatedDescriptor{
			ProviderURL: in.Federated.ProviderURL,
			ClientID:    in.Federated.ClientID,
			Enabled:     in.Federated.Enabled,
		}
	}

	tenant.UpdatedAt = time.Now().UTC()
	if err := s.tenants.Save(ctx, tenant); err != nil {
		return nil, err
	}
	s.log.Info().
		Str("tenant", tenant.Name).
		Bool("federated", tenant.FederatedEnabled()).
		Msg("tenant settings updated")
	return tenant, nil
}

func (s *tenantService) ProvisionStorage(ctx context.Context, name string) (*domain.Tenant, error) {
	unlock := s.lock(name)
	defer unlock()

	tenant, err := s.tenants.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if tenant.State == domain.StateProvisioned {
		return nil, fmt.Errorf("tenant %q: %w", name, domain.ErrStorageConflict)
	}
	if err := s.transition(ctx, tenant, domain.StateProvisioning); err != nil {
		return nil, err
	}

	descriptor, provErr := s.provisioner.CreateStorage(ctx, tenant)
	if provErr != nil {
		if err := s.transition(ctx, tenant, domain.StateProvisioningFailed); err != nil {
			s.log.Error().Err(err).Str("tenant", name).Msg("failed to record provisioning failure")
		}
		return nil, fmt.Errorf("tenant %q: %w", name, provErr)
	}

	// The descriptor becomes visible only with the provisioned state, so
	// callers never observe a partially populated bucket.
	tenant.Storage = descriptor
	if err := s.transition(ctx, tenant, domain.StateProvisioned); err != nil {
		return nil, err
	}
	return tenant, nil
}

func (s *tenantService) DeprovisionStorage(ctx context.Context, name string) error {
	unlock := s.lock(name)
	defer unlock()

	tenant, err := s.tenants.FindByName(ctx, name)
	if err != nil {
		return err
	}
	// Idempotent: deprovisioning an already-removed tenant succeeds silently.
	if tenant.State == domain.StateRemoved || tenant.State == domain.StateUnprovisioned {
		return nil
	}
	if err := s.transition(ctx, tenant, domain.StateDeprovisioning); err != nil {
		return err
	}

	if remErr := s.provisioner.RemoveStorage(ctx, tenant); remErr != nil {
		if err := s.transition(ctx, tenant, domain.StateDeprovisioningFailed); err != nil {
			s.log.Error().Err(err).Str("tenant", name).Msg("failed to record deprovisioning failure")
		}
		s.enqueueTeardown(tenant)
		return fmt.Errorf("tenant %q: %w", name, remErr)
	}

	tenant.Storage = nil
	return s.transition(ctx, tenant, domain.StateRemoved)
}

func (s *tenantService) ApplyTemplate(ctx context.Context, name string, in ports.ApplyTemplateInput) (*ports.ApplyTemplateResult, error) {
	unlock := s.lock(name)
	defer unlock()

	tenant, err := s.tenants.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if tenant.State != domain.StateProvisioned {
		return nil, fmt.Errorf("tenant %q in state %s: %w", name, tenant.State, domain.ErrNotProvisioned)
	}
	return s.provisioner.ApplyTemplate(ctx, tenant, in)
}

func (s *tenantService) PublishFile(ctx context.Context, name string, in ports.PublishFileInput) (*domain.ObjectInfo, error) {
	tenant, err := s.tenants.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if tenant.State != domain.StateProvisioned {
		return nil, fmt.Errorf("tenant %q in state %s: %w", name, tenant.State, domain.ErrNotProvisioned)
	}
	return s.provisioner.PublishFile(ctx, tenant, in)
}

func (s *tenantService) GetStructure(ctx context.Context, name string) ([]domain.ObjectInfo, error) {
	tenant, err := s.tenants.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.provisioner.GetStructure(ctx, tenant)
}

// Delete removes the tenant and cascades: storage teardown, scoped accounts
// with their sessions, and groups. An incomplete teardown is handed to the
// background queue rather than blocking the deletion.
func (s *tenantService) Delete(ctx context.Context, name string) error {
	unlock := s.lock(name)
	defer unlock()

	tenant, err := s.tenants.FindByName(ctx, name)
	if err != nil {
		return err
	}

	if tenant.Storage != nil {
		if remErr := s.provisioner.RemoveStorage(ctx, tenant); remErr != nil {
			if !domain.IsRetryable(remErr) && !errors.Is(remErr, domain.ErrTeardownIncomplete) {
				return fmt.Errorf("tenant %q: %w", name, remErr)
			}
			s.log.Warn().Err(remErr).Str("tenant", name).Msg("teardown incomplete, queued for retry")
			s.enqueueTeardown(tenant)
		}
	}

	accounts, err := s.accounts.ListByTenant(ctx, name)
	if err != nil {
		return fmt.Errorf("tenant %q: %w", name, err)
	}
	for _, a := range accounts {
		if err := s.issuer.RevokeAccount(ctx, name, a.ID); err != nil {
			s.log.Warn().Err(err).Str("tenant", name).Str("account_id", a.ID).Msg("session cascade failed")
		}
	}
	if err := s.accounts.DeleteByTenant(ctx, name); err != nil {
		return fmt.Errorf("tenant %q: %w", name, err)
	}
	if err := s.groups.DeleteByTenant(ctx, name); err != nil {
		return fmt.Errorf("tenant %q: %w", name, err)
	}
	if err := s.tenants.Delete(ctx, name); err != nil {
		return fmt.Errorf("tenant %q: %w", name, err)
	}

	s.log.Info().Str("tenant", name).Int("accounts_removed", len(accounts)).Msg("tenant deleted")
	return nil
}

func (s *tenantService) Login(ctx context.Context, name string, creds ports.Credentials) (*ports.SessionResult, error) {
	tenant, err := s.tenants.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.identityFor(tenant).Login(ctx, tenant, creds)
}

func (s *tenantService) Signup(ctx context.Context, name string, creds ports.Credentials) (*ports.SessionResult, error) {
	tenant, err := s.tenants.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.identityFor(tenant).Signup(ctx, tenant, creds)
}

func (s *tenantService) Logout(ctx context.Context, token string) error {
	return s.issuer.Revoke(ctx, token)
}

func (s *tenantService) Verify(ctx context.Context, token string) (*domain.AccountProjection, error) {
	session, err := s.issuer.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.FindByID(ctx, session.TenantName, session.AccountID)
	if err != nil {
		return nil, err
	}
	projection := account.Projection()
	return &projection, nil
}

// identityFor selects the identity backend once per tenant, based on its
// federated descriptor rather than per request.
func (s *tenantService) identityFor(t *domain.Tenant) ports.IdentityService {
	if t.FederatedEnabled() && s.federated != nil {
		return s.federated
	}
	return s.local
}

// transition moves the tenant through the lifecycle state machine and
// persists the result.
func (s *tenantService) transition(ctx context.Context, t *domain.Tenant, next domain.LifecycleState) error {
	if !t.State.CanTransitionTo(next) {
		return fmt.Errorf("tenant %q: %s -> %s: %w", t.Name, t.State, next, domain.ErrInvalidTransition)
	}
	prev := t.State
	t.State = next
	t.UpdatedAt = time.Now().UTC()
	if err := s.tenants.Save(ctx, t); err != nil {
		t.State = prev
		return fmt.Errorf("tenant %q: persist state %s: %w", t.Name, next, err)
	}
	s.log.Debug().Str("tenant", t.Name).Str("from", string(prev)).Str("to", string(next)).Msg("lifecycle transition")
	return nil
}

func (s *tenantService) enqueueTeardown(t *domain.Tenant) {
	if s.teardowns == nil || t.Storage == nil {
		return
	}
	s.teardowns.Enqueue(ports.TeardownJob{TenantName: t.Name, BucketName: t.Storage.BucketName})
}
