package domain

import (
	"errors"
	"time"
)

// LifecycleState represents the provisioning state of a tenant's storage.
type LifecycleState string

const (
	StateUnprovisioned        LifecycleState = "unprovisioned"
	StateProvisioning         LifecycleState = "provisioning"
	StateProvisioned          LifecycleState = "provisioned"
	StateProvisioningFailed   LifecycleState = "provisioning_failed"
	StateDeprovisioning       LifecycleState = "deprovisioning"
	StateDeprovisioningFailed LifecycleState = "deprovisioning_failed"
	StateRemoved              LifecycleState = "removed"
)

// validTransitions defines the allowed lifecycle state machine transitions.
// The failed states permit retrying the same transition, and the in-flight
// states permit re-entering themselves so a tenant left mid-flight by a
// crashed process can be picked up again.
var validTransitions = map[LifecycleState][]LifecycleState{
	StateUnprovisioned:        {StateProvisioning},
	StateProvisioning:         {StateProvisioned, StateProvisioningFailed, StateProvisioning},
	StateProvisioningFailed:   {StateProvisioning},
	StateProvisioned:          {StateDeprovisioning},
	StateDeprovisioning:       {StateRemoved, StateDeprovisioningFailed, StateDeprovisioning},
	StateDeprovisioningFailed: {StateDeprovisioning},
}

var ErrInvalidTransition = errors.New("invalid lifecycle transition")
var ErrTenantNotFound = errors.New("tenant not found")
var ErrTenantExists = errors.New("tenant already exists")
var ErrNotProvisioned = errors.New("tenant storage not provisioned")
var ErrForbidden = errors.New("access forbidden")

// CanTransitionTo reports whether a transition from the current state to next is valid.
func (s LifecycleState) CanTransitionTo(next LifecycleState) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// StorageDescriptor describes a tenant's provisioned hosting bucket.
// It is either fully populated or absent; partial bucket state is never
// exposed to callers.
type StorageDescriptor struct {
	Provider   string `json:"provider" bson:"provider"`
	BucketName string `json:"bucket_name" bson:"bucket_name"`
	SiteURL    string `json:"site_url" bson:"site_url"`
}

// FederatedDescriptor configures delegation of a tenant's login/signup to an
// external identity provider. When Enabled is true the local credential store
// is bypassed entirely for that tenant.
type FederatedDescriptor struct {
	ProviderURL string `json:"provider_url" bson:"provider_url"`
	ClientID    string `json:"client_id" bson:"client_id"`
	Enabled     bool   `json:"enabled" bson:"enabled"`
}

// Tenant is the aggregate root: a named hosting unit with its own storage,
// scoped accounts, groups, and directories. Name is globally unique and
// immutable after creation; it seeds the storage namespace.
type Tenant struct {
	ID            string               `json:"id" bson:"_id,omitempty"`
	Name          string               `json:"name" bson:"name"`
	OwnerID       string               `json:"owner_id" bson:"owner_id"`
	Collaborators []string             `json:"collaborators" bson:"collaborators"`
	Directories   []Directory          `json:"directories,omitempty" bson:"directories,omitempty"`
	Storage       *StorageDescriptor   `json:"storage,omitempty" bson:"storage,omitempty"`
	Federated     *FederatedDescriptor `json:"federated,omitempty" bson:"federated,omitempty"`
	State         LifecycleState       `json:"state" bson:"state"`
	CreatedAt     time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at" bson:"updated_at"`
}

// FederatedEnabled reports whether login/signup must be delegated to the
// tenant's external identity provider. Checked once per tenant before
// dispatch, never per request.
func (t *Tenant) FederatedEnabled() bool {
	return t.Federated != nil && t.Federated.Enabled
}

// IsCollaborator reports whether accountID is in the tenant's collaborator set.
func (t *Tenant) IsCollaborator(accountID string) bool {
	for _, id := range t.Collaborators {
		if id == accountID {
			return true
		}
	}
	return false
}
