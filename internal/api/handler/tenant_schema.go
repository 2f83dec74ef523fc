package handler

import "time"

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request types ---

type createTenantRequest struct {
	NameSite string `json:"nameSite" validate:"required,hostname_rfc1123"`
	Template string `json:"template"`
}

// updateTenantRequest is a partial update; absent sections are left as they
// are. Enabling federation requires the provider URL and client id.
type updateTenantRequest struct {
	Federated *federatedRequest `json:"federated"`
}

type federatedRequest struct {
	ProviderURL string `json:"provider_url" validate:"omitempty,url"`
	ClientID    string `json:"client_id"`
	Enabled     bool   `json:"enabled"`
}

type applyTemplateRequest struct {
	Template   string `json:"template" validate:"required"`
	ReplaceAll bool   `json:"replace_all"`
}

type publishFileRequest struct {
	Key         string `json:"key"          validate:"required"`
	Content     string `json:"content"      validate:"required"`
	ContentType string `json:"content_type"`
}

type addCollaboratorsRequest struct {
	AccountIDs []string `json:"account_ids" validate:"required,min=1"`
}

type createGroupRequest struct {
	Name       string   `json:"name" validate:"required"`
	AccountIDs []string `json:"account_ids"`
}

// updateGroupRequest is a partial update. A body carrying no fields at all
// deletes the group; see AccessService.UpdateGroup.
type updateGroupRequest struct {
	AccountIDs *[]string `json:"account_ids"`
}

type addDirectoryRequest struct {
	Path       string   `json:"path" validate:"required,startswith=/"`
	GroupNames []string `json:"groups"`
	AccountIDs []string `json:"account_ids"`
}

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
}

// --- Response types ---
//
// Response-only types owned by the transport layer, intentionally separate
// from ports/domain types so the JSON contract is not coupled to internal
// service changes.

type tenantLinks struct {
	Self  string `json:"self"`
	Files string `json:"files"`
}

type storageResponse struct {
	Provider   string `json:"provider"`
	BucketName string `json:"bucket_name"`
	SiteURL    string `json:"site_url"`
}

type tenantResponse struct {
	Name          string           `json:"name"`
	OwnerID       string           `json:"owner_id"`
	Collaborators []string         `json:"collaborators"`
	State         string           `json:"state"`
	Storage       *storageResponse `json:"storage,omitempty"`
	Federated     bool             `json:"federated"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	Links         tenantLinks      `json:"_links"`
}

type listTenantsResponse struct {
	Data  []tenantResponse `json:"data"`
	Total int              `json:"total"`
}

type objectInfoResponse struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

type listFilesResponse struct {
	Data  []objectInfoResponse `json:"data"`
	Total int                  `json:"total"`
}

type applyTemplateResponse struct {
	Template     string `json:"template"`
	FilesWritten int    `json:"files_written"`
	SiteURL      string `json:"site_url"`
}

type groupResponse struct {
	Name       string    `json:"name"`
	AccountIDs []string  `json:"account_ids"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type listGroupsResponse struct {
	Data  []groupResponse `json:"data"`
	Total int             `json:"total"`
}

type permissionResponse struct {
	AccountID string `json:"account_id"`
	Key       string `json:"key"`
	Allowed   bool   `json:"allowed"`
}

type accountResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type sessionResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Account   accountResponse `json:"account"`
}

type acceptedResponse struct {
	Message string `json:"message"`
}
