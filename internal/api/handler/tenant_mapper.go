package handler

import (
	"github.com/stackfold/hosting-system/internal/core/domain"
	"github.com/stackfold/hosting-system/internal/core/ports"
)

// --- Domain → HTTP response ---

func toTenantResponse(t *domain.Tenant) tenantResponse {
	resp := tenantResponse{
		Name:          t.Name,
		OwnerID:       t.OwnerID,
		Collaborators: t.Collaborators,
		State:         string(t.State),
		Federated:     t.FederatedEnabled(),
		CreatedAt:     t.CreatedAt.UTC(),
		UpdatedAt:     t.UpdatedAt.UTC(),
		Links: tenantLinks{
			Self:  "/v1/tenants/" + t.Name,
			Files: "/v1/tenants/" + t.Name + "/files",
		},
	}
	if resp.Collaborators == nil {
		resp.Collaborators = []string{}
	}
	if t.Storage != nil {
		resp.Storage = &storageResponse{
			Provider:   t.Storage.Provider,
			BucketName: t.Storage.BucketName,
			SiteURL:    t.Storage.SiteURL,
		}
	}
	return resp
}

func toListTenantsResponse(tenants []*domain.Tenant) listTenantsResponse {
	items := make([]tenantResponse, len(tenants))
	for i, t := range tenants {
		items[i] = toTenantResponse(t)
	}
	return listTenantsResponse{Data: items, Total: len(items)}
}

func toObjectInfoResponse(o domain.ObjectInfo) objectInfoResponse {
	return objectInfoResponse{
		Key:          o.Key,
		Size:         o.Size,
		ContentType:  o.ContentType,
		LastModified: o.LastModified.UTC(),
	}
}

func toListFilesResponse(objects []domain.ObjectInfo) listFilesResponse {
	items := make([]objectInfoResponse, len(objects))
	for i, o := range objects {
		items[i] = toObjectInfoResponse(o)
	}
	return listFilesResponse{Data: items, Total: len(items)}
}

func toGroupResponse(g *domain.Group) groupResponse {
	ids := g.AccountIDs
	if ids == nil {
		ids = []string{}
	}
	return groupResponse{
		Name:       g.Name,
		AccountIDs: ids,
		CreatedAt:  g.CreatedAt.UTC(),
		UpdatedAt:  g.UpdatedAt.UTC(),
	}
}

func toListGroupsResponse(groups []*domain.Group) listGroupsResponse {
	items := make([]groupResponse, len(groups))
	for i, g := range groups {
		items[i] = toGroupResponse(g)
	}
	return listGroupsResponse{Data: items, Total: len(items)}
}

func toSessionResponse(r *ports.SessionResult) sessionResponse {
	return sessionResponse{
		Token:     r.Token,
		ExpiresAt: r.ExpiresAt.UTC(),
		Account: accountResponse{
			ID:       r.Account.ID,
			Username: r.Account.Username,
			Email:    r.Account.Email,
		},
	}
}
