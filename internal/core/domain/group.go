package domain

import (
	"errors"
	"path"
	"strings"
	"time"
)

var ErrGroupNotFound = errors.New("group not found")
var ErrGroupExists = errors.New("group already exists")
var ErrDirectoryExists = errors.New("directory already exists")

// Group is a named collection of scoped accounts belonging to exactly one
// tenant. Deleting the tenant cascades to its groups.
type Group struct {
	ID         string    `json:"id" bson:"_id,omitempty"`
	TenantName string    `json:"tenant" bson:"tenant"`
	Name       string    `json:"name" bson:"name"`
	AccountIDs []string  `json:"accounts" bson:"accounts"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

// HasAccount reports whether accountID is a member of the group.
func (g *Group) HasAccount(accountID string) bool {
	for _, id := range g.AccountIDs {
		if id == accountID {
			return true
		}
	}
	return false
}

// Directory is a path-scoped authorization boundary inside a tenant's
// storage, e.g. "/admin/*". Path patterns are unique per tenant.
type Directory struct {
	Path       string   `json:"path" bson:"path"`
	GroupNames []string `json:"groups" bson:"groups"`
	AccountIDs []string `json:"accounts" bson:"accounts"`
}

// Matches reports whether the object key falls under the directory's path
// pattern. A trailing "/*" matches any key below the prefix; an exact
// pattern matches only that key.
func (d *Directory) Matches(key string) bool {
	pattern := d.Path
	key = "/" + strings.TrimPrefix(path.Clean("/"+key), "/")
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(key, prefix) || key == strings.TrimSuffix(prefix, "/")
	}
	return key == pattern
}
