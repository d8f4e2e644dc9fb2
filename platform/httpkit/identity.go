package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Role ids as stored in the roles table.
const (
	RoleAdmin  int64 = 1
	RoleScoped int64 = 2
)

// Identity represents the authenticated caller as carried by the access token.
// Handlers use it instead of reading gin keys directly.
type Identity interface {
	UserID() int64
	RoleID() int64
	IsAdmin() bool
	IsAuthenticated() bool
}

type identity struct {
	userID        int64
	roleID        int64
	authenticated bool
}

func (i *identity) UserID() int64         { return i.userID }
func (i *identity) RoleID() int64         { return i.roleID }
func (i *identity) IsAdmin() bool         { return i.roleID == RoleAdmin }
func (i *identity) IsAuthenticated() bool { return i.authenticated }

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if user info is not present.
func GetIdentity(c *gin.Context) Identity {
	rawUser, ok := c.Get(ContextUserIDKey)
	if !ok {
		return &identity{}
	}
	uid, ok := rawUser.(int64)
	if !ok {
		return &identity{}
	}

	var role int64
	if rawRole, ok := c.Get(ContextRoleKey); ok {
		role, _ = rawRole.(int64)
	}

	return &identity{userID: uid, roleID: role, authenticated: true}
}

// MustGetIdentity aborts with 401 and returns nil when the caller is anonymous.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		Abort(c, http.StatusUnauthorized, "unauthorized")
		return nil
	}
	return id
}
