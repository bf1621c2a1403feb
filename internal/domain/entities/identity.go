package entities

import (
	"strings"
	"time"
)

const (
	RoleOwner   = "Owner"
	RoleAdmin   = "Admin"
	RoleService = "Service"
)

// ServiceUserID identifies the synthesized service-to-service identity.
const ServiceUserID = "service"

// Identity is a resolved caller, either a verified user or the internal service.
type Identity struct {
	UserID            string `json:"user_id"`
	Role              string `json:"role"`
	Email             string `json:"email,omitempty"`
	PhoneNumber       string `json:"phone_number,omitempty"`
	PreferredLanguage string `json:"preferred_language,omitempty"`
}

func (i Identity) IsZero() bool {
	return i.UserID == "" && i.Role == ""
}

func (i Identity) HasRole(role string) bool {
	return strings.EqualFold(strings.TrimSpace(i.Role), role)
}

func (i Identity) IsService() bool { return i.HasRole(RoleService) }
func (i Identity) IsOwner() bool   { return i.HasRole(RoleOwner) }
func (i Identity) IsAdmin() bool   { return i.HasRole(RoleAdmin) }

// CredentialClaims is what local validation extracts from a bearer credential.
// ExpiresAt is nil when the credential carries no expiry claim.
type CredentialClaims struct {
	Subject   string
	ExpiresAt *time.Time
}
