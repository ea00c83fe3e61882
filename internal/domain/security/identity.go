package security

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/shared"
)

// MaxIPLength bounds stored client addresses (IPv6 with zone fits in 45 chars)
const MaxIPLength = 45

// IdentityKind distinguishes the things that can be blocked
type IdentityKind string

const (
	IdentityIP IdentityKind = "ip"
	// IdentityUser is an existing account, keyed by its user ID
	IdentityUser IdentityKind = "user"
	// IdentityUsername is a login name that matches no account
	IdentityUsername IdentityKind = "username"
)

// Identity is the subject of attempt counting and quotas
type Identity struct {
	Kind  IdentityKind
	Value string
}

// IPIdentity builds an identity for a client address
func IPIdentity(ip string) Identity {
	ip = strings.TrimSpace(ip)
	if len(ip) > MaxIPLength {
		ip = ip[:MaxIPLength]
	}
	return Identity{Kind: IdentityIP, Value: ip}
}

// UserIdentity builds an identity for an account. Login failures and the
// guards on authenticated requests must agree on the key, so it is always
// the user ID.
func UserIdentity(userID string) Identity {
	return Identity{Kind: IdentityUser, Value: strings.ToLower(strings.TrimSpace(userID))}
}

// UsernameIdentity builds an identity for a login name with no account behind it
func UsernameIdentity(username string) Identity {
	return Identity{Kind: IdentityUsername, Value: strings.TrimSpace(username)}
}

// ParseIdentity builds an identity from a kind name and value, as received from the admin API
func ParseIdentity(kind, value string) (Identity, error) {
	if strings.TrimSpace(value) == "" {
		return Identity{}, shared.NewValidationError("INVALID_IDENTITY", "Identity value cannot be empty")
	}
	switch IdentityKind(kind) {
	case IdentityIP:
		return IPIdentity(value), nil
	case IdentityUser:
		if _, err := uuid.Parse(value); err != nil {
			return Identity{}, shared.NewValidationError("INVALID_IDENTITY", "User identity must be a user ID")
		}
		return UserIdentity(value), nil
	case IdentityUsername:
		return UsernameIdentity(value), nil
	default:
		return Identity{}, shared.NewValidationError("INVALID_IDENTITY", "Identity kind must be ip, user or username")
	}
}

// IsZero reports whether the identity carries no value
func (i Identity) IsZero() bool {
	return i.Value == ""
}

// Key returns the store key for the identity. Addresses are hashed so raw
// client IPs never end up in the shared store.
func (i Identity) Key() string {
	if i.Kind == IdentityIP {
		sum := sha256.Sum256([]byte(i.Value))
		return string(IdentityIP) + ":" + hex.EncodeToString(sum[:16])
	}
	return string(i.Kind) + ":" + i.Value
}

// String returns a log-safe representation
func (i Identity) String() string {
	return i.Key()
}
