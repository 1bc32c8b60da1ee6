package session

import "github.com/foodontracks/trackd/rbac"

// Session defines a public type used by trackd APIs.
//
// Session instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Session struct {
	SessionID string
	UserID    string

	Role string

	Mask rbac.Mask64

	PermissionVersion uint32
	AccountVersion    uint32
	Status            uint8
	RefreshHash       [32]byte

	CreatedAt int64
	ExpiresAt int64
}
