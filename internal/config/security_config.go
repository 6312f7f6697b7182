package config

import "rental-order-backend/internal/domain"

type SecurityLevel int

const (
	SecurityPublic   SecurityLevel = iota // No authentication
	SecurityAccess                        // Any valid access token
	SecurityStaff                         // ADMIN, ARBITRATOR or REVIEW_PANEL token
	SecurityInternal                      // Service-to-service token
)

// RouteSecurityConfig maps named HTTP routes and gRPC methods to their
// required security level
var RouteSecurityConfig = map[string]SecurityLevel{
	"healthz": SecurityPublic,

	"/grpc.health.v1.Health/Check": SecurityPublic,
	"/grpc.health.v1.Health/Watch": SecurityPublic,
	"/grpc.health.v1.Health/List":  SecurityPublic,

	"orders.create":           SecurityAccess,
	"orders.list":             SecurityAccess,
	"orders.get":              SecurityAccess,
	"orders.payment":          SecurityAccess,
	"orders.cancel":           SecurityAccess,
	"orders.ship":             SecurityAccess,
	"orders.receive":          SecurityAccess,
	"orders.extension":        SecurityAccess,
	"orders.extension.decide": SecurityAccess,
	"orders.return":           SecurityAccess,
	"orders.return.transit":   SecurityAccess,
	"orders.return.decide":    SecurityAccess,
	"orders.buyout":           SecurityAccess,
	"orders.buyout.decide":    SecurityAccess,
	"orders.force-close":      SecurityStaff,
	"orders.message":          SecurityAccess,

	"disputes.list":       SecurityAccess,
	"disputes.create":     SecurityAccess,
	"disputes.respond":    SecurityAccess,
	"disputes.escalate":   SecurityAccess,
	"disputes.appeal":     SecurityAccess,
	"disputes.resolve":    SecurityStaff,
	"disputes.suggestion": SecurityStaff,

	"proofs.list":   SecurityAccess,
	"proofs.upload": SecurityAccess,
	"proofs.file":   SecurityAccess,

	"notifications.list": SecurityAccess,
	"notifications.read": SecurityAccess,
}

// GetSecurityLevel returns the level for a route. Unknown routes require
// an access token.
func GetSecurityLevel(route string) SecurityLevel {
	if level, ok := RouteSecurityConfig[route]; ok {
		return level
	}
	return SecurityAccess
}

// Permits reports whether role satisfies level
func (l SecurityLevel) Permits(role domain.Role) bool {
	switch l {
	case SecurityPublic:
		return true
	case SecurityAccess:
		return role.Valid()
	case SecurityStaff:
		return role.IsStaff()
	case SecurityInternal:
		return role == domain.RoleInternal
	}
	return false
}
