package auth

import (
	"github.com/frahmantamala/hrm-access/internal/metrics"
	"github.com/frahmantamala/hrm-access/internal/permission"
)

type PermissionChecker interface {
	HasCapability(session *permission.Session, capability string) bool
	HasAll(session *permission.Session, capabilities ...permission.Capability) bool
}

// DefaultPermissionChecker answers from the session snapshot and counts decisions.
type DefaultPermissionChecker struct{}

func NewPermissionChecker() PermissionChecker {
	return &DefaultPermissionChecker{}
}

func (c *DefaultPermissionChecker) HasCapability(session *permission.Session, capability string) bool {
	allowed := permission.Authorize(session, capability)
	metrics.RecordAuthorization(capability, allowed)
	return allowed
}

func (c *DefaultPermissionChecker) HasAll(session *permission.Session, capabilities ...permission.Capability) bool {
	for _, capability := range capabilities {
		if !c.HasCapability(session, string(capability)) {
			return false
		}
	}
	return true
}
