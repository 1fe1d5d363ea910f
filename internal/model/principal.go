package model

import (
	"github.com/google/uuid"
)

type UserRole string

const (
	UserRoleMarketAdmin UserRole = "MARKET_ADMIN"
	UserRoleContributor UserRole = "CONTRIBUTOR"
	UserRoleViewer      UserRole = "VIEWER"
)

type Principal struct {
	UserID uuid.UUID
	Name   string
	Role   UserRole
}

// CanContribute проверяет, может ли пользователь отправлять цены с рынка.
func (p Principal) CanContribute() bool {
	return p.Role == UserRoleMarketAdmin || p.Role == UserRoleContributor
}

// DisplayName is what goes into the ledger's submitted_by field.
func (p Principal) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.UserID.String()
}
