package model

import (
	"errors"
	"strings"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSeller Role = "seller"
	RoleBuyer  Role = "buyer"
)

var ErrInvalidRole = errors.New("invalid role")

func ToRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleSeller, RoleBuyer:
		return r, nil
	default:
		return "", ErrInvalidRole
	}
}

// 操作するユーザー（ID＋ロールの集合）。usecaseには必ず明示的に渡す。
type Identity struct {
	ID    int64
	Roles []Role
}

func NewIdentity(id int64, roles ...Role) Identity {
	return Identity{ID: id, Roles: roles}
}

func (i Identity) Has(role Role) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (i Identity) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if i.Has(r) {
			return true
		}
	}
	return false
}

func (i Identity) IsAdmin() bool { return i.Has(RoleAdmin) }

// Validはログイン済みとして扱えるか
func (i Identity) Valid() bool {
	return i.ID > 0 && len(i.Roles) > 0
}
