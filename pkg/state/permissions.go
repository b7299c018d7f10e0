package state

import (
	"fmt"
	"strings"
)

// a bitmap of connection roles
type Role uint64

const (
	RoleHardware Role = 1 << iota
	RoleApp
)

var BuiltInRoles = map[string]Role{
	"hardware": RoleHardware,
	"app":      RoleApp,
}

func (r Role) Has(flag Role) bool {
	return r&flag == flag
}

// Allows reports whether any bit of other is in r.
func (r Role) Allows(other Role) bool {
	return r&other != 0
}

func (r Role) String() string {
	switch r {
	case RoleHardware:
		return "hardware"
	case RoleApp:
		return "app"
	case 0:
		return "none"
	default:
		return "mixed"
	}
}

// ParseRole resolves a single role name.
func ParseRole(name string) (Role, error) {
	r, ok := BuiltInRoles[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown role '%s'", name)
	}
	return r, nil
}
