package config

import (
	"fmt"
	"strings"

	"github.com/a-essam23/go-devicehub/pkg/state"
)

// CompileRoles takes a slice of role names and returns a combined bitmap.
// An empty list allows every role.
func CompileRoles(names []string) (state.Role, error) {
	if len(names) == 0 {
		return GetFullRolesBitmap(), nil
	}
	var bitmap state.Role
	for _, name := range names {
		value, ok := state.BuiltInRoles[strings.ToLower(name)]
		if !ok {
			return 0, fmt.Errorf("role '%s' not found", name)
		}
		bitmap |= value
	}
	return bitmap, nil
}

// GetFullRolesBitmap returns a bitmap containing all known roles.
func GetFullRolesBitmap() state.Role {
	var bitmap state.Role
	for _, r := range state.BuiltInRoles {
		bitmap |= r
	}
	return bitmap
}
