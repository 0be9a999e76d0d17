package access

import (
	"sort"
	"strings"
)

// Policy is the tagged per-command restriction inside one guild.
// The zero value is Unrestricted. A restricted policy carries the
// explicit set of role ids allowed to invoke the command.
type Policy struct {
	restricted bool
	roles      map[string]struct{}
}

// Unrestricted returns the policy allowing every caller.
func Unrestricted() Policy {
	return Policy{}
}

// RestrictedTo returns a policy restricted to the given role ids.
// An empty or nil role list collapses to Unrestricted so there is no
// separate "restricted to nobody" state.
func RestrictedTo(roleIDs []string) Policy {
	if len(roleIDs) == 0 {
		return Policy{}
	}

	roles := make(map[string]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		if id == "" {
			continue
		}

		roles[id] = struct{}{}
	}

	if len(roles) == 0 {
		return Policy{}
	}

	return Policy{restricted: true, roles: roles}
}

// IsUnrestricted reports whether the policy allows every caller.
func (p Policy) IsUnrestricted() bool {
	return !p.restricted
}

// Allows reports whether a caller holding the given roles passes the policy.
func (p Policy) Allows(roleIDs []string) bool {
	if !p.restricted {
		return true
	}

	for _, id := range roleIDs {
		if _, ok := p.roles[id]; ok {
			return true
		}
	}

	return false
}

// Contains reports whether the policy explicitly lists the role.
func (p Policy) Contains(roleID string) bool {
	_, ok := p.roles[roleID]
	return ok
}

// Roles returns the restricted role ids sorted for stable output.
// It returns nil for an unrestricted policy.
func (p Policy) Roles() []string {
	if !p.restricted {
		return nil
	}

	out := make([]string, 0, len(p.roles))
	for id := range p.roles {
		out = append(out, id)
	}

	sort.Strings(out)

	return out
}

// withRole returns a copy of the policy with the role added.
func (p Policy) withRole(roleID string) Policy {
	roles := make(map[string]struct{}, len(p.roles)+1)
	for id := range p.roles {
		roles[id] = struct{}{}
	}

	roles[roleID] = struct{}{}

	return Policy{restricted: true, roles: roles}
}

// withoutRole returns a copy of the policy with the role removed.
// Removing the last role collapses to Unrestricted: an empty role set
// means allow all, never allow nobody.
func (p Policy) withoutRole(roleID string) Policy {
	roles := make([]string, 0, len(p.roles))

	for id := range p.roles {
		if id != roleID {
			roles = append(roles, id)
		}
	}

	return RestrictedTo(roles)
}

// Normalize brings a raw command name into canonical form:
// lower case with a leading slash stripped.
func Normalize(command string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(command)), "/")
}
