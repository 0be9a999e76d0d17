package access

import (
	"fmt"
)

// Reason classifies a resolver outcome for logging and metrics.
type Reason string

// Resolver outcome reasons.
const (
	ReasonAllowed       Reason = "allowed"
	ReasonRetired       Reason = "retired"
	ReasonPinnedCommand Reason = "pinned_command"
	ReasonRestricted    Reason = "restricted"
	ReasonMissingRole   Reason = "missing_role"
)

// User facing reply texts. The mutation messages live next to the
// operations in store.go, these cover denials and invalid input.
const (
	msgRetired        = "❌ This command has been removed."
	msgMissingRole    = "❌ You don't have required role to use this command."
	msgInvalidInput   = "⚠️ Guild, command and role must not be empty."
	msgPersistFailure = "⚠️ The change could not be saved. It stays active until the next restart."
)

// Decision is the outcome of one resolve call. Message is only set on deny
// and is safe to show to the caller verbatim.
type Decision struct {
	Allowed bool
	Reason  Reason
	Message string
}

// Rules carries the fixed authorization layers, loaded once at startup.
// Nothing in here mutates at runtime; the mutable tables live in the Store.
type Rules struct {
	SuperAdminIDs    []string
	SuperAdminRoleID string
	PinnedCommand    string
	PinnedAdminID    string
	RetiredCommands  []string
	PublicCommands   []string
	RoleGrants       map[string][]string
}

// Resolver answers may-invoke and may-see questions for chat commands.
type Resolver struct {
	superAdmins   map[string]struct{}
	superRole     string
	pinnedCommand string
	pinnedAdmin   string
	retired       map[string]struct{}
	public        map[string]struct{}

	// role id -> explicit command set; roles with a "*" grant
	// are kept separately.
	roleGrants map[string]map[string]struct{}
	wildcards  map[string]struct{}

	store *Store
}

// NewResolver builds a Resolver from the fixed rules and the mutable store.
// Command names inside the rules are normalized once here.
func NewResolver(rules Rules, store *Store) *Resolver {
	r := &Resolver{
		superAdmins:   make(map[string]struct{}, len(rules.SuperAdminIDs)),
		superRole:     rules.SuperAdminRoleID,
		pinnedCommand: Normalize(rules.PinnedCommand),
		pinnedAdmin:   rules.PinnedAdminID,
		retired:       make(map[string]struct{}, len(rules.RetiredCommands)),
		public:        make(map[string]struct{}, len(rules.PublicCommands)),
		roleGrants:    make(map[string]map[string]struct{}, len(rules.RoleGrants)),
		wildcards:     make(map[string]struct{}),
		store:         store,
	}

	for _, id := range rules.SuperAdminIDs {
		if id != "" {
			r.superAdmins[id] = struct{}{}
		}
	}

	for _, command := range rules.RetiredCommands {
		if normalized := Normalize(command); normalized != "" {
			r.retired[normalized] = struct{}{}
		}
	}

	for _, command := range rules.PublicCommands {
		if normalized := Normalize(command); normalized != "" {
			r.public[normalized] = struct{}{}
		}
	}

	for roleID, grants := range rules.RoleGrants {
		if roleID == "" {
			continue
		}

		commands := make(map[string]struct{}, len(grants))

		for _, grant := range grants {
			if grant == "*" {
				r.wildcards[roleID] = struct{}{}
				continue
			}

			if normalized := Normalize(grant); normalized != "" {
				commands[normalized] = struct{}{}
			}
		}

		if len(commands) > 0 {
			r.roleGrants[roleID] = commands
		}
	}

	return r
}

// Resolve decides whether the caller may invoke the command. The layers are
// checked in fixed order and the first match wins:
// retired, super admin identity (with the pinned command exception),
// super admin role, public commands, the guild policy table, static
// role grants.
// A guild policy entry governs the command outright: Unrestricted admits
// everyone, a restricted entry admits only its members and denies the
// rest without consulting the static grants. Commands without an entry
// fall through to the static table.
func (r *Resolver) Resolve(command, callerID string, roleIDs []string, guildID string) Decision {
	command = Normalize(command)

	if _, ok := r.retired[command]; ok {
		return r.deny(ReasonRetired, msgRetired)
	}

	if _, ok := r.superAdmins[callerID]; ok {
		if r.pinnedCommand != "" && command == r.pinnedCommand && callerID != r.pinnedAdmin {
			return r.deny(ReasonPinnedCommand,
				fmt.Sprintf("❌ Only the primary admin can use the /%s command.", r.pinnedCommand))
		}

		return r.allow()
	}

	// The pinned command exception deliberately does not apply to the
	// role check: holding the super admin role passes everything.
	if r.superRole != "" && containsString(roleIDs, r.superRole) {
		return r.allow()
	}

	if r.isPublic(command) {
		return r.allow()
	}

	if guildID != "" {
		if policy, ok := r.store.PolicyFor(guildID, command); ok {
			if policy.IsUnrestricted() || policy.Allows(roleIDs) {
				return r.allow()
			}

			return r.deny(ReasonRestricted, msgMissingRole)
		}
	}

	for _, roleID := range roleIDs {
		if _, ok := r.wildcards[roleID]; ok {
			return r.allow()
		}

		if commands, ok := r.roleGrants[roleID]; ok {
			if _, ok = commands[command]; ok {
				return r.allow()
			}
		}
	}

	return r.deny(ReasonMissingRole, msgMissingRole)
}

// Visible reports whether the command should appear in listings for this
// caller. It is deliberately looser than Resolve: default open when no
// policy entry exists, forced visible overrides, and the admin capability
// flag all show the command even when invoking it would be denied.
func (r *Resolver) Visible(command, guildID string, roleIDs []string, isAdmin bool) bool {
	command = Normalize(command)

	if isAdmin {
		return true
	}

	if r.store.IsForcedVisible(guildID, command) {
		return true
	}

	policy, ok := r.store.PolicyFor(guildID, command)
	if !ok || policy.IsUnrestricted() {
		return true
	}

	return policy.Allows(roleIDs)
}

// IsPublic reports whether the command is public, either built-in or via
// the persisted dynamic list.
func (r *Resolver) IsPublic(command string) bool {
	return r.isPublic(Normalize(command))
}

// IsSuperAdmin reports whether the identity belongs to the configured
// super admin list.
func (r *Resolver) IsSuperAdmin(callerID string) bool {
	_, ok := r.superAdmins[callerID]
	return ok
}

// HasAdminAccess reports whether the identity or one of the roles grants
// the unconditional admin layer. Admin surfaces gate on this.
func (r *Resolver) HasAdminAccess(callerID string, roleIDs []string) bool {
	if r.IsSuperAdmin(callerID) {
		return true
	}

	return r.superRole != "" && containsString(roleIDs, r.superRole)
}

// Store exposes the mutable table store backing this resolver.
func (r *Resolver) Store() *Store {
	return r.store
}

func (r *Resolver) isPublic(command string) bool {
	if _, ok := r.public[command]; ok {
		return true
	}

	return r.store.IsPublic(command)
}

func (r *Resolver) allow() Decision {
	decisions.WithLabelValues(string(ReasonAllowed)).Inc()

	return Decision{Allowed: true, Reason: ReasonAllowed}
}

func (r *Resolver) deny(reason Reason, message string) Decision {
	decisions.WithLabelValues(string(reason)).Inc()

	return Decision{Allowed: false, Reason: reason, Message: message}
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}

	return false
}
