// Package access decides who may invoke and who may see a chat command.
//
// Every slash command dispatch passes through the Resolver before its handler
// runs. The Resolver consults, in order:
//   - the retired command set (always denies, even for admins)
//   - the super admin identity list, with one pinned command that only the
//     designated primary admin may run
//   - the super admin role id (no pinned command exception, the asymmetry
//     with the identity check is deliberate)
//   - the public command set (built-in list unioned with the persisted one)
//   - the guild policy table (when an entry exists it governs the command)
//   - the static role grant table (a role maps to "*" or a command list)
//
// Anything that falls through every layer is denied with a missing role
// message. Visibility is a separate, looser question answered by Visible:
// it only controls whether a command shows up in listings, never whether it
// executes.
//
// # Policies
//
// A guild scoped per-command policy is a tagged value: Unrestricted (anyone
// may invoke the command) or restricted to an explicit role set. The zero
// Policy is Unrestricted, and RestrictedTo with no roles collapses to
// Unrestricted, so there is no distinct "empty restriction" state. A policy
// entry overrides the static grant table for its command; commands an admin
// never touched have no entry and stay governed by the static grants.
//
// # Persistence
//
// The Store keeps the mutable tables (per guild policies, forced visible
// commands, dynamic public commands) and serializes them as two JSON
// snapshot files, fully rewritten on every mutation under a single mutex.
// A write failure keeps the in-memory tables authoritative and reports
// failure to the caller; a missing or malformed file on load recovers to
// empty tables, raises the store failure counter and rewrites a fresh
// snapshot.
//
// Example usage:
//
//	store, err := access.Open(cfg.Access.DataDir)
//	resolver := access.NewResolver(rules, store)
//
//	decision := resolver.Resolve("warn", callerID, roleIDs, guildID)
//	if !decision.Allowed {
//	    reply(decision.Message)
//	}
package access
