package access

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	// PermissionsFile is the snapshot holding per guild policies and forced visible commands.
	PermissionsFile = "permissions.json"

	// PublicCommandsFile is the snapshot holding the dynamic public command list.
	PublicCommandsFile = "public_commands.json"

	dirPerm  = 0o750
	filePerm = 0o640
)

// Store holds the mutable authorization tables and persists them as two
// JSON snapshot files, fully rewritten on every mutation. One mutex guards
// each read-modify-persist cycle so concurrent admin edits can not lose
// updates.
type Store struct {
	mu  sync.Mutex
	dir string

	// guild id -> command name -> policy
	policies map[string]map[string]Policy

	// guild id -> set of forced visible command names
	visible map[string]map[string]struct{}

	// dynamic public command names
	public map[string]struct{}
}

// permissionsSnapshot is the wire format of PermissionsFile. An unrestricted
// policy serializes as an empty role list to keep the snapshot layout stable.
type permissionsSnapshot struct {
	Permissions     map[string]map[string][]string `json:"permissions"`
	VisibleCommands map[string][]string            `json:"visible_commands"`
}

// publicSnapshot is the wire format of PublicCommandsFile.
type publicSnapshot struct {
	PublicCommands []string `json:"public_commands"`
}

// Open loads the snapshots from dir, recovering to empty tables when a file
// is missing or malformed. Recovery is loud: it logs, raises the store
// failure counter and immediately rewrites a fresh valid snapshot.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, ErrStoreDirEmpty
	}

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, errors.Wrap(err, "failed to create access store directory")
	}

	s := &Store{
		dir:      dir,
		policies: make(map[string]map[string]Policy),
		visible:  make(map[string]map[string]struct{}),
		public:   make(map[string]struct{}),
	}

	s.loadPermissions()
	s.loadPublic()

	return s, nil
}

// loadPermissions reads PermissionsFile into the policy table. The forced
// visible table always starts empty; it is rebuilt per guild on startup.
func (s *Store) loadPermissions() {
	path := filepath.Join(s.dir, PermissionsFile)

	raw, err := os.ReadFile(path) //nolint:gosec // path is operator supplied config
	if os.IsNotExist(err) {
		// first start, write an empty snapshot so the file exists
		if err = s.persistPermissions(); err != nil {
			log.Error().Err(err).Str("path", path).Msg("can't write initial permissions snapshot")
		}

		return
	}

	if err != nil {
		s.recoverPermissions(path, err)
		return
	}

	var snap permissionsSnapshot
	if err = json.Unmarshal(raw, &snap); err != nil {
		s.recoverPermissions(path, err)
		return
	}

	for guildID, commands := range snap.Permissions {
		if guildID == "" {
			continue
		}

		table := make(map[string]Policy, len(commands))
		for command, roleIDs := range commands {
			table[Normalize(command)] = RestrictedTo(roleIDs)
		}

		s.policies[guildID] = table
	}
}

// loadPublic reads PublicCommandsFile into the dynamic public set.
func (s *Store) loadPublic() {
	path := filepath.Join(s.dir, PublicCommandsFile)

	raw, err := os.ReadFile(path) //nolint:gosec // path is operator supplied config
	if os.IsNotExist(err) {
		if err = s.persistPublic(); err != nil {
			log.Error().Err(err).Str("path", path).Msg("can't write initial public command snapshot")
		}

		return
	}

	if err != nil {
		s.recoverPublic(path, err)
		return
	}

	var snap publicSnapshot
	if err = json.Unmarshal(raw, &snap); err != nil {
		s.recoverPublic(path, err)
		return
	}

	for _, command := range snap.PublicCommands {
		if normalized := Normalize(command); normalized != "" {
			s.public[normalized] = struct{}{}
		}
	}
}

// recoverPermissions falls back to an empty policy table after a failed read.
// The empty table defaults open, so this is alarmed, not silent.
func (s *Store) recoverPermissions(path string, cause error) {
	storeFailures.WithLabelValues("read").Inc()
	log.Error().Err(cause).Str("path", path).
		Msg("permission snapshot unreadable, recovering to an empty table (defaults open)")

	s.policies = make(map[string]map[string]Policy)
	s.visible = make(map[string]map[string]struct{})

	if err := s.persistPermissions(); err != nil {
		log.Error().Err(err).Str("path", path).Msg("can't rewrite permissions snapshot after recovery")
	}
}

// recoverPublic falls back to an empty public set after a failed read.
func (s *Store) recoverPublic(path string, cause error) {
	storeFailures.WithLabelValues("read").Inc()
	log.Error().Err(cause).Str("path", path).
		Msg("public command snapshot unreadable, recovering to an empty list")

	s.public = make(map[string]struct{})

	if err := s.persistPublic(); err != nil {
		log.Error().Err(err).Str("path", path).Msg("can't rewrite public command snapshot after recovery")
	}
}

// persistPermissions rewrites PermissionsFile from the in-memory tables.
// Callers must hold the mutex (or be inside Open before the store escapes).
func (s *Store) persistPermissions() error {
	snap := permissionsSnapshot{
		Permissions:     make(map[string]map[string][]string, len(s.policies)),
		VisibleCommands: make(map[string][]string, len(s.visible)),
	}

	for guildID, table := range s.policies {
		commands := make(map[string][]string, len(table))
		for command, policy := range table {
			roles := policy.Roles()
			if roles == nil {
				roles = []string{}
			}

			commands[command] = roles
		}

		snap.Permissions[guildID] = commands
	}

	for guildID, set := range s.visible {
		commands := make([]string, 0, len(set))
		for command := range set {
			commands = append(commands, command)
		}

		sort.Strings(commands)
		snap.VisibleCommands[guildID] = commands
	}

	return s.writeSnapshot(PermissionsFile, snap)
}

// persistPublic rewrites PublicCommandsFile from the in-memory set.
func (s *Store) persistPublic() error {
	snap := publicSnapshot{PublicCommands: make([]string, 0, len(s.public))}
	for command := range s.public {
		snap.PublicCommands = append(snap.PublicCommands, command)
	}

	sort.Strings(snap.PublicCommands)

	return s.writeSnapshot(PublicCommandsFile, snap)
}

// writeSnapshot serializes v and atomically replaces the named snapshot file.
func (s *Store) writeSnapshot(name string, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		storeFailures.WithLabelValues("write").Inc()
		return errors.Wrapf(err, "failed to encode %s", name)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"

	if err = os.WriteFile(tmp, raw, filePerm); err != nil {
		storeFailures.WithLabelValues("write").Inc()
		return errors.Wrapf(err, "failed to write %s", name)
	}

	if err = os.Rename(tmp, path); err != nil {
		storeFailures.WithLabelValues("write").Inc()
		return errors.Wrapf(err, "failed to replace %s", name)
	}

	return nil
}

// Grant adds a role to the allowed set of a guild command.
func (s *Store) Grant(guildID, command, roleID string) (bool, string) {
	command = Normalize(command)
	if guildID == "" || command == "" || roleID == "" {
		return false, msgInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	policy := s.policyLocked(guildID, command)
	if policy.Contains(roleID) {
		return false, fmt.Sprintf("⚠️ Role <@&%s> already has permission to use /%s", roleID, command)
	}

	s.setPolicyLocked(guildID, command, policy.withRole(roleID))

	if err := s.persistPermissions(); err != nil {
		s.logPersistFailure("grant", command, err)
		return false, msgPersistFailure
	}

	return true, fmt.Sprintf("✅ Role <@&%s> can now use /%s", roleID, command)
}

// Revoke removes a role from the allowed set of a guild command.
func (s *Store) Revoke(guildID, command, roleID string) (bool, string) {
	command = Normalize(command)
	if guildID == "" || command == "" || roleID == "" {
		return false, msgInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	policy, ok := s.lookupLocked(guildID, command)
	if !ok || !policy.Contains(roleID) {
		return false, fmt.Sprintf("⚠️ Role <@&%s> doesn't have specific permission for /%s", roleID, command)
	}

	s.setPolicyLocked(guildID, command, policy.withoutRole(roleID))

	if err := s.persistPermissions(); err != nil {
		s.logPersistFailure("revoke", command, err)
		return false, msgPersistFailure
	}

	return true, fmt.Sprintf("✅ Removed permission for role <@&%s> to use /%s", roleID, command)
}

// Clear removes every role restriction from a guild command.
func (s *Store) Clear(guildID, command string) (bool, string) {
	command = Normalize(command)
	if guildID == "" || command == "" {
		return false, msgInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.setPolicyLocked(guildID, command, Unrestricted())

	if err := s.persistPermissions(); err != nil {
		s.logPersistFailure("clear", command, err)
		return false, msgPersistFailure
	}

	return true, fmt.Sprintf("✅ Cleared all role restrictions for /%s. Now available to everyone.", command)
}

// Replace overwrites the allowed role set of a guild command wholesale.
// An empty role list is equivalent to Clear.
func (s *Store) Replace(guildID, command string, roleIDs []string) (bool, string) {
	command = Normalize(command)
	if guildID == "" || command == "" {
		return false, msgInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	policy := RestrictedTo(roleIDs)
	s.setPolicyLocked(guildID, command, policy)

	if err := s.persistPermissions(); err != nil {
		s.logPersistFailure("replace", command, err)
		return false, msgPersistFailure
	}

	if policy.IsUnrestricted() {
		return true, fmt.Sprintf("✅ Removed all role restrictions for /%s. Now available to everyone.", command)
	}

	mentions := make([]string, 0, len(policy.Roles()))
	for _, roleID := range policy.Roles() {
		mentions = append(mentions, "<@&"+roleID+">")
	}

	return true, fmt.Sprintf("✅ Set permissions for /%s. Allowed roles: %s",
		command, strings.Join(mentions, ", "))
}

// SetPublic adds a command to the persisted public command list.
func (s *Store) SetPublic(command string) (bool, string) {
	command = Normalize(command)
	if command == "" {
		return false, msgInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.public[command]; ok {
		return false, fmt.Sprintf("⚠️ Command `%s` is already set as public.", command)
	}

	s.public[command] = struct{}{}

	if err := s.persistPublic(); err != nil {
		s.logPersistFailure("setpublic", command, err)
		return false, msgPersistFailure
	}

	return true, fmt.Sprintf("✅ Command `%s` is now publicly available.", command)
}

// UnsetPublic removes a command from the persisted public command list.
func (s *Store) UnsetPublic(command string) (bool, string) {
	command = Normalize(command)
	if command == "" {
		return false, msgInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.public[command]; !ok {
		return false, fmt.Sprintf("⚠️ Command `%s` is not in the public commands list.", command)
	}

	delete(s.public, command)

	if err := s.persistPublic(); err != nil {
		s.logPersistFailure("unsetpublic", command, err)
		return false, msgPersistFailure
	}

	return true, fmt.Sprintf("✅ Command `%s` is no longer publicly available.", command)
}

// SetVisible forces a command visible in one guild regardless of its policy.
func (s *Store) SetVisible(guildID, command string) (bool, string) {
	command = Normalize(command)
	if guildID == "" || command == "" {
		return false, msgInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.visible[guildID]
	if !ok {
		set = make(map[string]struct{})
		s.visible[guildID] = set
	}

	if _, ok = set[command]; ok {
		return false, fmt.Sprintf("⚠️ Command /%s is already public.", command)
	}

	set[command] = struct{}{}

	if err := s.persistPermissions(); err != nil {
		s.logPersistFailure("setvisible", command, err)
		return false, msgPersistFailure
	}

	return true, fmt.Sprintf("✅ Command /%s is now public and visible to everyone.", command)
}

// UnsetVisible removes a command from a guild's forced visible set.
func (s *Store) UnsetVisible(guildID, command string) (bool, string) {
	command = Normalize(command)
	if guildID == "" || command == "" {
		return false, msgInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.visible[guildID]
	if !ok {
		return false, fmt.Sprintf("⚠️ Command /%s is not set as public.", command)
	}

	if _, ok = set[command]; !ok {
		return false, fmt.Sprintf("⚠️ Command /%s is not set as public.", command)
	}

	delete(set, command)

	if err := s.persistPermissions(); err != nil {
		s.logPersistFailure("unsetvisible", command, err)
		return false, msgPersistFailure
	}

	if policy, exists := s.lookupLocked(guildID, command); exists && !policy.IsUnrestricted() {
		return true, fmt.Sprintf("✅ Command /%s is no longer public. Only specific roles can see and use it.", command)
	}

	return true, fmt.Sprintf("✅ Command /%s is no longer public, but still visible to everyone (no role restrictions).", command)
}

// ResetVisible wipes the forced visible sets and recreates an empty one per
// known guild. Called once per startup after the gateway reports its guilds.
func (s *Store) ResetVisible(guildIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.visible = make(map[string]map[string]struct{}, len(guildIDs))
	for _, guildID := range guildIDs {
		if guildID != "" {
			s.visible[guildID] = make(map[string]struct{})
		}
	}

	return s.persistPermissions()
}

// PolicyFor returns the stored policy of a guild command and whether an
// entry exists at all. The distinction matters: an Unrestricted entry
// explicitly admits everyone, no entry leaves the command to the static
// role grants.
func (s *Store) PolicyFor(guildID, command string) (Policy, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lookupLocked(guildID, Normalize(command))
}

// GuildPolicies returns a copy of the full policy table of one guild.
func (s *Store) GuildPolicies(guildID string) map[string]Policy {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, ok := s.policies[guildID]
	if !ok {
		return map[string]Policy{}
	}

	out := make(map[string]Policy, len(table))
	for command, policy := range table {
		out[command] = policy
	}

	return out
}

// IsPublic reports whether a command is in the persisted public list.
func (s *Store) IsPublic(command string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.public[Normalize(command)]

	return ok
}

// PublicCommands returns the persisted public commands sorted.
func (s *Store) PublicCommands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.public))
	for command := range s.public {
		out = append(out, command)
	}

	sort.Strings(out)

	return out
}

// IsForcedVisible reports whether a guild forces the command visible.
func (s *Store) IsForcedVisible(guildID, command string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.visible[guildID]
	if !ok {
		return false
	}

	_, ok = set[Normalize(command)]

	return ok
}

// ForcedVisible returns the commands a guild forces visible, sorted.
func (s *Store) ForcedVisible(guildID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.visible[guildID]
	if !ok {
		return []string{}
	}

	out := make([]string, 0, len(set))
	for command := range set {
		out = append(out, command)
	}

	sort.Strings(out)

	return out
}

func (s *Store) policyLocked(guildID, command string) Policy {
	policy, _ := s.lookupLocked(guildID, command)
	return policy
}

func (s *Store) lookupLocked(guildID, command string) (Policy, bool) {
	table, ok := s.policies[guildID]
	if !ok {
		return Unrestricted(), false
	}

	policy, ok := table[command]
	if !ok {
		return Unrestricted(), false
	}

	return policy, true
}

func (s *Store) setPolicyLocked(guildID, command string, policy Policy) {
	table, ok := s.policies[guildID]
	if !ok {
		table = make(map[string]Policy)
		s.policies[guildID] = table
	}

	table[command] = policy
}

// logPersistFailure logs a failed snapshot write. The in-memory table stays
// authoritative until the next successful write.
func (s *Store) logPersistFailure(op, command string, err error) {
	log.Error().Err(err).
		Str("op", op).
		Str("command", command).
		Msg("permission snapshot write failed, in-memory state kept")
}
