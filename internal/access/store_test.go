package access

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupStore opens a fresh store in a temporary directory.
func setupStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(t.TempDir())
	require.NoError(t, err, "failed to open access store")

	return store
}

func TestOpen(t *testing.T) {
	t.Run("empty directory", func(t *testing.T) {
		store, err := Open("")

		require.ErrorIs(t, err, ErrStoreDirEmpty)
		assert.Nil(t, store)
	})

	t.Run("fresh directory writes initial snapshots", func(t *testing.T) {
		dir := t.TempDir()

		_, err := Open(dir)
		require.NoError(t, err)

		raw, err := os.ReadFile(filepath.Join(dir, PermissionsFile))
		require.NoError(t, err, "initial permissions snapshot missing")

		var perms permissionsSnapshot
		require.NoError(t, json.Unmarshal(raw, &perms))
		assert.Empty(t, perms.Permissions)
		assert.Empty(t, perms.VisibleCommands)

		raw, err = os.ReadFile(filepath.Join(dir, PublicCommandsFile))
		require.NoError(t, err, "initial public command snapshot missing")

		var public publicSnapshot
		require.NoError(t, json.Unmarshal(raw, &public))
		assert.Empty(t, public.PublicCommands)
	})

	t.Run("nested directory is created", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data", "access")

		_, err := Open(dir)
		require.NoError(t, err)

		_, err = os.Stat(filepath.Join(dir, PermissionsFile))
		assert.NoError(t, err)
	})
}

func TestGrant(t *testing.T) {
	testCases := []struct {
		name            string
		guildID         string
		command         string
		roleID          string
		pregrant        bool
		expectedOK      bool
		expectedMessage string
	}{
		{
			name:            "empty guild",
			guildID:         "",
			command:         "warn",
			roleID:          "100",
			expectedOK:      false,
			expectedMessage: msgInvalidInput,
		},
		{
			name:            "empty command",
			guildID:         "g1",
			command:         "",
			roleID:          "100",
			expectedOK:      false,
			expectedMessage: msgInvalidInput,
		},
		{
			name:            "empty role",
			guildID:         "g1",
			command:         "warn",
			roleID:          "",
			expectedOK:      false,
			expectedMessage: msgInvalidInput,
		},
		{
			name:            "first grant",
			guildID:         "g1",
			command:         "warn",
			roleID:          "100",
			expectedOK:      true,
			expectedMessage: "✅ Role <@&100> can now use /warn",
		},
		{
			name:            "duplicate grant",
			guildID:         "g1",
			command:         "warn",
			roleID:          "100",
			pregrant:        true,
			expectedOK:      false,
			expectedMessage: "⚠️ Role <@&100> already has permission to use /warn",
		},
		{
			name:            "command is normalized",
			guildID:         "g1",
			command:         "/Warn",
			roleID:          "100",
			expectedOK:      true,
			expectedMessage: "✅ Role <@&100> can now use /warn",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := setupStore(t)

			if tc.pregrant {
				ok, _ := store.Grant(tc.guildID, tc.command, tc.roleID)
				require.True(t, ok)
			}

			ok, message := store.Grant(tc.guildID, tc.command, tc.roleID)

			assert.Equal(t, tc.expectedOK, ok)
			assert.Equal(t, tc.expectedMessage, message)

			if tc.expectedOK {
				policy, exists := store.PolicyFor(tc.guildID, tc.command)
				require.True(t, exists)
				assert.True(t, policy.Contains(tc.roleID))
			}
		})
	}
}

func TestRevoke(t *testing.T) {
	t.Run("no entry for command", func(t *testing.T) {
		store := setupStore(t)

		ok, message := store.Revoke("g1", "warn", "100")

		assert.False(t, ok)
		assert.Equal(t, "⚠️ Role <@&100> doesn't have specific permission for /warn", message)
	})

	t.Run("role not in entry", func(t *testing.T) {
		store := setupStore(t)
		ok, _ := store.Grant("g1", "warn", "100")
		require.True(t, ok)

		ok, message := store.Revoke("g1", "warn", "200")

		assert.False(t, ok)
		assert.Equal(t, "⚠️ Role <@&200> doesn't have specific permission for /warn", message)
	})

	t.Run("successful revoke", func(t *testing.T) {
		store := setupStore(t)
		ok, _ := store.Grant("g1", "warn", "100")
		require.True(t, ok)
		ok, _ = store.Grant("g1", "warn", "200")
		require.True(t, ok)

		ok, message := store.Revoke("g1", "warn", "100")

		assert.True(t, ok)
		assert.Equal(t, "✅ Removed permission for role <@&100> to use /warn", message)

		policy, exists := store.PolicyFor("g1", "warn")
		require.True(t, exists)
		assert.Equal(t, []string{"200"}, policy.Roles())
	})

	t.Run("revoking the last role leaves an unrestricted entry", func(t *testing.T) {
		store := setupStore(t)
		ok, _ := store.Grant("g1", "warn", "100")
		require.True(t, ok)

		ok, _ = store.Revoke("g1", "warn", "100")
		require.True(t, ok)

		policy, exists := store.PolicyFor("g1", "warn")
		assert.True(t, exists)
		assert.True(t, policy.IsUnrestricted())
	})
}

func TestClear(t *testing.T) {
	store := setupStore(t)

	ok, _ := store.Grant("g1", "warn", "100")
	require.True(t, ok)
	ok, _ = store.Grant("g1", "warn", "200")
	require.True(t, ok)

	ok, message := store.Clear("g1", "warn")

	assert.True(t, ok)
	assert.Equal(t, "✅ Cleared all role restrictions for /warn. Now available to everyone.", message)

	policy, exists := store.PolicyFor("g1", "warn")
	assert.True(t, exists)
	assert.True(t, policy.IsUnrestricted())

	ok, message = store.Clear("", "warn")
	assert.False(t, ok)
	assert.Equal(t, msgInvalidInput, message)
}

func TestReplace(t *testing.T) {
	t.Run("overwrites the role set wholesale", func(t *testing.T) {
		store := setupStore(t)
		ok, _ := store.Grant("g1", "warn", "999")
		require.True(t, ok)

		ok, message := store.Replace("g1", "warn", []string{"200", "100"})

		assert.True(t, ok)
		assert.Equal(t, "✅ Set permissions for /warn. Allowed roles: <@&100>, <@&200>", message)

		policy, exists := store.PolicyFor("g1", "warn")
		require.True(t, exists)
		assert.Equal(t, []string{"100", "200"}, policy.Roles())
	})

	t.Run("empty role list clears the restriction", func(t *testing.T) {
		store := setupStore(t)
		ok, _ := store.Grant("g1", "warn", "100")
		require.True(t, ok)

		ok, message := store.Replace("g1", "warn", nil)

		assert.True(t, ok)
		assert.Equal(t, "✅ Removed all role restrictions for /warn. Now available to everyone.", message)

		policy, exists := store.PolicyFor("g1", "warn")
		assert.True(t, exists)
		assert.True(t, policy.IsUnrestricted())
	})
}

func TestSetUnsetPublic(t *testing.T) {
	store := setupStore(t)

	assert.False(t, store.IsPublic("gamevote"))

	ok, message := store.SetPublic("gamevote")
	assert.True(t, ok)
	assert.Equal(t, "✅ Command `gamevote` is now publicly available.", message)
	assert.True(t, store.IsPublic("gamevote"))

	ok, message = store.SetPublic("gamevote")
	assert.False(t, ok)
	assert.Equal(t, "⚠️ Command `gamevote` is already set as public.", message)

	ok, message = store.UnsetPublic("gamevote")
	assert.True(t, ok)
	assert.Equal(t, "✅ Command `gamevote` is no longer publicly available.", message)
	assert.False(t, store.IsPublic("gamevote"))

	ok, message = store.UnsetPublic("gamevote")
	assert.False(t, ok)
	assert.Equal(t, "⚠️ Command `gamevote` is not in the public commands list.", message)
}

func TestPublicCommands(t *testing.T) {
	store := setupStore(t)

	for _, command := range []string{"gamevote", "activitystart", "lb"} {
		ok, _ := store.SetPublic(command)
		require.True(t, ok)
	}

	assert.Equal(t, []string{"activitystart", "gamevote", "lb"}, store.PublicCommands())
}

func TestSetUnsetVisible(t *testing.T) {
	store := setupStore(t)

	assert.False(t, store.IsForcedVisible("g1", "warn"))

	ok, message := store.SetVisible("g1", "warn")
	assert.True(t, ok)
	assert.Equal(t, "✅ Command /warn is now public and visible to everyone.", message)
	assert.True(t, store.IsForcedVisible("g1", "warn"))
	assert.False(t, store.IsForcedVisible("g2", "warn"))

	ok, message = store.SetVisible("g1", "warn")
	assert.False(t, ok)
	assert.Equal(t, "⚠️ Command /warn is already public.", message)

	ok, message = store.UnsetVisible("g1", "warn")
	assert.True(t, ok)
	assert.Equal(t, "✅ Command /warn is no longer public, but still visible to everyone (no role restrictions).", message)
	assert.False(t, store.IsForcedVisible("g1", "warn"))

	ok, message = store.UnsetVisible("g1", "warn")
	assert.False(t, ok)
	assert.Equal(t, "⚠️ Command /warn is not set as public.", message)
}

func TestUnsetVisibleRestrictedCommand(t *testing.T) {
	store := setupStore(t)

	ok, _ := store.Grant("g1", "warn", "100")
	require.True(t, ok)
	ok, _ = store.SetVisible("g1", "warn")
	require.True(t, ok)

	ok, message := store.UnsetVisible("g1", "warn")

	assert.True(t, ok)
	assert.Equal(t, "✅ Command /warn is no longer public. Only specific roles can see and use it.", message)
}

func TestResetVisible(t *testing.T) {
	store := setupStore(t)

	ok, _ := store.SetVisible("g1", "warn")
	require.True(t, ok)
	ok, _ = store.SetVisible("g2", "kick")
	require.True(t, ok)

	require.NoError(t, store.ResetVisible([]string{"g1", "g3"}))

	assert.False(t, store.IsForcedVisible("g1", "warn"))
	assert.False(t, store.IsForcedVisible("g2", "kick"))
	assert.False(t, store.IsForcedVisible("g3", "anything"))
}

// TestPersistenceRoundTrip reopens a store from the same directory and
// expects an identical policy mapping however the entries were inserted.
func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir)
	require.NoError(t, err)

	mutations := []struct {
		guildID string
		command string
		roleID  string
	}{
		{"g1", "warn", "200"},
		{"g2", "gstart", "300"},
		{"g1", "warn", "100"},
		{"g1", "kick", "100"},
		{"g2", "gstart", "100"},
	}

	for _, m := range mutations {
		ok, message := store.Grant(m.guildID, m.command, m.roleID)
		require.True(t, ok, message)
	}

	ok, _ := store.Clear("g1", "ban")
	require.True(t, ok)
	ok, _ = store.SetPublic("lb")
	require.True(t, ok)

	reopened, err := Open(dir)
	require.NoError(t, err)

	assert.Equal(t, store.GuildPolicies("g1"), reopened.GuildPolicies("g1"))
	assert.Equal(t, store.GuildPolicies("g2"), reopened.GuildPolicies("g2"))
	assert.Equal(t, []string{"100", "200"}, reopened.GuildPolicies("g1")["warn"].Roles())

	policy, exists := reopened.PolicyFor("g1", "ban")
	assert.True(t, exists)
	assert.True(t, policy.IsUnrestricted())

	assert.True(t, reopened.IsPublic("lb"))
}

// TestVisibleNotReloaded pins the startup reset behavior: forced visible
// sets persisted by a previous run are never read back.
func TestVisibleNotReloaded(t *testing.T) {
	dir := t.TempDir()

	store, err := Open(dir)
	require.NoError(t, err)

	ok, _ := store.Grant("g1", "warn", "100")
	require.True(t, ok)
	ok, _ = store.SetVisible("g1", "warn")
	require.True(t, ok)

	reopened, err := Open(dir)
	require.NoError(t, err)

	policy, exists := reopened.PolicyFor("g1", "warn")
	require.True(t, exists)
	assert.Equal(t, []string{"100"}, policy.Roles())

	assert.False(t, reopened.IsForcedVisible("g1", "warn"))
}

func TestLoadRecovery(t *testing.T) {
	t.Run("corrupt permissions snapshot", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, PermissionsFile)
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o640))

		store, err := Open(dir)
		require.NoError(t, err)

		assert.Empty(t, store.GuildPolicies("g1"))

		// Recovery rewrites a fresh valid snapshot in place.
		raw, err := os.ReadFile(path)
		require.NoError(t, err)

		var snap permissionsSnapshot
		require.NoError(t, json.Unmarshal(raw, &snap))
		assert.Empty(t, snap.Permissions)
	})

	t.Run("corrupt public snapshot", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, PublicCommandsFile)
		require.NoError(t, os.WriteFile(path, []byte("[]"), 0o640))

		store, err := Open(dir)
		require.NoError(t, err)

		assert.Empty(t, store.PublicCommands())

		raw, err := os.ReadFile(path)
		require.NoError(t, err)

		var snap publicSnapshot
		require.NoError(t, json.Unmarshal(raw, &snap))
		assert.Empty(t, snap.PublicCommands)
	})
}
