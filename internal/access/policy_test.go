package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRestrictedTo(t *testing.T) {
	testCases := []struct {
		name               string
		roleIDs            []string
		expectUnrestricted bool
		expectedRoles      []string
	}{
		{
			name:               "nil role list",
			roleIDs:            nil,
			expectUnrestricted: true,
		},
		{
			name:               "empty role list",
			roleIDs:            []string{},
			expectUnrestricted: true,
		},
		{
			name:               "only blank ids",
			roleIDs:            []string{"", ""},
			expectUnrestricted: true,
		},
		{
			name:          "single role",
			roleIDs:       []string{"100"},
			expectedRoles: []string{"100"},
		},
		{
			name:          "duplicates and blanks dropped",
			roleIDs:       []string{"200", "", "100", "200"},
			expectedRoles: []string{"100", "200"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			policy := RestrictedTo(tc.roleIDs)

			assert.Equal(t, tc.expectUnrestricted, policy.IsUnrestricted())
			assert.Equal(t, tc.expectedRoles, policy.Roles())
		})
	}
}

func TestPolicyZeroValue(t *testing.T) {
	var policy Policy

	assert.True(t, policy.IsUnrestricted())
	assert.True(t, policy.Allows(nil))
	assert.True(t, policy.Allows([]string{"anything"}))
	assert.Nil(t, policy.Roles())
	assert.Equal(t, Unrestricted(), policy)
}

func TestPolicyAllows(t *testing.T) {
	testCases := []struct {
		name     string
		policy   Policy
		roleIDs  []string
		expected bool
	}{
		{
			name:     "unrestricted allows empty role set",
			policy:   Unrestricted(),
			roleIDs:  nil,
			expected: true,
		},
		{
			name:     "unrestricted allows any role set",
			policy:   Unrestricted(),
			roleIDs:  []string{"100", "200"},
			expected: true,
		},
		{
			name:     "restricted allows a member",
			policy:   RestrictedTo([]string{"100", "200"}),
			roleIDs:  []string{"300", "200"},
			expected: true,
		},
		{
			name:     "restricted denies a stranger",
			policy:   RestrictedTo([]string{"100", "200"}),
			roleIDs:  []string{"300"},
			expected: false,
		},
		{
			name:     "restricted denies empty role set",
			policy:   RestrictedTo([]string{"100"}),
			roleIDs:  nil,
			expected: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.policy.Allows(tc.roleIDs))
		})
	}
}

func TestPolicyWithRole(t *testing.T) {
	policy := Unrestricted().withRole("100")
	assert.False(t, policy.IsUnrestricted())
	assert.Equal(t, []string{"100"}, policy.Roles())

	policy = policy.withRole("200")
	assert.Equal(t, []string{"100", "200"}, policy.Roles())

	// Adding an existing role changes nothing.
	policy = policy.withRole("100")
	assert.Equal(t, []string{"100", "200"}, policy.Roles())
}

func TestPolicyWithoutRole(t *testing.T) {
	policy := RestrictedTo([]string{"100", "200"})

	policy = policy.withoutRole("100")
	assert.False(t, policy.IsUnrestricted())
	assert.Equal(t, []string{"200"}, policy.Roles())

	// Removing the last role collapses back to Unrestricted.
	policy = policy.withoutRole("200")
	assert.True(t, policy.IsUnrestricted())
	assert.Nil(t, policy.Roles())
}

func TestPolicyContains(t *testing.T) {
	policy := RestrictedTo([]string{"100"})

	assert.True(t, policy.Contains("100"))
	assert.False(t, policy.Contains("200"))
	assert.False(t, Unrestricted().Contains("100"))
}

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name     string
		command  string
		expected string
	}{
		{
			name:     "already canonical",
			command:  "warn",
			expected: "warn",
		},
		{
			name:     "upper case",
			command:  "WARN",
			expected: "warn",
		},
		{
			name:     "leading slash",
			command:  "/Warn",
			expected: "warn",
		},
		{
			name:     "surrounding whitespace",
			command:  "  /dbsync \n",
			expected: "dbsync",
		},
		{
			name:     "only a slash",
			command:  "/",
			expected: "",
		},
		{
			name:     "empty",
			command:  "",
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Normalize(tc.command))
		})
	}
}
