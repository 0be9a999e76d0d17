// Package auth provides authentication for the web dashboard.
//
// Three ways into the dashboard are supported:
//   - Local database authentication with Argon2id password hashing
//   - Discord OAuth2 authentication with the identify scope
//   - Signed web tokens handed out by the /webtoken slash command
//
// # Authentication Providers
//
// LocalProvider handles traditional username/password authentication against
// the local database with secure Argon2id password hashing.
//
// DiscordProvider implements the OAuth2 authorization code flow against
// Discord and resolves the resulting access token to a Discord identity.
//
// Web tokens are short-lived HS256 JWTs minted by IssueToken and checked by
// VerifyToken. They let a member jump from a DM straight into a logged-in
// dashboard session without ever setting a password.
//
// # Accounts
//
// Externally authenticated visitors (Discord OAuth2 or web token) are mapped
// to local accounts by the Service: UpsertExternal finds the account bound to
// the Discord user id and creates one on first login.
//
// Example usage:
//
//	// Username and password login
//	local := auth.NewLocalProvider(db)
//	user, err := local.Authenticate(username, password)
//
//	// Discord OAuth2 login
//	provider := auth.NewDiscordProvider(cfg.Webserver.OAuth)
//	state, err := auth.GenerateStateToken()
//	url := provider.AuthURL(state)
//	// ... after the callback ...
//	identity, err := provider.Exchange(ctx, code)
//	user, err := accounts.UpsertExternal(identity.ID, identity.Username, models.AuthSourceDiscord)
package auth
