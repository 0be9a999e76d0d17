package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/MyteScripts/gridbot/internal/config"
)

// Discord OAuth2 endpoints. The identify scope is enough to resolve the
// logged-in visitor to a Discord user id.
const (
	discordAuthURL  = "https://discord.com/oauth2/authorize"
	discordTokenURL = "https://discord.com/api/oauth2/token"
	discordMeURL    = "https://discord.com/api/users/@me"

	// ScopeIdentify grants read access to the user object without the email field.
	ScopeIdentify = "identify"
)

// DiscordIdentity is the subset of the Discord user object the dashboard cares about.
type DiscordIdentity struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
}

// DisplayName returns the user's global display name, falling back to the
// unique username for accounts that never set one.
func (i *DiscordIdentity) DisplayName() string {
	if i.GlobalName != "" {
		return i.GlobalName
	}

	return i.Username
}

// DiscordProvider handles Discord OAuth2 authentication.
type DiscordProvider struct {
	oauth2 oauth2.Config
}

// NewDiscordProvider creates a new Discord OAuth2 provider.
func NewDiscordProvider(cfg config.OAuth) (*DiscordProvider, error) {
	if !cfg.Enabled {
		return nil, ErrOAuthDisabled
	}

	oauth2Config := oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:  discordAuthURL,
			TokenURL: discordTokenURL,
		},
		Scopes: []string{ScopeIdentify},
	}

	return &DiscordProvider{
		oauth2: oauth2Config,
	}, nil
}

// GenerateStateToken generates a random state token for CSRF protection.
func GenerateStateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(b), nil
}

// AuthURL returns the Discord authorization URL with state token.
func (p *DiscordProvider) AuthURL(state string) string {
	return p.oauth2.AuthCodeURL(state)
}

// Exchange trades the callback code for an access token and resolves it to
// the visitor's Discord identity.
func (p *DiscordProvider) Exchange(ctx context.Context, code string) (*DiscordIdentity, error) {
	token, err := p.oauth2.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	return p.fetchIdentity(ctx, token)
}

// fetchIdentity calls the Discord users/@me endpoint with the access token.
func (p *DiscordProvider) fetchIdentity(ctx context.Context, token *oauth2.Token) (*DiscordIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discordMeURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build identity request: %w", err)
	}

	resp, err := p.oauth2.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch identity: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity endpoint returned status %d", resp.StatusCode)
	}

	var identity DiscordIdentity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, fmt.Errorf("failed to decode identity: %w", err)
	}

	if identity.ID == "" {
		return nil, fmt.Errorf("identity response has no user id")
	}

	return &identity, nil
}
