package cli

import (
	"fmt"
	"os"

	"github.com/lazypower/tether/internal/auth"
	"github.com/lazypower/tether/internal/config"
)

// newSessionProvider resolves the session the CLI runs under. With an
// auth secret configured and a TETHER_TOKEN in the environment, the token
// is verified and its subject becomes the owner scope, so the CLI can act
// as one user of a token-scoped store. Otherwise the implicit local
// session applies.
func newSessionProvider(cfg config.Config) (*auth.Provider, error) {
	sessions := auth.NewProvider()
	if token := os.Getenv("TETHER_TOKEN"); cfg.Auth.Secret != "" && token != "" {
		sess, err := auth.NewVerifier(cfg.Auth.Secret).Verify(token)
		if err != nil {
			return nil, fmt.Errorf("verify TETHER_TOKEN: %w", err)
		}
		sessions.Set(sess)
		return sessions, nil
	}
	sessions.Set(&auth.Session{UserID: auth.LocalScope})
	return sessions, nil
}
