//go:build !windows

package platform

import (
	"log/slog"
	"os"
	"os/user"

	"rebootreminder/internal/models"
)

// EnvSessions reports the current process user as the single active
// session. Good enough for development runs off Windows.
type EnvSessions struct {
	logger *slog.Logger
}

// NewSessions creates the session enumerator for this platform.
func NewSessions(logger *slog.Logger) *EnvSessions {
	return &EnvSessions{logger: logger}
}

func (e *EnvSessions) Active() ([]models.UserSession, error) {
	name := os.Getenv("USER")
	if u, err := user.Current(); err == nil && u.Username != "" {
		name = u.Username
	}
	if name == "" {
		return nil, nil
	}
	return []models.UserSession{{
		ID:        "1",
		UserName:  name,
		SessionID: "1",
		IsConsole: true,
	}}, nil
}
