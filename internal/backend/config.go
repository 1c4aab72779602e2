package backend

import (
	"fmt"
	"strings"

	"expensedesk/internal/config"
	"expensedesk/internal/core"
)

// localUserID is the id offline backends give the configured user.
const localUserID = 1

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	name := strings.TrimSpace(appConfig.LocalUserName)
	return Config{
		Type: backendType,

		APIBaseURL:     appConfig.APIBaseURL,
		APIToken:       appConfig.APIToken,
		RequestTimeout: appConfig.RequestTimeout,

		LocalUser: core.User{
			ID:       localUserID,
			Username: name,
			FullName: name,
			Email:    name + "@localhost",
			Role:     core.Role(appConfig.LocalUserRole),
		},

		SQLiteDBPath:  appConfig.SQLiteDBPath,
		DataDirectory: appConfig.DataDirectory,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case HTTPBackend:
		if c.APIBaseURL == "" {
			return fmt.Errorf("API base URL is required for http backend")
		}
		if strings.TrimSpace(c.APIToken) == "" {
			return fmt.Errorf("API token is required for http backend")
		}

	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
		if !c.LocalUser.Role.Valid() {
			return fmt.Errorf("invalid local user role: %q", c.LocalUser.Role)
		}

	case MemoryBackend:
		// DataDirectory defaults to "data" if empty
		if !c.LocalUser.Role.Valid() {
			return fmt.Errorf("invalid local user role: %q", c.LocalUser.Role)
		}
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{HTTPBackend, SQLiteBackend, MemoryBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
