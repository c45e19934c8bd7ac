package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_SERVER_URL targets a running devserver, an in-process one is started when empty
	ServerURL string `envconfig:"E2E_SERVER_URL"`
	// E2E_AUTH_SECRET must match the AUTH_SECRET of the targeted devserver
	AuthSecret string `envconfig:"E2E_AUTH_SECRET" default:"an-e2e-secret-long-enough-for-hs256"`
	// E2E_DEBUG_JSON dumps every stream event as JSON
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
