package config

import (
	"github.com/oscarfosteru/patitovendedor/internal/envconfig"
)

type Config struct {
	Port         string `validate:"required"`
	GCPProjectID string `validate:"required"`
	BucketName   string `validate:"required"`
	Auth         AuthConfig
}

type AuthConfig struct {
	Mode     string `validate:"required"`
	JWKSURL  string
	Audience string
	Issuer   string
}

func Load() (Config, error) {
	project := envconfig.Get("GCP_PROJECT_ID", "patitovendedor-dev")
	cfg := Config{
		Port:         envconfig.Get("PORT", "8080"),
		GCPProjectID: project,
		BucketName:   envconfig.Get("BUCKET_NAME", project+".firebasestorage.app"),
		Auth: AuthConfig{
			Mode:     envconfig.Get("AUTH_MODE", "firebase"),
			JWKSURL:  envconfig.Get("AUTH_JWKS_URL", "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"),
			Audience: envconfig.Get("AUTH_AUDIENCE", project),
			Issuer:   envconfig.Get("AUTH_ISSUER", "https://securetoken.google.com/"+project),
		},
	}
	return cfg, envconfig.Validate(cfg)
}
