package config

import (
	"log"

	"github.com/kelseyhightower/envconfig"
)

type Settings struct {
	ListenAddr   string `envconfig:"LISTEN_ADDR" default:":8000"`
	DatabasePath string `envconfig:"DATABASE_PATH" default:"/app/data/blueprint.db"`
	LogPath      string `envconfig:"LOG_PATH" default:"/app/data/blueprint.log"`
	AuthDisabled bool   `envconfig:"AUTH_DISABLED" default:"false"`
	Debug        bool   `envconfig:"DEBUG" default:"false"`

	// LLM provider settings. The API key itself lives encrypted in the
	// settings table, not in the environment.
	LLMBaseURL        string `envconfig:"LLM_BASE_URL" default:"https://api.openai.com/v1"`
	LLMModel          string `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
	LLMTimeoutSeconds int    `envconfig:"LLM_TIMEOUT_SECONDS" default:"60"`

	// Optional YAML file overriding the built-in plan catalog.
	PlansPath string `envconfig:"PLANS_PATH" default:""`

	AuditRetentionDays int `envconfig:"AUDIT_RETENTION_DAYS" default:"90"`
}

var Cfg Settings

func Load() {
	if err := envconfig.Process("BLUEPRINT", &Cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
}
