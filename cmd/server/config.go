package main

import (
	"time"

	"github.com/quesurifn/ics-calendar-relay/pkg/config"
)

type AppConfig struct {
	AppName   string
	Env       string `default:"production"`
	Host      string
	Port      string
	Debug     bool
	SentryDSN string `env:"SENTRY_DSN"`

	Upstream struct {
		BaseURL   string `default:"https://www.recurse.com"`
		Path      string `default:"/calendar/events.ics"`
		Scope     string `default:"me"`
		UserAgent string `default:"ics-calendar-relay/1.0"`
		Timeout   time.Duration
	}

	TLS struct {
		Probe bool `default:"true"`
	}
}

func defaultAppConfig() AppConfig {
	return AppConfig{
		AppName: "Calendar Relay",
		Host:    "0.0.0.0",
		Port:    "3000",
	}
}

func configSettings() *config.Settings {
	return &config.Settings{
		ENVPrefix:   "CAL_RELAY",
		DotEnvFiles: []string{".env"},
	}
}
