package config

import (
	"fmt"
	"os"
	"reflect"
	"regexp"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Settings struct {
	// Environment selects config.<env>.yml overlays. Empty means CONFIG_ENV,
	// then "test" under go test, then "development".
	Environment string
	// ENVPrefix is prepended to generated variable names. "-" disables it.
	ENVPrefix string
	// DotEnvFiles are loaded into the process environment before anything
	// else. Missing files are skipped.
	DotEnvFiles []string
	// ErrorOnUnmatchedKeys rejects file keys with no matching field.
	ErrorOnUnmatchedKeys bool
	Logger               *zap.Logger
}

type Config struct {
	*Settings
}

func New(settings *Settings) *Config {
	if settings == nil {
		settings = &Settings{}
	}
	if settings.Logger == nil {
		settings.Logger = zap.NewNop()
	}

	return &Config{Settings: settings}
}

var testRegexp = regexp.MustCompile(`_test|(\.test$)`)

func (c *Config) GetEnvironment() string {
	if c.Environment != "" {
		return c.Environment
	}
	if env := os.Getenv("CONFIG_ENV"); env != "" {
		return env
	}
	if testRegexp.MatchString(os.Args[0]) {
		return "test"
	}
	return "development"
}

// Load fills dst, a pointer to a struct, in order from `default` tags, the
// given files with their environment overlays, and environment variables.
// Later files override earlier ones.
func (c *Config) Load(dst any, files ...string) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config: %T should be a pointer to a struct", dst)
	}

	if err := c.loadDotEnv(); err != nil {
		return err
	}

	if err := applyDefaults(v.Elem()); err != nil {
		return err
	}

	for _, file := range c.resolveFiles(files...) {
		c.Logger.Debug("loading config file", zap.String("file", file))
		if err := decodeFile(dst, file, c.ErrorOnUnmatchedKeys); err != nil {
			return fmt.Errorf("config: %s: %w", file, err)
		}
	}

	var prefixes []string
	if prefix := c.envPrefix(); prefix != "-" {
		prefixes = []string{prefix}
	}

	return c.applyEnv(v.Elem(), prefixes)
}

func (c *Config) loadDotEnv() error {
	var present []string
	for _, f := range c.DotEnvFiles {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}

	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("config: load env files: %w", err)
	}
	c.Logger.Debug("loaded env files", zap.Strings("files", present))

	return nil
}

func (c *Config) envPrefix() string {
	if c.ENVPrefix != "" {
		return c.ENVPrefix
	}
	if prefix := os.Getenv("CONFIG_ENV_PREFIX"); prefix != "" {
		return prefix
	}
	return "CONFIG"
}
