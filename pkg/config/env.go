package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// applyDefaults sets blank fields from their `default` tag. Values are
// parsed as YAML so numbers, bools and durations work.
func applyDefaults(v reflect.Value) error {
	typ := v.Type()
	for i := 0; i < typ.NumField(); i++ {
		sf, field := typ.Field(i), v.Field(i)
		if !field.CanSet() {
			continue
		}

		if def := sf.Tag.Get("default"); def != "" && field.IsZero() {
			if err := yaml.Unmarshal([]byte(def), field.Addr().Interface()); err != nil {
				return fmt.Errorf("config: default for %s: %w", sf.Name, err)
			}
		}

		if field.Kind() == reflect.Struct {
			if err := applyDefaults(field); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyEnv overrides fields from the environment. A field is read from its
// `env` tag, or from PREFIX_PARENT_FIELD in the given or upper case. Blank
// fields tagged `required:"true"` are an error afterwards.
func (c *Config) applyEnv(v reflect.Value, prefixes []string) error {
	typ := v.Type()
	for i := 0; i < typ.NumField(); i++ {
		sf, field := typ.Field(i), v.Field(i)
		if !field.CanSet() {
			continue
		}

		path := append(append([]string{}, prefixes...), sf.Name)

		names := []string{sf.Tag.Get("env")}
		if names[0] == "" {
			joined := strings.Join(path, "_")
			names = []string{joined, strings.ToUpper(joined)}
		}

		for _, name := range names {
			value, ok := os.LookupEnv(name)
			if !ok || value == "" {
				continue
			}
			c.Logger.Debug("config from env", zap.String("field", sf.Name), zap.String("env", name))
			if err := setFromEnv(field, value); err != nil {
				return fmt.Errorf("config: %s: %w", name, err)
			}
			break
		}

		if field.Kind() == reflect.Struct {
			if err := c.applyEnv(field, path); err != nil {
				return err
			}
		}

		if sf.Tag.Get("required") == "true" && field.IsZero() {
			return errors.New("config: " + sf.Name + " is required, but blank")
		}
	}
	return nil
}

func setFromEnv(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		switch strings.ToLower(value) {
		case "0", "f", "false", "no", "off":
			field.SetBool(false)
		default:
			field.SetBool(true)
		}
	default:
		return yaml.Unmarshal([]byte(value), field.Addr().Interface())
	}
	return nil
}
