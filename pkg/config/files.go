package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// UnmatchedTomlKeysError is returned when ErrorOnUnmatchedKeys is set and a
// TOML file has keys with no matching field.
type UnmatchedTomlKeysError struct {
	Keys []toml.Key
}

func (e *UnmatchedTomlKeysError) Error() string {
	return fmt.Sprintf("keys in the config file do not match any field: %v", e.Keys)
}

// resolveFiles expands each file into the variants that exist on disk:
// the file itself and config.<env>.ext, or config.example.ext when neither
// is present.
func (c *Config) resolveFiles(files ...string) []string {
	env := c.GetEnvironment()

	var found []string
	for _, file := range files {
		matched := false

		if isFile(file) {
			found = append(found, file)
			matched = true
		}
		if overlay := variant(file, env); isFile(overlay) {
			found = append(found, overlay)
			matched = true
		}
		if !matched {
			if example := variant(file, "example"); isFile(example) {
				c.Logger.Debug("using example config", zap.String("file", file), zap.String("example", example))
				found = append(found, example)
			}
		}
	}

	return found
}

func variant(file, name string) string {
	ext := filepath.Ext(file)
	return strings.TrimSuffix(file, ext) + "." + name + ext
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func decodeFile(dst any, file string, strict bool) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		return decodeYAML(data, dst, strict)
	case ".toml":
		return decodeTOML(data, dst, strict)
	case ".json":
		return decodeJSON(data, dst, strict)
	}

	// unknown extension: try each format in turn
	var unmatched *UnmatchedTomlKeysError
	if err := decodeTOML(data, dst, strict); err == nil || errors.As(err, &unmatched) {
		return err
	}
	if err := decodeJSON(data, dst, strict); err == nil || strings.Contains(err.Error(), "json: unknown field") {
		return err
	}
	var typeErr *yaml.TypeError
	if err := decodeYAML(data, dst, strict); err == nil || errors.As(err, &typeErr) {
		return err
	}

	return errors.New("unrecognised config format")
}

func decodeYAML(data []byte, dst any, strict bool) error {
	if strict {
		return yaml.UnmarshalStrict(data, dst)
	}
	return yaml.Unmarshal(data, dst)
}

func decodeTOML(data []byte, dst any, strict bool) error {
	meta, err := toml.Decode(string(data), dst)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); strict && len(undecoded) > 0 {
		return &UnmatchedTomlKeysError{Keys: undecoded}
	}
	return nil
}

func decodeJSON(data []byte, dst any, strict bool) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
