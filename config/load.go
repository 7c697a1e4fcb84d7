package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golobby/cast"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every env tag when resolving overrides, so the
// installation's variables cannot collide with unrelated software on the
// device.
const EnvPrefix = "ARTIFACT"

// Load reads the configuration file at path, applies environment overrides,
// fills defaults and validates the result. The format is dispatched by file
// extension: .yaml/.yml or .toml.
func Load(path string) (Config, error) {
	var cfg Config

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	default:
		return cfg, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}

	return finish(cfg)
}

// FromEnv builds a configuration from defaults and environment overrides
// only, for deployments without a config file.
func FromEnv() (Config, error) {
	return finish(Config{})
}

func finish(cfg Config) (Config, error) {
	if err := applyEnvOverrides(reflect.ValueOf(&cfg).Elem()); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnvOverrides walks the struct and sets every env-tagged field whose
// prefixed variable is present.
func applyEnvOverrides(rv reflect.Value) error {
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		fieldType := rv.Type().Field(i)

		if field.Kind() == reflect.Struct && fieldType.Tag.Get("env") == "" {
			if err := applyEnvOverrides(field); err != nil {
				return fmt.Errorf("error in field '%s': %w", fieldType.Name, err)
			}
			continue
		}

		envTag, exists := fieldType.Tag.Lookup("env")
		if !exists {
			continue
		}
		envValue := os.Getenv(EnvPrefix + "_" + strings.ToUpper(envTag))
		if envValue == "" {
			continue
		}
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("error in field '%s': %w", fieldType.Name, err)
		}
	}
	return nil
}

var durationTypes = map[reflect.Type]struct{}{
	reflect.TypeOf(time.Duration(0)): {},
	reflect.TypeOf(Duration(0)):      {},
}

// setFieldValue converts and sets a field value
func setFieldValue(field reflect.Value, strValue string) error {
	if _, isDuration := durationTypes[field.Type()]; isDuration {
		d, err := time.ParseDuration(strValue)
		if err != nil {
			return fmt.Errorf("%w: %q is not a duration: %w", ErrEnvInvalidValue, strValue, err)
		}
		field.Set(reflect.ValueOf(d).Convert(field.Type()))
		return nil
	}

	convertedValue, err := cast.FromType(strValue, field.Type())
	if err != nil {
		return fmt.Errorf("%w: cannot convert %q to %v: %w", ErrEnvInvalidValue, strValue, field.Type(), err)
	}

	converted := reflect.ValueOf(convertedValue)
	if !converted.Type().AssignableTo(field.Type()) {
		if !converted.Type().ConvertibleTo(field.Type()) {
			return fmt.Errorf("%w: %q is not assignable to %v", ErrEnvInvalidValue, strValue, field.Type())
		}
		converted = converted.Convert(field.Type())
	}
	field.Set(converted)
	return nil
}
