package helpers

import (
	"strings"
	"time"

	"github.com/Jeffail/gabs"
	"github.com/karrick/tparse/v2"
)

// config Saves the bot-config
var config *gabs.Container

// DEBUG_MODE makes Relax() print the error before panicking
var DEBUG_MODE = false

// LoadConfig loads the config from $path into $config
func LoadConfig(path string) {
	json, err := gabs.ParseJSONFile(path)
	if err != nil {
		panic(err)
	}

	config = json
}

// SetConfig replaces the loaded config
func SetConfig(c *gabs.Container) {
	config = c
}

// GetConfig is a config getter
func GetConfig() *gabs.Container {
	return config
}

// ConfigString returns the string at $path or $fallback if it is missing or empty
func ConfigString(c *gabs.Container, path string, fallback string) string {
	if c == nil || !c.ExistsP(path) {
		return fallback
	}

	value, ok := c.Path(path).Data().(string)
	if !ok || value == "" {
		return fallback
	}

	return value
}

// ConfigInt returns the number at $path, JSON numbers are decoded as float64
func ConfigInt(c *gabs.Container, path string, fallback int) int {
	if c == nil || !c.ExistsP(path) {
		return fallback
	}

	switch value := c.Path(path).Data().(type) {
	case float64:
		return int(value)
	case int:
		return value
	}

	return fallback
}

func ConfigBool(c *gabs.Container, path string, fallback bool) bool {
	if c == nil || !c.ExistsP(path) {
		return fallback
	}

	value, ok := c.Path(path).Data().(bool)
	if !ok {
		return fallback
	}

	return value
}

// ConfigStrings returns the string array at $path, non string items are skipped
func ConfigStrings(c *gabs.Container, path string, fallback []string) []string {
	if c == nil || !c.ExistsP(path) {
		return fallback
	}

	children, err := c.Path(path).Children()
	if err != nil {
		return fallback
	}

	result := make([]string, 0, len(children))
	for _, child := range children {
		if value, ok := child.Data().(string); ok {
			result = append(result, value)
		}
	}

	return result
}

// ConfigDuration parses durations like "90d", "1h" or "1200ms"
func ConfigDuration(c *gabs.Container, path string, fallback time.Duration) time.Duration {
	value := ConfigString(c, path, "")
	if value == "" {
		return fallback
	}

	duration, err := ParseDuration(value)
	if err != nil {
		return fallback
	}

	return duration
}

// ParseDuration accepts everything tparse understands, including days and weeks
func ParseDuration(value string) (time.Duration, error) {
	base := time.Unix(0, 0).UTC()

	result, err := tparse.AddDuration(base, strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}

	return result.Sub(base), nil
}
