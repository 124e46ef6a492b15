package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source points at a secret the matcher needs at runtime, such as the API
// bearer token or the Gemini key.
type Source struct {
	// Name labels the secret in error messages ("api token", "gemini api key").
	Name string
	// Value carries the secret inline, usually from configuration.
	Value string
	// File is a path to read the secret from. It wins over Value when set.
	File string
}

// Load resolves the secret and trims surrounding whitespace. An empty result
// is an error: a blank token file is a misconfiguration, not a secret.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		src.Value = string(data)
		src.File = file
	}

	secret := strings.TrimSpace(src.Value)
	if secret == "" {
		if src.File != "" {
			return "", fmt.Errorf("%s file %q is empty", name, src.File)
		}
		return "", fmt.Errorf("%s is not configured", name)
	}

	return secret, nil
}
