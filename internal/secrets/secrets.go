// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials for the bibliographic APIs. Values come
// from a directory of plain-text files (the filename is the key, the
// trimmed contents the value), overlaid by a dotenv file and then by the
// process environment.
//
// Supported keys: crossref-mailto.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// CrossRefMailto is the contact address sent to CrossRef's polite pool.
const CrossRefMailto = "crossref-mailto"

// envNames maps each supported key to the variable that can supply it in
// a dotenv file or the environment.
var envNames = map[string]string{
	CrossRefMailto: "CROSSREF_MAILTO",
}

// EnvName returns the environment variable for key, or "" if key is not
// supported.
func EnvName(key string) string {
	return envNames[key]
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory is not an error; Load returns an empty map.
// Unreadable files are logged and skipped.
func Load(dir string, log zerolog.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// LoadDotEnv reads supported keys from a dotenv file by their variable
// names. A missing file yields an empty map.
func LoadDotEnv(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	out := make(map[string]string)
	for key, env := range envNames {
		if v := strings.TrimSpace(vars[env]); v != "" {
			out[key] = v
		}
	}
	return out, nil
}

// Collect merges the secrets directory, the dotenv file and the process
// environment, later sources taking precedence.
func Collect(dir, dotenv string, log zerolog.Logger) (map[string]string, error) {
	merged, err := Load(dir, log)
	if err != nil {
		return nil, err
	}

	fromFile, err := LoadDotEnv(dotenv)
	if err != nil {
		log.Warn().Err(err).Msg("ignoring dotenv file")
	}
	for k, v := range fromFile {
		merged[k] = v
	}

	for key, env := range envNames {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			merged[key] = v
		}
	}
	return merged, nil
}
