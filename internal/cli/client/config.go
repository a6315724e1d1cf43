package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Remote is the saved jeeinsightd connection.
type Remote struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key,omitempty"`
}

// Source says where a resolved setting came from.
type Source string

const (
	SourceFlag    Source = "flag"
	SourceEnv     Source = "env"
	SourceProfile Source = "profile"
	SourceDefault Source = "default"
	SourceNone    Source = "none"
)

const profileFile = "remote.yaml"

// configDir is replaced in tests.
var configDir = func() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to find user config directory: %w", err)
	}
	return filepath.Join(dir, "jeeinsight"), nil
}

// ProfilePath is where remote set writes the connection.
func ProfilePath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, profileFile), nil
}

// LoadRemote reads the saved connection. A missing profile is nil, nil.
func LoadRemote() (*Remote, error) {
	path, err := ProfilePath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var r Remote
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &r, nil
}

// SaveRemote writes r to the profile, readable only by the user since it
// may hold an API key, and returns the path written.
func SaveRemote(r Remote) (string, error) {
	if r.URL == "" {
		return "", errors.New("remote url is required")
	}
	path, err := ProfilePath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// ClearRemote deletes the profile. Clearing twice is fine.
func ClearRemote() error {
	path, err := ProfilePath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// Resolved is the connection a command will use.
type Resolved struct {
	URL       string
	URLSource Source
	APIKey    string
	KeySource Source
}

// Resolve picks the URL and the key independently, each from the first of
// flag, environment and saved profile that sets it. The URL falls back to
// the local daemon; the key may stay empty.
func Resolve(flagKey, flagURL string) (Resolved, error) {
	var profile Remote
	if flagKey == "" || flagURL == "" {
		saved, err := LoadRemote()
		if err != nil {
			return Resolved{}, err
		}
		if saved != nil {
			profile = *saved
		}
	}

	res := Resolved{}
	res.URL, res.URLSource = first(flagURL, os.Getenv(envAPIURL), profile.URL)
	res.APIKey, res.KeySource = first(flagKey, os.Getenv(envAPIKey), profile.APIKey)
	if res.URL == "" {
		res.URL, res.URLSource = defaultAPIURL, SourceDefault
	}
	return res, nil
}

func first(flag, env, profile string) (string, Source) {
	switch {
	case flag != "":
		return flag, SourceFlag
	case env != "":
		return env, SourceEnv
	case profile != "":
		return profile, SourceProfile
	}
	return "", SourceNone
}
