package notifications

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Directory enumerates the recipients of an all-users broadcast.
type Directory interface {
	UserIDs(ctx context.Context) ([]string, error)
}

// StaticDirectory is a fixed list of user ids.
type StaticDirectory []string

func (d StaticDirectory) UserIDs(context.Context) ([]string, error) {
	return dedupe(d), nil
}

type directoryFile struct {
	Users []struct {
		ID string `yaml:"id"`
	} `yaml:"users"`
}

// LoadDirectoryFile reads a YAML file of the form
//
//	users:
//	  - id: user-1
//	  - id: user-2
func LoadDirectoryFile(path string) (StaticDirectory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory file: %w", err)
	}

	var f directoryFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse directory file %s: %w", path, err)
	}

	ids := make([]string, 0, len(f.Users))
	for _, u := range f.Users {
		ids = append(ids, u.ID)
	}
	return StaticDirectory(dedupe(ids)), nil
}

// dedupe trims ids, drops empty ones and keeps the first occurrence of each.
func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
