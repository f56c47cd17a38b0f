package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/graphsnap/internal/config"
	"github.com/dshills/graphsnap/internal/config/registry"
)

// Document identifiers.
const (
	settingsDoc = "settings.toml"
	trackedDoc  = "tracked.yaml"
	stateDoc    = "state.jsonc"
)

// Settings is everything graphsnap persists between runs.
type Settings struct {
	APIBaseURL  string
	ClientID    string
	Timeout     time.Duration
	Retries     int
	SnapshotDir string

	Tracked []string
	Labels  map[string]string

	LastEdit time.Time
	Edits    int64
}

// bind registers every field of s with the engine.
func (s *Settings) bind(e *config.Engine) {
	config.Bind(e, &s.APIBaseURL, registry.String(), registry.Annotation{
		Key:      "BaseURL",
		Document: settingsDoc,
		Section:  "api",
		Comment:  "graph API endpoint",
		Default:  "https://api.example.com/v1",
	})
	config.Bind(e, &s.ClientID, registry.String(), registry.Annotation{
		Key:      "ClientID",
		Document: settingsDoc,
		Section:  "api",
		Comment:  "sent as X-Client-ID",
		Default:  uuid.NewString(),
	})
	config.Bind(e, &s.Timeout, registry.Duration(), registry.Annotation{
		Key:      "Timeout",
		Document: settingsDoc,
		Section:  "api",
		Default:  30 * time.Second,
	})
	config.Bind(e, &s.Retries, registry.Int(), registry.Annotation{
		Key:      "Retries",
		Document: settingsDoc,
		Comment:  "attempts per API call",
		Default:  3,
	})
	config.Bind(e, &s.SnapshotDir, registry.String(), registry.Annotation{
		Key:      "SnapshotDir",
		Document: settingsDoc,
		Comment:  "relative paths resolve against the config directory",
		Default:  "snapshots",
	})

	config.Bind(e, &s.Tracked, registry.List(registry.String()), registry.Annotation{
		Key:      "users",
		Document: trackedDoc,
		Comment:  "accounts to snapshot",
	})
	config.Bind(e, &s.Labels, registry.Map(registry.String()), registry.Annotation{
		Key:      "labels",
		Document: trackedDoc,
	})

	config.Bind(e, &s.LastEdit, registry.Time(), registry.Annotation{
		Key:      "lastEdit",
		Document: stateDoc,
		Comment:  "written by graphsnap",
	})
	config.Bind(e, &s.Edits, registry.Int64(), registry.Annotation{
		Key:      "edits",
		Document: stateDoc,
	})
}

// setter parses a command-line value into one field.
type setter func(s *Settings, value string) error

var setters = map[string]setter{
	"api-url": func(s *Settings, v string) error {
		if !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
			return fmt.Errorf("api-url must start with http:// or https://")
		}
		s.APIBaseURL = strings.TrimRight(v, "/")
		return nil
	},
	"timeout": func(s *Settings, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		if d <= 0 {
			return fmt.Errorf("timeout must be positive")
		}
		s.Timeout = d
		return nil
	},
	"retries": func(s *Settings, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		if n < 0 {
			return fmt.Errorf("retries must not be negative")
		}
		s.Retries = n
		return nil
	},
	"snapshot-dir": func(s *Settings, v string) error {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("snapshot-dir must not be empty")
		}
		s.SnapshotDir = v
		return nil
	},
}

func setterNames() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// track adds users that are not tracked yet and returns how many were added.
func (s *Settings) track(users ...string) int {
	added := 0
	for _, u := range users {
		if u == "" || contains(s.Tracked, u) {
			continue
		}
		s.Tracked = append(s.Tracked, u)
		added++
	}
	return added
}

// untrack removes users and their labels, returning how many were removed.
func (s *Settings) untrack(users ...string) int {
	removed := 0
	kept := s.Tracked[:0]
	for _, u := range s.Tracked {
		if contains(users, u) {
			delete(s.Labels, u)
			removed++
			continue
		}
		kept = append(kept, u)
	}
	s.Tracked = kept
	return removed
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
