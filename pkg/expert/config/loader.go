package config

import (
	"fmt"

	"github.com/cognicore/expert/pkg/expert/ruleio"
	"github.com/cognicore/expert/pkg/expert/store"
	"github.com/cognicore/expert/pkg/expert/store/kbfile"
)

// Loader resolves a session's startup inputs. Explicit paths win over the
// config file's.
type Loader struct {
	ConfigPath string
	DBPath     string
	KBPath     string
	RulesPath  string
	MaxRounds  int
}

// Components holds everything loaded for a session.
type Components struct {
	DBPath    string
	MaxRounds int
	// Snapshot is the startup knowledge base, nil when none was given.
	Snapshot *store.Snapshot
	// Rules is the startup rule import, empty when none was given.
	Rules ruleio.Result
}

// Load reads the config file (when given), applies overrides and loads the
// startup knowledge base and rule files.
func (l *Loader) Load() (*Components, error) {
	cfg := &Config{}
	if l.ConfigPath != "" {
		loaded, err := Load(l.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if l.DBPath != "" {
		cfg.DB = l.DBPath
	}
	if l.KBPath != "" {
		cfg.KB = l.KBPath
	}
	if l.RulesPath != "" {
		cfg.Rules = l.RulesPath
	}
	if l.MaxRounds != 0 {
		cfg.MaxRounds = l.MaxRounds
	}

	comp := &Components{DBPath: cfg.DB, MaxRounds: cfg.MaxRounds}

	if cfg.KB != "" {
		snap, err := kbfile.Load(cfg.KB)
		if err != nil {
			return nil, fmt.Errorf("load knowledge base: %w", err)
		}
		comp.Snapshot = &snap
	}

	if cfg.Rules != "" {
		res, err := ruleio.LoadFile(cfg.Rules)
		if err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
		comp.Rules = res
	}

	return comp, nil
}
