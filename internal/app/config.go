package app

import (
	"errors"

	"github.com/kartoza/cplus-engine/internal/model"
)

// Config holds everything an App instance needs to run.
type Config struct {
	ScenarioPath string // hcl scenario files
	ProfilesDir  string // json profile directory
	OutDir       string
	HistoryPath  string

	LogFormat   string
	LogLevel    string
	WorkerCount int

	// Command selectors. When none is set the app runs the scenarios at
	// ScenarioPath; otherwise it serves the selected history command.
	ListHistory  bool
	ListState    string // optional state filter for ListHistory
	ReportUUID   string
	CompareUUIDs []string
}

// analysisRun reports whether the config asks for scenario execution rather
// than a history command.
func (c *Config) analysisRun() bool {
	return !c.ListHistory && c.ReportUUID == "" && len(c.CompareUUIDs) == 0
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	selected := 0
	if cfg.ListHistory {
		selected++
	}
	if cfg.ReportUUID != "" {
		selected++
	}
	if len(cfg.CompareUUIDs) > 0 {
		selected++
	}
	if selected > 1 {
		return nil, errors.New("list, report and compare are mutually exclusive")
	}

	if cfg.HistoryPath == "" {
		return nil, errors.New("HistoryPath is a required configuration field and cannot be empty")
	}
	if cfg.analysisRun() {
		if cfg.ScenarioPath == "" {
			return nil, errors.New("ScenarioPath is a required configuration field and cannot be empty")
		}
		if cfg.ProfilesDir == "" {
			return nil, errors.New("ProfilesDir is a required configuration field and cannot be empty")
		}
		if cfg.OutDir == "" {
			return nil, errors.New("OutDir is a required configuration field and cannot be empty")
		}
	}
	if len(cfg.CompareUUIDs) == 1 {
		return nil, errors.New("compare needs at least two scenario uuids")
	}
	if cfg.ListState != "" {
		if !cfg.ListHistory {
			return nil, errors.New("state filter only applies to the list command")
		}
		if _, err := model.ParseScenarioState(cfg.ListState); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}
