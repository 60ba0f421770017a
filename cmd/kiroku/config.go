package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fyshx/kiroku"
)

const defaultConfigPath = "kiroku.yml"

// fileConfig mirrors kiroku.yml.
type fileConfig struct {
	Vault    string `yaml:"vault"`
	Remote   string `yaml:"remote"`
	Branch   string `yaml:"branch"`
	NotesDir string `yaml:"notes_dir"`
	StateDir string `yaml:"state_dir"`
	Timezone string `yaml:"timezone"`
	Interval string `yaml:"interval"`
}

// loadConfig reads the config file. An absent default config is not an
// error; an explicitly requested one must exist.
func loadConfig(path string) (*fileConfig, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	cfg := &fileConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

// serviceOptions converts the file config into service options.
func (c *fileConfig) serviceOptions() ([]kiroku.Option, error) {
	var opts []kiroku.Option

	if c.Remote != "" {
		opts = append(opts, kiroku.WithRemote(c.Remote))
	}
	if c.Branch != "" {
		opts = append(opts, kiroku.WithBranch(c.Branch))
	}
	if c.NotesDir != "" {
		opts = append(opts, kiroku.WithNotesDir(c.NotesDir))
	}
	if c.StateDir != "" {
		opts = append(opts, kiroku.WithStateDir(c.StateDir))
	}

	if c.Timezone != "" {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
		opts = append(opts, kiroku.WithTimezone(loc))
	}

	if c.Interval != "" {
		d, err := time.ParseDuration(c.Interval)
		if err != nil {
			return nil, fmt.Errorf("invalid interval %q: %w", c.Interval, err)
		}
		opts = append(opts, kiroku.WithInterval(d))
	}

	return opts, nil
}

// location resolves the configured timezone for display purposes.
func (c *fileConfig) location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
