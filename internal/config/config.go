package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/Napageneral/sigmd/internal/directory"
	"github.com/Napageneral/sigmd/internal/model"
)

// Config represents the sigmd settings file: where the export lives, who "me"
// is, whether unknown people may be created on the fly, and the roster of
// known people and groups.
type Config struct {
	SourceFolder string `yaml:"source_folder"`
	OutputFolder string `yaml:"output_folder"`

	// Me is the slug of the person in People representing the user.
	Me string `yaml:"me"`

	// CreatePeople enables synthesizing a new Person when a conversation
	// matches nobody in the roster.
	CreatePeople bool `yaml:"create_people"`

	People []model.Person `yaml:"people"`
	Groups []model.Group  `yaml:"groups"`
}

// GetConfigDir returns the XDG-compliant config directory
func GetConfigDir() (string, error) {
	// Explicit override (useful for tests and portable installs)
	if override := os.Getenv("SIGMD_CONFIG_DIR"); override != "" {
		return override, nil
	}

	var base string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		base = xdg
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "sigmd"), nil
}

// GetDataDir returns the platform-specific data directory
func GetDataDir() (string, error) {
	// Explicit override (useful for tests and portable installs)
	if override := os.Getenv("SIGMD_DATA_DIR"); override != "" {
		return override, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Application Support", "Sigmd"), nil
	}

	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "sigmd"), nil
	}

	return filepath.Join(home, ".local", "share", "sigmd"), nil
}

// DefaultPath returns the default settings file path.
func DefaultPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// Load loads config from path. An empty path means the default location.
// A missing file at the default location yields an empty config.
func Load(path string) (*Config, error) {
	usingDefault := path == ""
	if usingDefault {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && usingDefault {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// Save saves the config to path, creating parent directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// BuildDirectory constructs the identity directory from the roster. The
// directory gets its own Person copies so repeated runs never see mutations
// from a previous run's resolution pass.
func (c *Config) BuildDirectory() *directory.Directory {
	d := directory.New()
	for i := range c.People {
		p := c.People[i]
		if p.FullName == "" && p.FirstName != "" {
			p.FullName = p.FirstName
			if p.LastName != "" {
				p.FullName += " " + p.LastName
			}
		}
		d.Register(&p)
	}
	for _, g := range c.Groups {
		d.AddGroup(g)
	}
	return d
}

// MePerson finds the configured self-identity in dir.
func (c *Config) MePerson(dir *directory.Directory) (*model.Person, error) {
	if c.Me == "" {
		return nil, fmt.Errorf("config has no 'me' slug")
	}
	p := dir.FindBySlug(c.Me)
	if p == nil {
		return nil, fmt.Errorf("me slug %q not found in people roster", c.Me)
	}
	return p, nil
}
