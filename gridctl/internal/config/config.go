package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	CurrentProfile string              `yaml:"current_profile"`
	Profiles       map[string]*Profile `yaml:"profiles"`
	path           string
}

type Profile struct {
	CoordinatorURL string `yaml:"coordinator_url"`
	WorkerURL      string `yaml:"worker_url"`
	AdminToken     string `yaml:"admin_token"`
}

func Default() *Config {
	return &Config{
		CurrentProfile: "default",
		Profiles:       make(map[string]*Profile),
	}
}

// Load reads the config file, falling back to ./gridctl.yaml and then
// ~/.gridstream/config.yaml. A missing file yields the defaults.
func Load(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		if _, err := os.Stat("gridctl.yaml"); err == nil {
			cfgFile = "gridctl.yaml"
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, err
			}
			cfgFile = filepath.Join(home, ".gridstream", "config.yaml")
		}
	}

	cfg := Default()
	cfg.path = cfgFile

	data, err := os.ReadFile(cfgFile)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Save() error {
	if c.path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		c.path = filepath.Join(home, ".gridstream", "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0600)
}

// GetProfile returns the named profile, or the current one for "".
func (c *Config) GetProfile(name string) (*Profile, error) {
	if name == "" {
		name = c.CurrentProfile
	}
	profile, ok := c.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("profile %q not found, run 'gridctl login' first", name)
	}
	return profile, nil
}

// SaveProfile stores a profile and makes it current.
func (c *Config) SaveProfile(name string, profile *Profile) error {
	if c.Profiles == nil {
		c.Profiles = make(map[string]*Profile)
	}
	c.Profiles[name] = profile
	c.CurrentProfile = name
	return c.Save()
}

// CoordinatorURL resolves the coordinator URL for a profile, with a
// sensible default for fresh installs.
func (c *Config) CoordinatorURL(name string) string {
	if p, err := c.GetProfile(name); err == nil && p.CoordinatorURL != "" {
		return p.CoordinatorURL
	}
	return "http://localhost:8761"
}
