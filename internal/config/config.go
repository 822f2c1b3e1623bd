package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

const (
	DefaultProfile  = "default"
	DefaultURL      = "ws://localhost:8080/ws"
	DefaultPanelKey = "index"
)

// Setting keys shared by flags, environment and the config file.
const (
	KeyServer       = "server"
	KeyProfile      = "profile"
	KeyLogLevel     = "logging.level"
	KeyLogFormat    = "logging.format"
	KeyLogFile      = "logging.file"
	KeyServeAddr    = "serve.addr"
	KeyServeCatalog = "serve.catalog"
)

var ErrUnknownProfile = errors.New("profile does not exist")

type Profile struct {
	URL      string `json:"url" mapstructure:"url"`
	PanelKey string `json:"panel_key,omitempty" mapstructure:"panel_key"`
	Scripts  bool   `json:"scripts" mapstructure:"scripts"`
}

type Config struct {
	Profiles       map[string]Profile `json:"profiles" mapstructure:"profiles"`
	ActiveProfile  string             `json:"active_profile" mapstructure:"active_profile"`
	currentProfile *Profile
	path           string
	server         string // url override, never saved
}

// NewViper returns the settings store the CLI binds its flags to. Every key
// can be overridden from the environment as WIREUI_<KEY>, dots becoming
// underscores (WIREUI_LOGGING_LEVEL).
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("WIREUI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyServeAddr, ":8080")
	return v
}

// LoadConfig loads the profile file with environment overrides only.
func LoadConfig() (*Config, error) {
	return Load(NewViper())
}

// Load reads the profile file, creating a default one on first run, and
// applies the profile and server overrides held by settings.
func Load(settings *viper.Viper) (*Config, error) {
	configPath, err := Path()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	if err := ensureConfigDir(configPath); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config, err := loadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	config.path = configPath

	if name := ProfileName(settings.GetString(KeyProfile)); name != "" {
		if _, ok := config.Profiles[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProfile, name)
		}
		config.ActiveProfile = name
	}

	config.server = settings.GetString(KeyServer)
	if err := config.setCurrentProfile(); err != nil {
		return nil, fmt.Errorf("failed to set current profile: %w", err)
	}
	return config, nil
}

// Path is $WIREUI_HOME/.wireui/config.json, or under the home directory
// when WIREUI_HOME is unset.
func Path() (string, error) {
	dir, err := baseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LogPath is where the terminal UI writes its log.
func LogPath() (string, error) {
	dir, err := baseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "wireui.log"), nil
}

func baseDir() (string, error) {
	var configDir string

	if home := os.Getenv("WIREUI_HOME"); home != "" {
		configDir = home
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = homeDir
	}

	return filepath.Join(configDir, ".wireui"), nil
}

func (c *Config) IsValid() bool {
	return c.currentProfile != nil && c.currentProfile.URL != ""
}

// Current is the active profile with overrides applied.
func (c *Config) Current() Profile {
	if c.currentProfile == nil {
		return defaultProfile()
	}
	return *c.currentProfile
}

func (c *Config) GetURL() string {
	return c.Current().URL
}

func (c *Config) GetPanelKey() string {
	if key := c.Current().PanelKey; key != "" {
		return key
	}
	return DefaultPanelKey
}

func (c *Config) ScriptsEnabled() bool {
	return c.Current().Scripts
}

// ProfileName is the stored form of a profile name. The profile file is
// read through viper, which lowercases map keys, so names are matched
// case-insensitively and kept lowercase.
func ProfileName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Profile looks up a profile by name.
func (c *Config) Profile(name string) (Profile, bool) {
	p, ok := c.Profiles[ProfileName(name)]
	return p, ok
}

// SetProfile adds or replaces a profile and returns the name it is stored under.
func (c *Config) SetProfile(name string, p Profile) (string, error) {
	key := ProfileName(name)
	if key == "" {
		return "", fmt.Errorf("profile name is required")
	}
	if c.Profiles == nil {
		c.Profiles = make(map[string]Profile)
	}
	c.Profiles[key] = p
	if key == c.ActiveProfile {
		return key, c.setCurrentProfile()
	}
	return key, nil
}

// ProfileNames lists profiles alphabetically.
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Use makes name the active profile.
func (c *Config) Use(name string) error {
	name = ProfileName(name)
	if _, ok := c.Profiles[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	c.ActiveProfile = name
	return c.setCurrentProfile()
}

// Remove deletes a profile. Removing the active one activates another,
// recreating the default profile when none is left.
func (c *Config) Remove(name string) error {
	name = ProfileName(name)
	if _, ok := c.Profiles[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProfile, name)
	}
	delete(c.Profiles, name)

	if len(c.Profiles) == 0 {
		c.Profiles[DefaultProfile] = defaultProfile()
	}
	if c.ActiveProfile == name {
		c.ActiveProfile = c.ProfileNames()[0]
	}
	return c.setCurrentProfile()
}

func defaultProfile() Profile {
	return Profile{URL: DefaultURL, PanelKey: DefaultPanelKey, Scripts: true}
}

func ensureConfigDir(configPath string) error {
	configDir := filepath.Dir(configPath)
	return os.MkdirAll(configDir, 0755)
}

func loadConfigFile(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return createDefaultConfig(configPath)
	}

	fv := viper.New()
	fv.SetConfigFile(configPath)
	fv.SetConfigType("json")
	if err := fv.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := fv.Unmarshal(&config); err != nil {
		return nil, err
	}
	config.ActiveProfile = ProfileName(config.ActiveProfile)
	return &config, nil
}

func createDefaultConfig(configPath string) (*Config, error) {
	config := &Config{
		Profiles: map[string]Profile{
			DefaultProfile: defaultProfile(),
		},
		ActiveProfile: DefaultProfile,
	}

	if err := saveConfig(config, configPath); err != nil {
		return nil, err
	}

	return config, nil
}

func saveConfig(config *Config, configPath string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

func (c *Config) Save() error {
	configPath := c.path
	if configPath == "" {
		var err error
		if configPath, err = Path(); err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}

	return saveConfig(c, configPath)
}

func (c *Config) setCurrentProfile() error {
	if len(c.Profiles) == 0 {
		return fmt.Errorf("no profiles defined")
	}

	profile, exists := c.Profiles[c.ActiveProfile]
	if !exists {
		// fall back to the first profile by name
		c.ActiveProfile = c.ProfileNames()[0]
		profile = c.Profiles[c.ActiveProfile]
	}
	if c.server != "" {
		profile.URL = c.server
	}

	c.currentProfile = &profile
	return nil
}
