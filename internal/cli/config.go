package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cspresent/present/internal/common/apperrors"
	"github.com/cspresent/present/internal/poller"
	"github.com/cspresent/present/internal/view"
)

// DefaultConfigFile is the default name of the config file
const DefaultConfigFile = "config.yaml"

// ConfigVersion is written to new config files.
const ConfigVersion = "0.1.0"

// config files from any 0.1.x release are readable
const configVersionConstraint = "~0.1"

// Environment overrides.
const (
	EnvLogLevel      = "PRESENT_LOG_LEVEL"
	EnvSessionCookie = "PRESENT_SESSION_COOKIE"
)

var ErrInvalidConfig apperrors.Error = apperrors.New("invalid configuration")

// Config is the CLI configuration file.
type Config struct {
	// Version of the configuration file format
	Version string `yaml:"version" validate:"required,configversion"`
	// ServerURL is the base URL of the attendance server
	ServerURL string `yaml:"server_url" validate:"omitempty,url"`
	// SessionCookie is the value of the web login session cookie
	SessionCookie string `yaml:"session_cookie,omitempty"`
	Theme         string `yaml:"theme,omitempty" validate:"omitempty,oneof=dark light"`
	// PollInterval is how often watch re-evaluates sessions, e.g. "1m"
	PollInterval string `yaml:"poll_interval,omitempty" validate:"omitempty,interval"`
	LogLevel     string `yaml:"log_level,omitempty" validate:"omitempty,oneof=trace debug info warn error disabled"`
}

var config *Config

var (
	configValidator     *validator.Validate
	configValidatorOnce sync.Once
)

func cfgValidator() *validator.Validate {
	configValidatorOnce.Do(func() {
		val := validator.New(validator.WithRequiredStructEnabled())
		val.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = val.RegisterValidation("configversion", func(fl validator.FieldLevel) bool {
			return IsConfigVersionCompatible(fl.Field().String())
		})
		_ = val.RegisterValidation("interval", func(fl validator.FieldLevel) bool {
			d, err := time.ParseDuration(fl.Field().String())
			return err == nil && d >= time.Second
		})
		configValidator = val
	})
	return configValidator
}

var versionConstraint = func() *semver.Constraints {
	c, err := semver.NewConstraint(configVersionConstraint)
	if err != nil {
		panic(err)
	}
	return c
}()

// IsConfigVersionCompatible reports whether a config file of the given
// format version can be read.
func IsConfigVersionCompatible(version string) bool {
	ver, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return versionConstraint.Check(ver)
}

// GetDefaultConfigPath returns the default path for the config file
// It uses the OS-specific config directory (e.g., ~/.config/present on Linux)
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "present", DefaultConfigFile), nil
}

// ReadConfig reads and validates a config file.
func ReadConfig(file string) (*Config, error) {
	if file == "" {
		var err error
		file, err = GetDefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get default config path: %w", err)
		}
	}

	yamlStr, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("unable to read config file: %w", err)
	}

	var c Config
	if err = yaml.Unmarshal(yamlStr, &c); err != nil {
		return nil, fmt.Errorf("unable to parse config file: %w", err)
	}
	c.ServerURL = MorphServer(c.ServerURL)
	if err := c.ValidateConfig(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadConfig reads file into the global configuration.
func LoadConfig(file string) error {
	c, err := ReadConfig(file)
	if err != nil {
		return err
	}
	config = c
	return nil
}

// GetConfig returns the current configuration
func GetConfig() *Config {
	return config
}

// WriteConfig writes the configuration to file, creating its directory.
func (cfg *Config) WriteConfig(file string) error {
	if file == "" {
		return errors.New("file path cannot be empty")
	}

	err := os.MkdirAll(filepath.Dir(file), 0700)
	if err != nil {
		return fmt.Errorf("unable to create config directory: %w", err)
	}

	yamlStr, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("unable to generate configuration: %w", err)
	}

	// the file holds the session cookie
	err = os.WriteFile(file, yamlStr, os.FileMode(0600))
	if err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}

	return nil
}

// ValidateConfig checks every field and reports all problems at once.
func (cfg *Config) ValidateConfig() error {
	err := cfgValidator().Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ErrInvalidConfig.Err(err)
	}

	var fes apperrors.FieldErrors
	for _, e := range verrs {
		fe := apperrors.FieldError{Field: e.Field(), Value: e.Value()}
		switch e.Tag() {
		case "required":
			fe.ErrStr = "is required"
		case "configversion":
			fe.ErrStr = fmt.Sprintf("unsupported config version, expected %s", configVersionConstraint)
		case "url":
			fe.ErrStr = "must be a URL such as https://attendance.example.edu"
		case "oneof":
			fe.ErrStr = "must be one of: " + e.Param()
		case "interval":
			fe.ErrStr = "must be a duration of at least 1s"
		default:
			fe.ErrStr = "failed " + e.Tag()
		}
		fes = append(fes, fe)
	}
	return ErrInvalidConfig.MsgErr("invalid configuration: "+fes.Error(), fes)
}

// MorphServer ensures the server URL is properly formatted
// Adds https:// prefix if missing and removes trailing slashes
func MorphServer(server string) string {
	if server == "" {
		return server
	}

	server = strings.TrimRight(server, "/")

	if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
		server = "https://" + server
	}

	return server
}

// GetServerURL returns the properly formatted server URL
func (cfg *Config) GetServerURL() string {
	return MorphServer(cfg.ServerURL)
}

// GetSessionCookie returns the login cookie, preferring the environment.
func (cfg *Config) GetSessionCookie() string {
	if c := os.Getenv(EnvSessionCookie); c != "" {
		return c
	}
	return cfg.SessionCookie
}

// GetTheme returns the configured theme, dark when unset.
func (cfg *Config) GetTheme() view.Theme {
	t, err := view.ParseTheme(cfg.Theme)
	if err != nil {
		return view.DefaultTheme
	}
	return t
}

// GetPollInterval returns the configured interval, one minute when unset.
func (cfg *Config) GetPollInterval() time.Duration {
	d, err := time.ParseDuration(cfg.PollInterval)
	if err != nil || d < time.Second {
		return poller.DefaultInterval
	}
	return d
}

// GetLogLevel returns the log level, preferring the environment.
func (cfg *Config) GetLogLevel() string {
	if l := os.Getenv(EnvLogLevel); l != "" {
		return l
	}
	return cfg.LogLevel
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long:  `Manage CLI configuration settings like the server URL, login cookie and theme.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, _ := cmd.Flags().GetString("server")
		cookie, _ := cmd.Flags().GetString("cookie")
		if server != "" || cookie != "" {
			return setServerConfig(cmd, server, cookie)
		}
		return cmd.Help()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := ReadConfig(configFile)
		if err != nil {
			return err
		}
		out := map[string]string{
			"server_url":    cfg.ServerURL,
			"theme":         string(cfg.GetTheme()),
			"poll_interval": cfg.GetPollInterval().String(),
			"logged_in":     fmt.Sprint(cfg.SessionCookie != ""),
			"config_file":   configFile,
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), out)
		}
		for _, k := range []string{"server_url", "theme", "poll_interval", "logged_in", "config_file"} {
			fmt.Fprintf(cmd.OutOrStdout(), "%-14s %s\n", k+":", out[k])
		}
		return nil
	},
}

// configClearCmd forgets the login cookie.
var configClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the stored login session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := ReadConfig(configFile)
		if err != nil {
			return err
		}
		cfg.SessionCookie = ""
		if err := cfg.WriteConfig(configFile); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]int{"result": 1})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Login session cleared. Set a new one with \"present config --cookie <value>\"")
		return nil
	},
}

var configThemeCmd = &cobra.Command{
	Use:       "theme [dark|light|toggle]",
	Short:     "Show, set or toggle the output theme",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"dark", "light", "toggle"},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := ReadConfig(configFile)
		if err != nil {
			return err
		}
		theme := cfg.GetTheme()
		if len(args) == 1 {
			if args[0] == "toggle" {
				theme = theme.Toggle()
			} else if theme, err = view.ParseTheme(args[0]); err != nil {
				return err
			}
			cfg.Theme = string(theme)
			if err := cfg.WriteConfig(configFile); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), map[string]string{"theme": string(theme)})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Theme: %s\n", theme)
		return nil
	},
}

func init() {
	configCmd.Flags().String("server", "", "Set the attendance server URL (e.g., https://attendance.example.edu)")
	configCmd.Flags().String("cookie", "", "Set the login session cookie copied from the browser")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configClearCmd)
	configCmd.AddCommand(configThemeCmd)
	rootCmd.AddCommand(configCmd)
}

// setServerConfig updates the server and cookie, keeping other settings of
// an existing config file.
func setServerConfig(cmd *cobra.Command, server, cookie string) error {
	cfg, err := ReadConfig(configFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		cfg = &Config{Version: ConfigVersion}
	}
	cfg.Version = ConfigVersion
	if server != "" {
		cfg.ServerURL = MorphServer(server)
		// a cookie belongs to one server
		cfg.SessionCookie = ""
	}
	if cookie != "" {
		cfg.SessionCookie = cookie
	}
	if err := cfg.ValidateConfig(); err != nil {
		return err
	}

	if err := cfg.WriteConfig(configFile); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), map[string]string{
			"server":      cfg.ServerURL,
			"config_file": configFile,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Server configured: %s\n", cfg.ServerURL)
	fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", configFile)
	return nil
}
