package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
)

const (
	// AppName names the config directory and file.
	AppName = "livechat-tts"

	// EnvPrefix prefixes environment overrides, e.g. LIVECHAT_TTS_QUEUE_SIZE.
	EnvPrefix = "livechat_tts"
)

// SearchDirs returns the directories searched for livechat-tts.yml, most
// specific first.
func SearchDirs() ([]string, error) {
	scope := gap.NewScope(gap.User, AppName)
	dirs, err := scope.ConfigDirs()
	if err != nil {
		return nil, fmt.Errorf("could not find configuration directory: %w", err)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, AppName)}, dirs...)
	}
	if c := os.Getenv("LIVECHAT_TTS_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}
	return dirs, nil
}

// NewViper returns a viper instance with defaults and environment
// overrides registered.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// ReadInConfig loads path, or the first livechat-tts.yml found in dirs
// when path is empty. A missing file in the search dirs is not an error;
// the returned path is then empty.
func ReadInConfig(v *viper.Viper, path string, dirs []string) (string, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		for _, d := range dirs {
			v.AddConfigPath(d)
		}
		v.SetConfigName(AppName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("could not parse configuration file: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// EnsureFile writes DefaultYAML to path unless the file already exists.
func EnsureFile(path string) error {
	if ext := filepath.Ext(path); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return fmt.Errorf("unable to create directory: %w", err)
		}
		// 0600: the file may hold API keys.
		if err := os.WriteFile(path, []byte(DefaultYAML), 0o600); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
