package app

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/VanshAg283/FCS-Project/internal/domain"
)

// EnvPrefix namespaces environment overrides, e.g. FCSCHAT_RELAY.
const EnvPrefix = "FCSCHAT"

const configName = "config"

// Config holds runtime wiring options for building the app.
type Config struct {
	Home           string        // config directory, e.g. $HOME/.fcschat
	RelayURL       string        // relay base URL, e.g. http://127.0.0.1:8080
	Token          string        // bearer token issued by the relay
	User           domain.UserID // own user id on the relay
	Passphrase     string
	LogLevel       string
	Development    bool
	HistoryWorkers int

	HTTP *http.Client // optional; defaults to http.DefaultClient
}

// DefaultHome is ~/.fcschat.
func DefaultHome() (string, error) {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".fcschat"), nil
}

// LoadConfig resolves Config from v: bound flags, FCSCHAT_* variables and
// config.yaml in the home directory, in that order of precedence.
func LoadConfig(v *viper.Viper) (Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("relay", "http://127.0.0.1:8080")
	v.SetDefault("log_level", "warn")
	v.SetDefault("history_workers", 4)

	home := v.GetString("home")
	if home == "" {
		var err error
		if home, err = DefaultHome(); err != nil {
			return Config{}, err
		}
	}

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(home)
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return Config{}, err
		}
	}

	return Config{
		Home:           home,
		RelayURL:       v.GetString("relay"),
		Token:          v.GetString("token"),
		User:           domain.UserID(v.GetString("user")),
		Passphrase:     v.GetString("passphrase"),
		LogLevel:       v.GetString("log_level"),
		Development:    v.GetBool("dev"),
		HistoryWorkers: v.GetInt("history_workers"),
	}, nil
}

// SaveSession records user and token in home/config.yaml, keeping any other
// keys already in the file. Flags and environment values are not persisted.
func SaveSession(home string, user domain.UserID, token string) error {
	if err := os.MkdirAll(home, 0o700); err != nil {
		return err
	}
	path := filepath.Join(home, configName+".yaml")

	v := viper.New()
	v.SetConfigFile(path)
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	v.Set("user", user.String())
	v.Set("token", token)
	v.SetConfigPermissions(0o600)
	return v.WriteConfigAs(path)
}
