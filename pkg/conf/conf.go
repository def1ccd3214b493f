package conf

import (
	"fmt"
	"reflect"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/appdex/appdex/pkg/log"
)

func init() {
	viper.AutomaticEnv()
}

// LoadConfigFile reads a TOML config file from confDir into cfg (a pointer)
// and re-parses it whenever the file changes on disk. The file is loaded
// into the process-wide viper instance so flat key lookups (GetString,
// GetBool and the settings store) see the same values.
func LoadConfigFile(confDir string, cfg interface{}) error {
	cfgValue := reflect.ValueOf(cfg)
	if cfgValue.Kind() != reflect.Ptr || cfgValue.IsNil() {
		return fmt.Errorf("cfg must be a non-nil pointer")
	}

	viper.AddConfigPath(confDir)
	viper.SetConfigName("config")
	viper.SetConfigType("toml")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read configuration file: %w", err)
	}

	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		log.Infof("configuration changed, re-parsing: %s", e.Name)
		if err := viper.Unmarshal(cfg); err != nil {
			log.Errorf("failed to unmarshal configuration file: %v", err)
		}
	})
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal configuration file: %w", err)
	}

	log.Infof("configuration file path: %s", confDir)
	return nil
}

func GetString(key string) string {
	return viper.GetString(key)
}

func GetInt(key string) int {
	return viper.GetInt(key)
}

func GetBool(key string) bool {
	return viper.GetBool(key)
}

func Set(key string, value interface{}) {
	viper.Set(key, value)
}
