package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

var v *viper.Viper

func init() {
	v = newViper()
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("mediaprobe.home", filepath.Join(xdg.Home, ".mediaprobe"))
	// Resolved against mediaprobe.home when empty.
	v.SetDefault("asset.root", "")
	v.SetDefault("retrieve.probe_bytes", 64*1024)
	v.SetDefault("retrieve.retry_delay", 10*time.Millisecond)
	v.SetDefault("retrieve.timeout", 30*time.Second)

	v.AutomaticEnv()
	v.BindEnv("mediaprobe.home", "MEDIAPROBE_HOME")
	v.BindEnv("asset.root", "MEDIAPROBE_ASSET_ROOT")
	v.BindEnv("retrieve.probe_bytes", "MEDIAPROBE_PROBE_BYTES")
	v.BindEnv("retrieve.retry_delay", "MEDIAPROBE_RETRY_DELAY")
	v.BindEnv("retrieve.timeout", "MEDIAPROBE_TIMEOUT")

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	configPaths := []string{
		".",
		"$HOME/.mediaprobe",
		"/etc/mediaprobe",
	}
	for _, path := range configPaths {
		v.AddConfigPath(os.ExpandEnv(path))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(fmt.Sprintf("Fatal error reading config file: %s", err))
		}
	}
	return v
}

// GetHome returns the mediaprobe home directory
func GetHome() string {
	return v.GetString("mediaprobe.home")
}

// GetAssetRoot returns the directory asset:/// references resolve against
func GetAssetRoot() string {
	if root := v.GetString("asset.root"); root != "" {
		return root
	}
	return filepath.Join(GetHome(), "assets")
}

// GetProbeBytes returns how many leading bytes are offered to extractor sniffing
func GetProbeBytes() int {
	if n := v.GetInt("retrieve.probe_bytes"); n > 0 {
		return n
	}
	return 64 * 1024
}

// GetRetryDelay returns the back-off applied when input is temporarily unavailable
func GetRetryDelay() time.Duration {
	return v.GetDuration("retrieve.retry_delay")
}

// GetTimeout returns how long the CLI waits for a single retrieval
func GetTimeout() time.Duration {
	return v.GetDuration("retrieve.timeout")
}

// Set overrides a key for the lifetime of the process. Command flags use it
// so explicit flags win over config files and the environment.
func Set(key string, value interface{}) {
	v.Set(key, value)
}

// Settings returns every effective setting keyed by its dotted name.
func Settings() map[string]interface{} {
	return map[string]interface{}{
		"mediaprobe.home":      GetHome(),
		"asset.root":           GetAssetRoot(),
		"retrieve.probe_bytes": GetProbeBytes(),
		"retrieve.retry_delay": GetRetryDelay().String(),
		"retrieve.timeout":     GetTimeout().String(),
	}
}
