package providers

import (
	"fmt"
	"github.com/spf13/viper"
	"path/filepath"
	"spd/internal/structures"
	"strings"
)

func setConfigDefaults() {
	viper.SetDefault("webServer.host", "127.0.0.1")
	viper.SetDefault("webServer.port", 3030)
	viper.SetDefault("webServer.maxBodySize", 32*1024)
	viper.SetDefault("persistence.filePath", "posts.json")
	viper.SetDefault("persistence.compression", "none")
	viper.SetDefault("persistence.fileMode", 0644)
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.mode", 0644)
	viper.SetDefault("cors.enabled", true)
	viper.SetDefault("cors.allowedOrigins", []string{"*"})
	viper.SetDefault("cors.maxAge", 10000000)
	viper.SetDefault("rateLimit.rps", 5)
	viper.SetDefault("rateLimit.burst", 10)
}

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	filename := filepath.Base(flags.ConfigPath)
	viper.AddConfigPath(filepath.Dir(flags.ConfigPath))
	viper.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	viper.SetConfigType("yaml")

	setConfigDefaults()

	viper.BindEnv("logger.level", "SPD_LOG_LEVEL")
	viper.BindEnv("webServer.host", "SPD_HOST")
	viper.BindEnv("webServer.port", "SPD_PORT")
	viper.BindEnv("persistence.filePath", "SPD_POSTS_FILE")
	viper.BindEnv("persistence.compression", "SPD_COMPRESSION")
	viper.BindEnv("cache.enabled", "SPD_CACHE_ENABLED")
	viper.BindEnv("cache.size", "SPD_CACHE_SIZE")
	viper.BindEnv("rateLimit.enabled", "SPD_RATE_LIMIT_ENABLED")

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = viper.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "SimplePostDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
