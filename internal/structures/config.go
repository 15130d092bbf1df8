package structures

import "time"

type Server struct {
	Host        string `yaml:"host" validate:"required"`
	Port        int    `yaml:"port" validate:"required|uint|min:1"`
	MaxBodySize int64  `yaml:"maxBodySize" validate:"required|min:1"`
}

type Persistence struct {
	FilePath    string `yaml:"filePath" validate:"required"`
	Compression string `yaml:"compression" validate:"in:none,zstd,gzip"`
	FileMode    uint32 `yaml:"fileMode" validate:"uint"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type CorsConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
	MaxAge         int      `yaml:"maxAge" validate:"uint"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type RateLimitConfig struct {
	Enabled bool `yaml:"enabled"`
	Rps     int  `yaml:"rps" validate:"uint"`
	Burst   int  `yaml:"burst" validate:"uint"`
}

type Config struct {
	AppName     string
	Debug       bool
	Path        string
	WebServer   Server          `yaml:"webServer"`
	Persistence Persistence     `yaml:"persistence"`
	Logger      LoggerConfig    `yaml:"logger"`
	Cors        CorsConfig      `yaml:"cors"`
	Cache       CacheConfig     `yaml:"cache"`
	Metrics     MetricsConfig   `yaml:"metrics"`
	RateLimit   RateLimitConfig `yaml:"rateLimit"`
}
