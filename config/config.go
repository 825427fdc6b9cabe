// Package config 加载服务配置：YAML文件 + 环境变量覆盖
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// DefaultPath 未设置CONFIG_PATH时读取的配置文件
const DefaultPath = "config.yaml"

// Config 服务配置
type Config struct {
	Model struct {
		Path    string `yaml:"path"`
		Version string `yaml:"version"`
	} `yaml:"model"`
	Server struct {
		Host           string   `yaml:"host"`
		Port           int      `yaml:"port"`
		APIVersion     string   `yaml:"api_version"`
		RateLimitRPS   float64  `yaml:"rate_limit_rps"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
	Log struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"log"`
	Storage struct {
		PredictionLogPath string `yaml:"prediction_log_path"`
	} `yaml:"storage"`
	Cache struct {
		Size int `yaml:"size"`
	} `yaml:"cache"`
}

// Default 默认配置
func Default() *Config {
	cfg := &Config{}
	cfg.Model.Path = "models/churn_model.json"
	cfg.Model.Version = "1.0.0"
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 5000
	cfg.Server.APIVersion = "v1"
	cfg.Metrics.Enabled = true
	cfg.Log.Level = "INFO"
	cfg.Log.Dir = "logs"
	cfg.Storage.PredictionLogPath = "data/predictions.db"
	cfg.Cache.Size = 1024
	return cfg
}

// Path 配置文件路径，CONFIG_PATH优先
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

// Load 读取配置文件并应用环境变量覆盖。文件不存在时使用默认值
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.readFile(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("MODEL_PATH", &c.Model.Path)
	str("MODEL_VERSION", &c.Model.Version)
	str("API_VERSION", &c.Server.APIVersion)
	str("HOST", &c.Server.Host)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_DIR", &c.Log.Dir)
	str("PREDICTION_LOG_PATH", &c.Storage.PredictionLogPath)

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("ENABLE_METRICS"); ok && v != "" {
		c.Metrics.Enabled = strings.EqualFold(v, "true")
	}
	if v, ok := lookup("CACHE_SIZE"); ok && v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CACHE_SIZE %q: %w", v, err)
		}
		c.Cache.Size = size
	}
	if v, ok := lookup("RATE_LIMIT_RPS"); ok && v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_RPS %q: %w", v, err)
		}
		c.Server.RateLimitRPS = rps
	}
	if v, ok := lookup("ALLOWED_ORIGINS"); ok && v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate 检查配置取值范围
func (c *Config) Validate() error {
	switch {
	case c.Server.Port <= 0 || c.Server.Port > 65535:
		return fmt.Errorf("port out of range: %d", c.Server.Port)
	case c.Server.APIVersion == "":
		return errors.New("api_version must not be empty")
	case c.Model.Path == "":
		return errors.New("model path must not be empty")
	case c.Cache.Size < 0:
		return fmt.Errorf("cache size must not be negative: %d", c.Cache.Size)
	case c.Server.RateLimitRPS < 0:
		return fmt.Errorf("rate limit must not be negative: %v", c.Server.RateLimitRPS)
	}
	return nil
}

// Addr 监听地址
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// PredictPath 预测接口路径
func (c *Config) PredictPath() string {
	return "/api/" + c.Server.APIVersion + "/predict"
}
