package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 控制台配置
// 支持YAML配置文件和环境变量覆盖
type Config struct {
	// ===== 后端接入 =====
	APIBaseURL string `yaml:"apiBaseUrl" json:"apiBaseUrl"` // 后端 API 基础地址
	APIToken   string `yaml:"apiToken" json:"apiToken"`     // 认证 token（可选）
	TimeoutSec int    `yaml:"timeoutSec" json:"timeoutSec"` // 单次请求超时（秒）

	// ===== 行为参数 =====
	EquityPollIntervalSec int `yaml:"equityPollIntervalSec" json:"equityPollIntervalSec"` // 权益轮询间隔（秒）
	SearchDebounceMs      int `yaml:"searchDebounceMs" json:"searchDebounceMs"`           // 符号搜索防抖（毫秒）

	// ===== 本地缓存 =====
	CredCacheDir string `yaml:"credCacheDir" json:"credCacheDir"` // 凭证摘要缓存目录（badger）

	// ===== 日志 =====
	LogLevel string `yaml:"logLevel" json:"logLevel"` // debug / info / warn / error
	LogFile  string `yaml:"logFile" json:"logFile"`   // 日志文件路径
}

// 默认值
const (
	DefaultTimeoutSec            = 30
	DefaultEquityPollIntervalSec = 30
	DefaultSearchDebounceMs      = 500
)

// ApplyDefaults 应用默认值
func (c *Config) ApplyDefaults() {
	if c.APIBaseURL == "" {
		c.APIBaseURL = "http://127.0.0.1:8000"
	}
	if c.TimeoutSec == 0 {
		c.TimeoutSec = DefaultTimeoutSec
	}
	if c.EquityPollIntervalSec == 0 {
		c.EquityPollIntervalSec = DefaultEquityPollIntervalSec
	}
	if c.SearchDebounceMs == 0 {
		c.SearchDebounceMs = DefaultSearchDebounceMs
	}
	if c.CredCacheDir == "" {
		c.CredCacheDir = "data/credcache"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFile == "" {
		c.LogFile = "logs/console.log"
	}
}

// Validate 验证配置有效性
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config不能为空")
	}
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("apiBaseUrl必须是http(s)地址，当前值: %s", c.APIBaseURL)
	}
	if c.TimeoutSec <= 0 {
		return fmt.Errorf("timeoutSec必须大于0，当前值: %d", c.TimeoutSec)
	}
	if c.EquityPollIntervalSec <= 0 {
		return fmt.Errorf("equityPollIntervalSec必须大于0，当前值: %d", c.EquityPollIntervalSec)
	}
	if c.SearchDebounceMs < 0 {
		return fmt.Errorf("searchDebounceMs不能为负数，当前值: %d", c.SearchDebounceMs)
	}
	return nil
}

// Timeout 请求超时时长
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// EquityPollInterval 权益轮询间隔
func (c *Config) EquityPollInterval() time.Duration {
	return time.Duration(c.EquityPollIntervalSec) * time.Second
}

// SearchDebounce 搜索防抖时长
func (c *Config) SearchDebounce() time.Duration {
	return time.Duration(c.SearchDebounceMs) * time.Millisecond
}

// Load 加载配置：文件（可选）→ 默认值 → 环境变量覆盖 → 校验
func Load(path string) (*Config, error) {
	config := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("读取配置文件失败: %w", err)
			}
			// 配置文件不存在，使用默认配置
		} else if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("解析YAML配置失败: %w", err)
		}
	}

	config.ApplyDefaults()
	applyEnvironmentOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}
	return config, nil
}

// applyEnvironmentOverrides 应用环境变量覆盖
// 环境变量格式: GOSTRAT_FIELD_NAME
func applyEnvironmentOverrides(config *Config) {
	prefix := "GOSTRAT_"

	if val := os.Getenv(prefix + "API_BASE_URL"); val != "" {
		config.APIBaseURL = val
	}
	if val := os.Getenv(prefix + "API_TOKEN"); val != "" {
		config.APIToken = val
	}
	if val := os.Getenv(prefix + "TIMEOUT_SEC"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			config.TimeoutSec = i
		}
	}
	if val := os.Getenv(prefix + "EQUITY_POLL_INTERVAL_SEC"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			config.EquityPollIntervalSec = i
		}
	}
	if val := os.Getenv(prefix + "SEARCH_DEBOUNCE_MS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			config.SearchDebounceMs = i
		}
	}
	if val := os.Getenv(prefix + "CRED_CACHE_DIR"); val != "" {
		config.CredCacheDir = val
	}
	if val := os.Getenv(prefix + "LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}
	if val := os.Getenv(prefix + "LOG_FILE"); val != "" {
		config.LogFile = val
	}
}
