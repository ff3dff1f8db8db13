package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	QoS         byte
	SampleTopic string // 采样主题，如 "vitals/+/sample"
}

// AlertThresholds 单级别报警阈值
type AlertThresholds struct {
	HeartRateAbove     int
	SpO2Below          int
	BloodPressureAbove int
	TemperatureAbove   float64
}

// Config 生命体征服务配置
type Config struct {
	ServiceName string

	HTTP struct {
		Addr            string
		ShutdownTimeout time.Duration
	}

	Database  DatabaseConfig
	DBEnabled bool

	Redis        RedisConfig
	RedisEnabled bool

	MQTT        MQTTConfig
	MQTTEnabled bool

	Vitals struct {
		// Redis 缓存配置
		Cache struct {
			RealtimeKeyPrefix string // 实时数据缓存键前缀，如 "vital-focus:patient:"
			RealtimeSuffix    string // 实时数据缓存键后缀，如 ":realtime"
			RealtimeTTL       int    // 实时数据 TTL（秒）
			AlarmKeyPrefix    string // 报警数据缓存键前缀
			AlarmSuffix       string // 报警数据缓存键后缀，如 ":alarms"
			AlarmTTL          int    // 报警数据 TTL（秒）
			AlarmStream       string // 报警事件 Redis Stream
		}

		// 模拟器（替代真实传感器）
		Simulator struct {
			Enabled  bool
			Interval time.Duration // 三个原型分别为 1000/2000/2500 ms
			Seed     int64
		}

		// 报警策略
		Alert struct {
			WindowSize int
			Red        AlertThresholds
			Yellow     AlertThresholds
		}

		// 每分钟均值默认返回的分钟数
		AverageMinutes int
	}

	AI struct {
		Provider     string // openrouter 或 gemini
		BaseURL      string
		APIKey       string
		Model        string
		Temperature  float64
		MaxTokens    int
		SystemPrompt string
		Timeout      time.Duration
		RetryCount   int
		Referer      string
		Title        string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置（先读取可选的 .env，再读环境变量）
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	cfg.ServiceName = getEnv("SERVICE_NAME", "wisefido-vitals")

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.HTTP.ShutdownTimeout = getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second)

	cfg.DBEnabled = getEnvBool("DB_ENABLED", false)
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "owlrd")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.RedisEnabled = getEnvBool("REDIS_ENABLED", false)
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTTEnabled = getEnvBool("MQTT_ENABLED", false)
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "wisefido-vitals")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 1))
	cfg.MQTT.SampleTopic = getEnv("MQTT_SAMPLE_TOPIC", "vitals/+/sample")

	// 缓存配置
	cfg.Vitals.Cache.RealtimeKeyPrefix = getEnv("CACHE_REALTIME_PREFIX", "vital-focus:patient:")
	cfg.Vitals.Cache.RealtimeSuffix = ":realtime"
	cfg.Vitals.Cache.RealtimeTTL = getEnvInt("CACHE_REALTIME_TTL", 60)
	cfg.Vitals.Cache.AlarmKeyPrefix = getEnv("CACHE_ALARM_PREFIX", "vital-focus:patient:")
	cfg.Vitals.Cache.AlarmSuffix = ":alarms"
	cfg.Vitals.Cache.AlarmTTL = getEnvInt("CACHE_ALARM_TTL", 300)
	cfg.Vitals.Cache.AlarmStream = getEnv("ALARM_STREAM", "vitals:alarm:stream")

	cfg.Vitals.Simulator.Enabled = getEnvBool("SIM_ENABLED", true)
	cfg.Vitals.Simulator.Interval = getEnvDuration("SIM_INTERVAL", 2*time.Second)
	cfg.Vitals.Simulator.Seed = int64(getEnvInt("SIM_SEED", int(time.Now().UnixNano()&0x7fffffff)))

	cfg.Vitals.Alert.WindowSize = getEnvInt("ALERT_WINDOW", 7)
	cfg.Vitals.Alert.Red = AlertThresholds{
		HeartRateAbove:     getEnvInt("ALERT_RED_HR_ABOVE", 110),
		SpO2Below:          getEnvInt("ALERT_RED_SPO2_BELOW", 90),
		BloodPressureAbove: getEnvInt("ALERT_RED_BP_ABOVE", 140),
		TemperatureAbove:   getEnvFloat("ALERT_RED_TEMP_ABOVE", 38),
	}
	cfg.Vitals.Alert.Yellow = AlertThresholds{
		HeartRateAbove:     getEnvInt("ALERT_YELLOW_HR_ABOVE", 100),
		SpO2Below:          getEnvInt("ALERT_YELLOW_SPO2_BELOW", 94),
		BloodPressureAbove: getEnvInt("ALERT_YELLOW_BP_ABOVE", 130),
		TemperatureAbove:   getEnvFloat("ALERT_YELLOW_TEMP_ABOVE", 37.5),
	}
	cfg.Vitals.AverageMinutes = getEnvInt("AVERAGE_MINUTES", 10)

	// AI 配置
	cfg.AI.Provider = getEnv("AI_PROVIDER", "openrouter")
	cfg.AI.BaseURL = getEnv("AI_BASE_URL", "")
	cfg.AI.APIKey = getEnv("AI_API_KEY", defaultAPIKey(cfg.AI.Provider))
	cfg.AI.Model = getEnv("AI_MODEL", "")
	cfg.AI.Temperature = getEnvFloat("AI_TEMPERATURE", 0.6)
	cfg.AI.MaxTokens = getEnvInt("AI_MAX_TOKENS", 0)
	cfg.AI.SystemPrompt = getEnv("AI_SYSTEM_PROMPT", "")
	cfg.AI.Timeout = getEnvDuration("AI_TIMEOUT", 30*time.Second)
	cfg.AI.RetryCount = getEnvInt("AI_RETRY_COUNT", 0)
	cfg.AI.Referer = getEnv("AI_HTTP_REFERER", "")
	cfg.AI.Title = getEnv("AI_TITLE", "Smart Patient Monitoring")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	// 少于 7 个采样不足以判定持续异常
	if cfg.Vitals.Alert.WindowSize < 7 || cfg.Vitals.Alert.WindowSize > 10 {
		return nil, fmt.Errorf("ALERT_WINDOW must be between 7 and 10, got %d", cfg.Vitals.Alert.WindowSize)
	}
	if cfg.AI.Provider != "openrouter" && cfg.AI.Provider != "gemini" {
		return nil, fmt.Errorf("unsupported AI_PROVIDER: %s", cfg.AI.Provider)
	}

	return cfg, nil
}

// defaultAPIKey 按服务商读取各自的 Key 变量
func defaultAPIKey(provider string) string {
	if provider == "gemini" {
		return os.Getenv("GEMINI_API_KEY")
	}
	return os.Getenv("OPENROUTER_API_KEY")
}

func loadDotEnv() error {
	path := getEnv("DOTENV_PATH", ".env")
	if _, err := os.Stat(path); err == nil {
		return godotenv.Load(path)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration 支持 "2s"/"2500ms"，纯数字按毫秒处理
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
