package config

import (
	"github.com/FrankyKyaw/instapay/internal/logger"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MQ       MQConfig       `mapstructure:"mq"`
	Task     TaskConfig     `mapstructure:"task"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ChainConfig 链配置（公司付款账户）
type ChainConfig struct {
	ChainId     int64  `mapstructure:"chain_id"`     // 链ID
	RpcUrl      string `mapstructure:"rpc_url"`      // RPC节点URL
	PrivateKey  string `mapstructure:"private_key"`  // 公司账户私钥
	SendTimeout int    `mapstructure:"send_timeout"` // 转账超时（秒）
}

// RedisConfig Redis配置（结算锁与任务状态缓存）
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// MQConfig RabbitMQ配置（结算事件推送给下游记账系统）
type MQConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Url     string `mapstructure:"url"`
	Queue   string `mapstructure:"queue"`
}

type TaskConfig struct {
	RetryInterval int `mapstructure:"retry_interval"`  // 支付重试任务间隔（秒）
	AuditInterval int `mapstructure:"audit_interval"`  // 账本审计任务间隔（秒）
	RetryPoolSize int `mapstructure:"retry_pool_size"` // 重试协程池大小
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // 日志级别: debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // 输出目标: stdout, file
	File   string `mapstructure:"file"`   // 日志文件路径（当output为file时使用）
}

func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/instapay")

	// 设置默认值
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.dbname", "instapay")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("chain.chain_id", 1223953)
	viper.SetDefault("chain.send_timeout", 30)
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("mq.enabled", false)
	viper.SetDefault("mq.queue", "settlement_events")
	viper.SetDefault("task.retry_interval", 60)
	viper.SetDefault("task.audit_interval", 300)
	viper.SetDefault("task.retry_pool_size", 4)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.file", "logs/app.log")

	// 自动读取环境变量
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("Warning: Could not read config file: %v", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		logger.Fatal("Unable to decode config into struct: %v", err)
	}

	return &config
}
