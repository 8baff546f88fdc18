package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	Scheduler struct {
		// 以下三项是法定工时限制的默认值，请求中未指定时使用
		MinRestHours         int     `env:"MIN_REST_HOURS" envDefault:"11"`
		MaxConsecutiveNights int     `env:"MAX_CONSECUTIVE_NIGHTS" envDefault:"3"`
		MaxWeeklyHours       int     `env:"MAX_WEEKLY_HOURS" envDefault:"48"`
		MaxIterations        int     `env:"MAX_ITERATIONS" envDefault:"20000"`
		ConvergenceThreshold float64 `env:"CONVERGENCE_THRESHOLD" envDefault:"0.001"`
		StallWindow          int     `env:"STALL_WINDOW" envDefault:"500"`
		TimeBudgetMS         int     `env:"TIME_BUDGET_MS" envDefault:"30000"`
		// ParallelRestarts 为 0 时按 CPU 核数决定并行重启数量
		ParallelRestarts int `env:"PARALLEL_RESTARTS" envDefault:"0"`
		ProgressInterval int `env:"PROGRESS_INTERVAL" envDefault:"200"`
	} `envPrefix:"SCHEDULER_"`
	Seed struct {
		EmployeeCount int `env:"EMPLOYEE_COUNT" envDefault:"30"`
		TeamCount     int `env:"TEAM_COUNT" envDefault:"4"`
	} `envPrefix:"SEED_"`
	Email struct {
		UserDomain string `env:"USER_DOMAIN,required"`
		SMTP       struct {
			Username    string `env:"USERNAME,required"`
			Password    string `env:"PASSWORD,required"`
			Host        string `env:"HOST,required"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host           string `env:"HOST" envDefault:"localhost"`
		Port           int    `env:"PORT" envDefault:"6379"`
		Password       string `env:"PASSWORD,required"`
		ConnectTimeout int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		// ProgressExpiration 是运行进度快照在 Redis 中的保留时间（秒）
		ProgressExpiration int `env:"PROGRESS_EXPIRATION" envDefault:"3600"`
		// SnapshotExpiration 是员工名单快照的缓存时间（秒）
		SnapshotExpiration int `env:"SNAPSHOT_EXPIRATION" envDefault:"60"`
	} `envPrefix:"REDIS_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
	}

	return cfg, nil
}
