package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	redisbroker "github.com/jwalitptl/clinic-api/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-api/pkg/worker"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	OTP        OTPConfig        `mapstructure:"otp"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Scheduling SchedulingConfig `mapstructure:"scheduling"`
	CORS       CORSConfig       `mapstructure:"cors"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	WhatsApp   WhatsAppConfig   `mapstructure:"whatsapp"`
	SMTP       SMTPConfig       `mapstructure:"smtp"`
	Outbox     OutboxConfig     `mapstructure:"outbox"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	Mode           string `mapstructure:"mode"`
	MaxBodyBytes   int64  `mapstructure:"max_body_bytes"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	URL          string `mapstructure:"url"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
}

type OTPConfig struct {
	// Store is "memory" or "redis".
	Store       string        `mapstructure:"store"`
	TTL         time.Duration `mapstructure:"ttl"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BcryptCost  int           `mapstructure:"bcrypt_cost"`
}

type AuthConfig struct {
	// DoctorPhone, when set, is the only phone allowed to use email login.
	DoctorPhone string `mapstructure:"doctor_phone"`
	// LeadsToEmail, when set, receives every email code instead of the doctor.
	LeadsToEmail string `mapstructure:"leads_to_email"`
}

type SchedulingConfig struct {
	Timezone string `mapstructure:"timezone"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	OTPPerMinute      int           `mapstructure:"otp_per_minute"`
	OTPBurst          int           `mapstructure:"otp_burst"`
	ClientTTL         time.Duration `mapstructure:"client_ttl"`
}

type WhatsAppConfig struct {
	Mode        string `mapstructure:"mode"`
	AccountSID  string `mapstructure:"account_sid"`
	AuthToken   string `mapstructure:"auth_token"`
	From        string `mapstructure:"from"`
	TemplateSID string `mapstructure:"template_sid"`
	SandboxTo   string `mapstructure:"sandbox_to"`
}

type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type OutboxConfig struct {
	Inline       bool          `mapstructure:"inline"`
	BatchSize    int           `mapstructure:"batch_size"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryDelay   time.Duration `mapstructure:"retry_delay"`
	Retention    time.Duration `mapstructure:"retention"`
	HealthPort   int           `mapstructure:"health_port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// envOverrides are the deployment variables the clinic has always used.
// Non-empty values win over the config file.
type envOverrides struct {
	JWTSecret          string   `envconfig:"JWT_SECRET"`
	OTPTTLMinutes      int      `envconfig:"OTP_TTL_MINUTES"`
	DoctorPhone        string   `envconfig:"DOCTOR_PHONE"`
	LeadsToEmail       string   `envconfig:"LEADS_TO_EMAIL"`
	ClientOrigin       []string `envconfig:"CLIENT_ORIGIN"`
	WhatsAppMode       string   `envconfig:"WHATSAPP_MODE"`
	TwilioSID          string   `envconfig:"TWILIO_SID"`
	TwilioAuthToken    string   `envconfig:"TWILIO_AUTH_TOKEN"`
	TwilioWhatsAppFrom string   `envconfig:"TWILIO_WHATSAPP_FROM"`
	TwilioTemplateSID  string   `envconfig:"TWILIO_TEMPLATE_SID"`
	SandboxTestTo      string   `envconfig:"SANDBOX_TEST_TO"`
	SMTPPassword       string   `envconfig:"SMTP_PASSWORD"`
	Port               int      `envconfig:"PORT"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.timeout_seconds", 30)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.max_body_bytes", 25<<20)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("jwt.expiry", 7*24*time.Hour)

	v.SetDefault("otp.store", "memory")
	v.SetDefault("otp.ttl", 5*time.Minute)
	v.SetDefault("otp.max_attempts", 5)
	v.SetDefault("otp.bcrypt_cost", 10)

	v.SetDefault("scheduling.timezone", "Asia/Jerusalem")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("rate_limit.requests_per_second", 50)
	v.SetDefault("rate_limit.burst", 100)
	v.SetDefault("rate_limit.otp_per_minute", 5)
	v.SetDefault("rate_limit.otp_burst", 3)
	v.SetDefault("rate_limit.client_ttl", 10*time.Minute)

	v.SetDefault("whatsapp.mode", "sandbox")

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.timeout", 10*time.Second)

	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.poll_interval", 5*time.Second)
	v.SetDefault("outbox.max_retries", 5)
	v.SetDefault("outbox.retry_delay", time.Second)
	v.SetDefault("outbox.retention", 7*24*time.Hour)
	v.SetDefault("outbox.health_port", 8081)

	v.SetDefault("log.level", "info")
}

func LoadConfig() (*Config, error) {
	return Load(".", "./config")
}

// Load reads config.yml from the first matching path. A missing file is not
// an error; defaults and the environment still apply.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	config.applyEnv(env)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyEnv(env envOverrides) {
	setString := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}

	setString(&c.JWT.Secret, env.JWTSecret)
	setString(&c.Auth.DoctorPhone, env.DoctorPhone)
	setString(&c.Auth.LeadsToEmail, env.LeadsToEmail)
	setString(&c.WhatsApp.Mode, env.WhatsAppMode)
	setString(&c.WhatsApp.AccountSID, env.TwilioSID)
	setString(&c.WhatsApp.AuthToken, env.TwilioAuthToken)
	setString(&c.WhatsApp.From, env.TwilioWhatsAppFrom)
	setString(&c.WhatsApp.TemplateSID, env.TwilioTemplateSID)
	setString(&c.WhatsApp.SandboxTo, env.SandboxTestTo)
	setString(&c.SMTP.Password, env.SMTPPassword)

	if env.OTPTTLMinutes > 0 {
		c.OTP.TTL = time.Duration(env.OTPTTLMinutes) * time.Minute
	}
	if env.Port > 0 {
		c.Server.Port = env.Port
	}
	if len(env.ClientOrigin) > 0 {
		c.CORS.AllowedOrigins = env.ClientOrigin
	}

	c.WhatsApp.Mode = strings.ToLower(strings.TrimSpace(c.WhatsApp.Mode))
	c.CORS.AllowedOrigins = normalizeOrigins(c.CORS.AllowedOrigins)
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSuffix(strings.TrimSpace(o), "/")
		if o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required (set JWT_SECRET)")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	switch c.OTP.Store {
	case "memory":
	case "redis":
		if c.Redis.URL == "" {
			return fmt.Errorf("otp.store=redis requires redis.url")
		}
	default:
		return fmt.Errorf("unknown otp.store %q", c.OTP.Store)
	}
	return nil
}

// Location is the clinic's scheduling time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Scheduling.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduling.timezone %q: %w", c.Scheduling.Timezone, err)
	}
	return loc, nil
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

func (r RedisConfig) ToBrokerConfig() redisbroker.Config {
	return redisbroker.Config{
		URL:          r.URL,
		PoolSize:     r.PoolSize,
		MinIdleConns: r.MinIdleConns,
	}
}

func (o OutboxConfig) ToWorkerConfig() worker.OutboxProcessorConfig {
	return worker.OutboxProcessorConfig{
		BatchSize:    o.BatchSize,
		PollInterval: o.PollInterval,
		MaxRetries:   o.MaxRetries,
		RetryDelay:   o.RetryDelay,
		Retention:    o.Retention,
	}
}
