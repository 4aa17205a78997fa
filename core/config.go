package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address                   string
		DebugAddress              string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		LoginRateLimit            float64 // requests per second per IP
		LoginRateBurst            int
	}

	MongoConfig struct {
		URI      string
		Database string
		Timeout  time.Duration
	}

	RedisConfig struct {
		URL      string
		Prefix   string
		CacheTTL time.Duration
	}

	LockoutConfig struct {
		MaxFailedLogins int
		Duration        time.Duration
	}

	Config struct {
		Env      string
		Debug    bool
		TestMode bool
		AppName  string
		Build    string
		WorkDir  string

		LogLevel  string // logrus level; empty means debug in debug mode, info otherwise
		LogFormat string // text | json

		SecretKey                 string
		PasswordResetTimeoutDelta time.Duration
		FrontendBaseURL           string

		Server  ServerConfig
		Mongo   MongoConfig
		Redis   RedisConfig
		Lockout LockoutConfig

		RollbarToken     string
		SendgridApiKey   string
		defaultFromEmail string
	}
)

func (c Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
}

// NewConfig reads the configuration from the environment, after loading config/.env.<env> when present.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Campus")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "x9c+wq)b1m$e57=dz&uo-h2(h!k)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("testMode", false)
	v.SetDefault("logLevel", "")
	v.SetDefault("logFormat", "")

	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverDebugAddress", ":4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("loginRateLimit", 0.5)
	v.SetDefault("loginRateBurst", 5)

	v.SetDefault("mongoURI", "mongodb://localhost:27017")
	v.SetDefault("mongoDatabase", "campus")
	v.SetDefault("mongoTimeout", 10*time.Second)

	v.SetDefault("redisURL", "")
	v.SetDefault("redisPrefix", "campus:")
	v.SetDefault("cacheTTL", time.Minute)

	v.SetDefault("maxFailedLogins", 5)
	v.SetDefault("lockoutDuration", 2*time.Hour)

	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch strings.ToUpper(env) {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	env = strings.ToUpper(env)
	v.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:      env,
		Debug:    v.GetBool("debug"),
		TestMode: v.GetBool("testMode"),
		AppName:  v.GetString("appName"),
		Build:    v.GetString("build"),
		WorkDir:  wd,

		LogLevel:  v.GetString("logLevel"),
		LogFormat: v.GetString("logFormat"),

		SecretKey:                 v.GetString("secretKey"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		FrontendBaseURL:           v.GetString("frontendBaseURL"),

		Server: ServerConfig{
			Address:                   v.GetString("serverAddress"),
			DebugAddress:              v.GetString("serverDebugAddress"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			LoginRateLimit:            v.GetFloat64("loginRateLimit"),
			LoginRateBurst:            v.GetInt("loginRateBurst"),
		},
		Mongo: MongoConfig{
			URI:      v.GetString("mongoURI"),
			Database: v.GetString("mongoDatabase"),
			Timeout:  v.GetDuration("mongoTimeout"),
		},
		Redis: RedisConfig{
			URL:      v.GetString("redisURL"),
			Prefix:   v.GetString("redisPrefix"),
			CacheTTL: v.GetDuration("cacheTTL"),
		},
		Lockout: LockoutConfig{
			MaxFailedLogins: v.GetInt("maxFailedLogins"),
			Duration:        v.GetDuration("lockoutDuration"),
		},

		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
	}
}

// NewTestConfig returns a config suitable for tests: no env lookups, short lockouts, generous rate limits.
func NewTestConfig() *Config {
	return &Config{
		Env:                       "TEST",
		TestMode:                  true,
		AppName:                   "Campus",
		Build:                     "test",
		LogLevel:                  "warn",
		SecretKey:                 "test-secret",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		FrontendBaseURL:           "http://localhost:3000",
		Server: ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			LoginRateLimit:            1000,
			LoginRateBurst:            1000,
		},
		Lockout: LockoutConfig{
			MaxFailedLogins: 5,
			Duration:        2 * time.Hour,
		},
		defaultFromEmail: "noreply@localhost",
	}
}
