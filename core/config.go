package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env      string
		Build    string
		Debug    bool
		TestMode bool
		AppName  string
		WorkDir  string

		SecretKey         string
		AdminPassword     string
		AdminPasswordHash string
		AdminSessionTTL   time.Duration
		AdminEmails       []string

		TimeZone        string
		DuplicateWindow time.Duration

		DefaultSessionActive bool
		DefaultRadiusM       float64

		RollbarToken     string
		SendgridApiKey   string
		defaultFromEmail string

		Server    ServerConfig
		Database  DatabaseConfig
		RateLimit RateLimitConfig

		locOnce  sync.Once
		location *time.Location
	}

	ServerConfig struct {
		Host            string
		Address         string
		DebugAddress    string
		ShutdownTimeout time.Duration
		SecureCookies   bool
		// TrustProxy lets the X-Forwarded-For and X-Real-IP headers name the client.
		// Only enable it behind a proxy that overwrites them.
		TrustProxy bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RateLimitConfig struct {
		CheckInPerSecond float64
		CheckInBurst     int
		LoginPerSecond   float64
		LoginBurst       int
	}
)

// NewConfig loads the configuration from the environment.
// Variables are prefixed with the value of ENV (DEV by default), eg. DEV_DATABASE_NAME.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "2026 주중기도회")
	v.SetDefault("secretKey", "h9$x2!kq@prayer#m1z7&v3r0(tz)c8wl4^y6+d5e)n")
	v.SetDefault("adminPassword", "2026prayer")
	v.SetDefault("adminPasswordHash", "")
	v.SetDefault("adminSessionTTL", 12*time.Hour)
	v.SetDefault("adminEmails", "")
	v.SetDefault("timezone", "Asia/Seoul")
	v.SetDefault("duplicateWindow", time.Hour)
	v.SetDefault("defaultSessionActive", true)
	v.SetDefault("defaultRadiusM", 200.0)
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("defaultFromEmail", "noreply@localhost")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.secureCookies", false)
	v.SetDefault("server.trustProxy", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "prayercheck")
	v.SetDefault("database.user", "prayercheck")
	v.SetDefault("database.password", "prayercheck")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("rateLimit.checkInPerSecond", 5.0)
	v.SetDefault("rateLimit.checkInBurst", 10)
	v.SetDefault("rateLimit.loginPerSecond", 1.0)
	v.SetDefault("rateLimit.loginBurst", 5)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	v.SetDefault("testMode", env == "TEST")
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:      env,
		Build:    v.GetString("build"),
		Debug:    v.GetBool("debug"),
		TestMode: v.GetBool("testMode"),
		AppName:  v.GetString("appName"),
		WorkDir:  wd,

		SecretKey:         v.GetString("secretKey"),
		AdminPassword:     v.GetString("adminPassword"),
		AdminPasswordHash: v.GetString("adminPasswordHash"),
		AdminSessionTTL:   v.GetDuration("adminSessionTTL"),
		AdminEmails:       splitList(v.GetString("adminEmails")),

		TimeZone:        v.GetString("timezone"),
		DuplicateWindow: v.GetDuration("duplicateWindow"),

		DefaultSessionActive: v.GetBool("defaultSessionActive"),
		DefaultRadiusM:       v.GetFloat64("defaultRadiusM"),

		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		defaultFromEmail: v.GetString("defaultFromEmail"),

		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Address:         v.GetString("server.address"),
			DebugAddress:    v.GetString("server.debugAddress"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			SecureCookies:   v.GetBool("server.secureCookies"),
			TrustProxy:      v.GetBool("server.trustProxy"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		RateLimit: RateLimitConfig{
			CheckInPerSecond: v.GetFloat64("rateLimit.checkInPerSecond"),
			CheckInBurst:     v.GetInt("rateLimit.checkInBurst"),
			LoginPerSecond:   v.GetFloat64("rateLimit.loginPerSecond"),
			LoginBurst:       v.GetInt("rateLimit.loginBurst"),
		},
	}
	return conf
}

// NewTestConfig returns a Config suitable for tests: no env lookups, no .env files.
func NewTestConfig() *Config {
	return &Config{
		Env:                  "TEST",
		Build:                "test",
		TestMode:             true,
		AppName:              "2026 주중기도회",
		SecretKey:            "secret",
		AdminPassword:        "2026prayer",
		AdminSessionTTL:      time.Hour,
		TimeZone:             "Asia/Seoul",
		DuplicateWindow:      time.Hour,
		DefaultSessionActive: true,
		DefaultRadiusM:       200,
		defaultFromEmail:     "noreply@localhost",
		Server: ServerConfig{
			Host:            "localhost",
			ShutdownTimeout: time.Second,
		},
		RateLimit: RateLimitConfig{
			CheckInPerSecond: 1000,
			CheckInBurst:     1000,
			LoginPerSecond:   1000,
			LoginBurst:       1000,
		},
	}
}

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, strconv.Itoa(dbc.Port))
}

func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: conf.defaultFromEmail}
	}
	if addr.Name == "" {
		addr.Name = conf.AppName
	}
	return *addr
}

// Location is the time zone attendance days are bucketed in.
// Falls back to a fixed KST offset when the tz database is unavailable.
func (conf *Config) Location() *time.Location {
	conf.locOnce.Do(func() {
		loc, err := time.LoadLocation(conf.TimeZone)
		if err != nil || conf.TimeZone == "" {
			loc = time.FixedZone("KST", 9*60*60)
		}
		conf.location = loc
	})
	return conf.location
}

func (conf *Config) String() string {
	return fmt.Sprintf("%s (%s) env=%s debug=%v", conf.AppName, conf.Build, conf.Env, conf.Debug)
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
