package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	Conf     *Config
	confOnce sync.Once
)

func init() {
	NewConfig()
}

type (
	ServerConfig struct {
		Host                      string
		Addr                      string
		DebugAddr                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	Config struct {
		Debug    bool
		TestMode bool
		Env      string
		Build    string
		AppName  string

		SecretKey       string
		WorkDir         string
		FrontendBaseURL string

		DefaultFromEmail mail.Address
		ContactEmail     mail.Address
		SendgridApiKey   string
		RollbarToken     string

		PasswordResetTimeoutDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewConfig loads the app configuration once: defaults first, then the
// env-specific .env file (if any), then environment variable overrides.
func NewConfig() *Config {
	confOnce.Do(func() {
		v := viper.New()
		v.SetTypeByDefaultValue(true)

		// defaults
		v.SetDefault("debug", true)
		v.SetDefault("build", "dev")
		v.SetDefault("appName", "Darasa")
		v.SetDefault("secretKey", "w8e#r)7nb$+57=dz&u0xh2(h!x)#*c2(#yg4h^$cegm2emy")
		v.SetDefault("frontendBaseURL", "http://localhost:3000")
		v.SetDefault("defaultFromEmail", "noreply@localhost")
		v.SetDefault("contactEmail", "contact@localhost")
		v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

		v.SetDefault("serverHost", "localhost")
		v.SetDefault("serverAddr", ":8000")
		v.SetDefault("serverDebugAddr", ":4000")
		v.SetDefault("serverShutdownTimeout", 5*time.Second)
		v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
		v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

		v.SetDefault("databaseEngine", "postgres")
		v.SetDefault("databaseName", "darasa")
		v.SetDefault("databaseHost", "localhost")
		v.SetDefault("databasePort", "5432")
		v.SetDefault("databaseUser", "")
		v.SetDefault("databasePassword", "")
		v.SetDefault("databaseAdminUser", "")
		v.SetDefault("databaseAdminPassword", "")
		v.SetDefault("databaseDisableTLS", true)

		env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
		switch env {
		case "":
			env = "DEV"
		case "TEST":
			v.SetDefault("testMode", true)
		}
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

		Conf = &Config{
			Debug:    v.GetBool("debug"),
			TestMode: v.GetBool("testMode"),
			Env:      env,
			Build:    v.GetString("build"),
			AppName:  v.GetString("appName"),

			SecretKey:       v.GetString("secretKey"),
			WorkDir:         wd,
			FrontendBaseURL: v.GetString("frontendBaseURL"),

			DefaultFromEmail: mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
			ContactEmail:     mail.Address{Address: v.GetString("contactEmail")},
			SendgridApiKey:   v.GetString("sendgridApiKey"),
			RollbarToken:     v.GetString("rollbarToken"),

			PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),

			Server: ServerConfig{
				Host:                      v.GetString("serverHost"),
				Addr:                      v.GetString("serverAddr"),
				DebugAddr:                 v.GetString("serverDebugAddr"),
				ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
				JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
				JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			},
			Database: DatabaseConfig{
				Engine:        v.GetString("databaseEngine"),
				Name:          v.GetString("databaseName"),
				Host:          v.GetString("databaseHost"),
				Port:          v.GetString("databasePort"),
				User:          v.GetString("databaseUser"),
				Password:      v.GetString("databasePassword"),
				AdminUser:     v.GetString("databaseAdminUser"),
				AdminPassword: v.GetString("databaseAdminPassword"),
				DisableTLS:    v.GetBool("databaseDisableTLS"),
			},
		}
	})
	return Conf
}
