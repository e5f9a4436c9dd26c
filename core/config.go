package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultJWTExpirationDelta        = 4 * time.Hour
	DefaultJWTRefreshExpirationDelta = 7 * 24 * time.Hour
	DefaultShutdownTimeout           = 5 * time.Second
)

type (
	Config struct {
		Env              string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		Build            string
		RollbarToken     string
		SendgridApiKey   string
		defaultFromEmail string

		Server struct {
			Host                      string
			Port                      string
			DebugHost                 string
			ShutdownTimeout           time.Duration
			JWTExpirationDelta        time.Duration
			JWTRefreshExpirationDelta time.Duration
		}

		Database struct {
			Engine        string
			Host          string
			Port          string
			Name          string
			User          string
			Password      string
			AdminUser     string
			AdminPassword string
			DisableTLS    bool
		}

		Report struct {
			FontFamily string
			FontPath   string
			LogoPath   string
		}

		School struct {
			Name            string
			DefaultExamUnit string
		}
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: "noreply@localhost"}
	}
	return *addr
}

func (c *Config) Address() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

// DSN host for the database connection.
func (c *Config) DBAddress() string {
	return net.JoinHostPort(c.Database.Host, c.Database.Port)
}

// NewConfig loads the configuration from the environment.
// The environment name (ENV) prefixes every variable, eg. DEV_DATABASE_NAME.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("app_name", "Pondok")
	v.SetDefault("secret_key", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("build", "dev")
	v.SetDefault("rollbar_token", "")
	v.SetDefault("sendgrid_api_key", "")
	v.SetDefault("default_from_email", "Pondok <noreply@localhost>")

	v.SetDefault("server_host", "")
	v.SetDefault("server_port", "8000")
	v.SetDefault("debug_host", "localhost:4000")
	v.SetDefault("shutdown_timeout", DefaultShutdownTimeout)
	v.SetDefault("jwt_expiration_delta", DefaultJWTExpirationDelta)
	v.SetDefault("jwt_refresh_expiration_delta", DefaultJWTRefreshExpirationDelta)

	v.SetDefault("database_engine", "postgres")
	v.SetDefault("database_host", "localhost")
	v.SetDefault("database_port", "5432")
	v.SetDefault("database_name", "pondok")
	v.SetDefault("database_user", "pondok")
	v.SetDefault("database_password", "")
	v.SetDefault("database_admin_user", "")
	v.SetDefault("database_admin_password", "")
	v.SetDefault("database_disable_tls", true)

	v.SetDefault("report_font_family", "THSarabunNew")
	v.SetDefault("report_font_path", "")
	v.SetDefault("report_logo_path", "")

	v.SetDefault("school_name", "")
	v.SetDefault("school_default_exam_unit", "80")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("test_mode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("test_mode"),
		AppName:          v.GetString("app_name"),
		SecretKey:        v.GetString("secret_key"),
		Build:            v.GetString("build"),
		RollbarToken:     v.GetString("rollbar_token"),
		SendgridApiKey:   v.GetString("sendgrid_api_key"),
		defaultFromEmail: v.GetString("default_from_email"),
	}

	conf.Server.Host = v.GetString("server_host")
	conf.Server.Port = v.GetString("server_port")
	conf.Server.DebugHost = v.GetString("debug_host")
	conf.Server.ShutdownTimeout = v.GetDuration("shutdown_timeout")
	conf.Server.JWTExpirationDelta = v.GetDuration("jwt_expiration_delta")
	conf.Server.JWTRefreshExpirationDelta = v.GetDuration("jwt_refresh_expiration_delta")

	conf.Database.Engine = v.GetString("database_engine")
	conf.Database.Host = v.GetString("database_host")
	conf.Database.Port = v.GetString("database_port")
	conf.Database.Name = v.GetString("database_name")
	conf.Database.User = v.GetString("database_user")
	conf.Database.Password = v.GetString("database_password")
	conf.Database.AdminUser = v.GetString("database_admin_user")
	conf.Database.AdminPassword = v.GetString("database_admin_password")
	conf.Database.DisableTLS = v.GetBool("database_disable_tls")

	conf.Report.FontFamily = v.GetString("report_font_family")
	conf.Report.FontPath = v.GetString("report_font_path")
	conf.Report.LogoPath = v.GetString("report_logo_path")

	conf.School.Name = v.GetString("school_name")
	conf.School.DefaultExamUnit = v.GetString("school_default_exam_unit")

	return conf
}
