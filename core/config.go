package core

import (
	"errors"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/spf13/viper"
)

// storage backends
const (
	StorageInMem    = "inmem"
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

var errUnknownStorageBackend = errors.New("unknown storage backend")

type Config struct {
	Debug    bool
	TestMode bool
	Env      string // DEV (default), TEST, QA, PROD
	AppName  string
	Build    string
	WorkDir  string

	defaultFromEmail string
	FrontendBaseURL  string
	SendgridApiKey   string
	RollbarToken     string

	Server struct {
		Host            string
		Port            string
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	Storage struct {
		Backend string // inmem | file | postgres
		Path    string // file backend: path to the collection blob
	}

	Database struct {
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

	Insight struct {
		BaseURL string
		ApiKey  string
		Model   string
		Timeout time.Duration
	}
}

func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Umahiri")
	v.SetDefault("build", "dev")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverPort", "8000")
	v.SetDefault("serverDebugHost", "localhost:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("storageBackend", StorageInMem)
	v.SetDefault("storagePath", "umahiri-sessions.json")
	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseName", "umahiri")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", "5432")
	v.SetDefault("databaseDisableTLS", true)
	v.SetDefault("insightBaseURL", "https://generativelanguage.googleapis.com")
	v.SetDefault("insightModel", "gemini-3-flash-preview")
	v.SetDefault("insightTimeout", 30*time.Second)

	env := os.Getenv("ENV")
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:            v.GetBool("debug"),
		TestMode:         env == "TEST",
		Env:              env,
		AppName:          v.GetString("appName"),
		Build:            v.GetString("build"),
		WorkDir:          wd,
		defaultFromEmail: v.GetString("defaultFromEmail"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
	}
	conf.Server.Host = v.GetString("serverHost")
	conf.Server.Port = v.GetString("serverPort")
	conf.Server.DebugHost = v.GetString("serverDebugHost")
	conf.Server.ShutdownTimeout = v.GetDuration("serverShutdownTimeout")
	conf.Storage.Backend = v.GetString("storageBackend")
	conf.Storage.Path = v.GetString("storagePath")
	conf.Database.Engine = v.GetString("databaseEngine")
	conf.Database.Name = v.GetString("databaseName")
	conf.Database.Host = v.GetString("databaseHost")
	conf.Database.Port = v.GetString("databasePort")
	conf.Database.User = v.GetString("databaseUser")
	conf.Database.Password = v.GetString("databasePassword")
	conf.Database.AdminUser = v.GetString("databaseAdminUser")
	conf.Database.AdminPassword = v.GetString("databaseAdminPassword")
	conf.Database.DisableTLS = v.GetBool("databaseDisableTLS")
	conf.Insight.BaseURL = v.GetString("insightBaseURL")
	conf.Insight.ApiKey = v.GetString("insightApiKey")
	conf.Insight.Model = v.GetString("insightModel")
	conf.Insight.Timeout = v.GetDuration("insightTimeout")

	if err := conf.validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	return conf
}

func (c *Config) validate() error {
	checks := []vala.Checker{
		vala.StringNotEmpty(c.AppName, "appName"),
		vala.StringNotEmpty(c.Server.Port, "serverPort"),
	}
	switch c.Storage.Backend {
	case StorageInMem:
	case StorageFile:
		checks = append(checks, vala.StringNotEmpty(c.Storage.Path, "storagePath"))
	case StoragePostgres:
		checks = append(checks,
			vala.StringNotEmpty(c.Database.Engine, "databaseEngine"),
			vala.StringNotEmpty(c.Database.Name, "databaseName"),
			vala.StringNotEmpty(c.Database.Host, "databaseHost"),
		)
	default:
		return errUnknownStorageBackend
	}
	return vala.BeginValidation().Validate(checks...).Check()
}

func (c *Config) ServerAddress() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

func (c *Config) DatabaseAddress() string {
	return net.JoinHostPort(c.Database.Host, c.Database.Port)
}

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
}
