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
	Config struct {
		AppName          string
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		WorkDir          string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		RollbarToken     string
		SendgridAPIKey   string

		Server   ServerConfig
		Database DatabaseConfig
		Cache    CacheConfig
		Portal   PortalConfig
	}

	ServerConfig struct {
		Host                      string
		Addr                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // inmem | postgres
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	CacheConfig struct {
		TTL        time.Duration
		MaxEntries int
		Coalesce   bool
	}

	PortalConfig struct {
		APIURL         string
		TokenPath      string
		PollInterval   time.Duration
		RequestTimeout time.Duration
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

// NewConfig reads the configuration from the environment, after loading `config/.env.<env>` if it exists.
// Environment variables are prefixed with the upper-cased env name, eg: DEV_DATABASE_HOST.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd, _ := os.Getwd()
	v.SetDefault("workDir", wd)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(v.GetString("workDir"), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		AppName:         v.GetString("appName"),
		Env:             env,
		Build:           v.GetString("build"),
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		SecretKey:       v.GetString("secretKey"),
		WorkDir:         v.GetString("workDir"),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("appName"),
			Address: v.GetString("defaultFromEmail"),
		},
		RollbarToken:   v.GetString("rollbarToken"),
		SendgridAPIKey: v.GetString("sendgridApiKey"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Addr:                      v.GetString("server.addr"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Cache: CacheConfig{
			TTL:        v.GetDuration("cache.ttl"),
			MaxEntries: v.GetInt("cache.maxEntries"),
			Coalesce:   v.GetBool("cache.coalesce"),
		},
		Portal: PortalConfig{
			APIURL:         v.GetString("portal.apiURL"),
			TokenPath:      v.GetString("portal.tokenPath"),
			PollInterval:   v.GetDuration("portal.pollInterval"),
			RequestTimeout: v.GetDuration("portal.requestTimeout"),
		},
	}
	return conf
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Masomo")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("database.engine", "inmem")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "masomo")
	v.SetDefault("database.user", "masomo")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.maxEntries", 10000)
	v.SetDefault("cache.coalesce", false)

	v.SetDefault("portal.apiURL", "http://localhost:8000/v1")
	v.SetDefault("portal.tokenPath", filepath.Join(os.TempDir(), "masomo", "token"))
	v.SetDefault("portal.pollInterval", 30*time.Second)
	v.SetDefault("portal.requestTimeout", 10*time.Second)
}

// NewTestConfig returns a Config suitable for tests: no .env lookup, fast expirations.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v)
	v.Set("testMode", true)
	v.Set("secretKey", "secret")
	conf := &Config{
		AppName:          v.GetString("appName"),
		Env:              "TEST",
		Build:            "test",
		Debug:            false,
		TestMode:         true,
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			JWTExpirationDelta:        10 * time.Minute,
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{Engine: "inmem"},
		Cache: CacheConfig{
			TTL:        v.GetDuration("cache.ttl"),
			MaxEntries: v.GetInt("cache.maxEntries"),
		},
		Portal: PortalConfig{
			PollInterval:   v.GetDuration("portal.pollInterval"),
			RequestTimeout: v.GetDuration("portal.requestTimeout"),
		},
	}
	return conf
}
