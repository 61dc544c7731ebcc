package core

import (
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var errMissingConf = errors.New("missing required setting")

type Config struct {
	Debug    bool
	TestMode bool
	Env      string // DEV (local; default), TEST, QA, PROD
	AppName  string
	Build    string

	// SecretKey verifies access tokens issued by the hosted backend.
	SecretKey string

	DefaultFromEmail mail.Address
	AlertEmail       string
	RollbarToken     string

	Backend struct {
		BaseURL string
		APIKey  string

		CallTimeout    time.Duration
		ProbeTimeout   time.Duration
		MaxRetries     int
		RetryBaseDelay time.Duration
		RetryMaxDelay  time.Duration

		// AlertThreshold is the consecutive-error count that triggers an
		// unreachable-backend alert email. 0 disables alerting.
		AlertThreshold int
	}

	Server struct {
		Host            string
		Addr            string
		DebugHost       string
		ShutdownTimeout time.Duration
	}
}

// NewConfig loads the app configuration from the environment and an optional
// config/.env.<env> file. The backend base URL and public API key are required;
// their absence is a startup failure, not a soft default.
func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "IA Learning")
	v.SetDefault("build", "develop")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("backendCallTimeout", 10*time.Second)
	v.SetDefault("backendProbeTimeout", 3*time.Second)
	v.SetDefault("backendMaxRetries", 3)
	v.SetDefault("backendRetryBaseDelay", 500*time.Millisecond)
	v.SetDefault("backendRetryMaxDelay", 10*time.Second)
	v.SetDefault("backendAlertThreshold", 5)
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("serverDebugHost", "localhost:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "config.godotenv(%s)", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "config.os.Stat(%s)", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		Env:          env,
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		SecretKey:    v.GetString("secretKey"),
		AlertEmail:   v.GetString("alertEmail"),
		RollbarToken: v.GetString("rollbarToken"),
	}
	conf.DefaultFromEmail = mail.Address{Name: conf.AppName, Address: v.GetString("defaultFromEmail")}

	conf.Backend.BaseURL = strings.TrimRight(v.GetString("backendUrl"), "/")
	conf.Backend.APIKey = v.GetString("backendApiKey")
	conf.Backend.CallTimeout = v.GetDuration("backendCallTimeout")
	conf.Backend.ProbeTimeout = v.GetDuration("backendProbeTimeout")
	conf.Backend.MaxRetries = v.GetInt("backendMaxRetries")
	conf.Backend.RetryBaseDelay = v.GetDuration("backendRetryBaseDelay")
	conf.Backend.RetryMaxDelay = v.GetDuration("backendRetryMaxDelay")
	conf.Backend.AlertThreshold = v.GetInt("backendAlertThreshold")

	conf.Server.Host = v.GetString("serverHost")
	conf.Server.Addr = v.GetString("serverAddr")
	conf.Server.DebugHost = v.GetString("serverDebugHost")
	conf.Server.ShutdownTimeout = v.GetDuration("serverShutdownTimeout")

	if conf.Backend.BaseURL == "" {
		return nil, errors.Wrapf(errMissingConf, "%s_BACKENDURL", env)
	}
	if conf.Backend.APIKey == "" {
		return nil, errors.Wrapf(errMissingConf, "%s_BACKENDAPIKEY", env)
	}
	return conf, nil
}
