package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	APIPort  int `yaml:"apiPort"`
	Database struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	JWT struct {
		Secret          string        `yaml:"secret"`
		SessionTTL      time.Duration `yaml:"sessionTTL"`
		VerificationTTL time.Duration `yaml:"verificationTTL"`
	} `yaml:"jwt"`
	Session struct {
		TTL        time.Duration `yaml:"ttl"`
		Sliding    bool          `yaml:"sliding"`
		CookieName string        `yaml:"cookieName"`
		Secure     bool          `yaml:"secure"`
	} `yaml:"session"`
	Limits struct {
		Window         time.Duration `yaml:"window"`
		Max            int           `yaml:"max"`
		SlowdownAfter  int           `yaml:"slowdownAfter"`
		SlowdownStep   time.Duration `yaml:"slowdownStep"`
		SlowdownMax    time.Duration `yaml:"slowdownMax"`
		ResendCooldown time.Duration `yaml:"resendCooldown"`
	} `yaml:"limits"`
	Origins struct {
		Allowed []string `yaml:"allowed"`
	} `yaml:"origins"`
	Mail struct {
		Host      string `yaml:"host"`
		Port      int    `yaml:"port"`
		Username  string `yaml:"username"`
		Password  string `yaml:"password"`
		From      string `yaml:"from"`
		ClientURL string `yaml:"clientURL"`
	} `yaml:"mail"`
	Timeouts struct {
		Dependency time.Duration `yaml:"dependency"`
	} `yaml:"timeouts"`
}

// LoadConfig loads the configuration from file and environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APISITE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		log.Printf("Warning: Could not read config file: %s. Using defaults or environment variables.", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.APIPort == 0 {
		cfg.APIPort = 8080
		log.Println("apiPort not specified, using default 8080")
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite3"
		log.Println("Database driver not specified, using default sqlite3")
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "/data/apisite.db"
		log.Println("Database DSN not specified, using default /data/apisite.db")
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
		log.Println("Redis address not specified, using default localhost:6379")
	}

	if cfg.JWT.SessionTTL == 0 {
		cfg.JWT.SessionTTL = 15 * time.Minute
	}
	if cfg.JWT.VerificationTTL == 0 {
		cfg.JWT.VerificationTTL = 15 * time.Minute
	}
	if cfg.JWT.VerificationTTL > time.Hour {
		cfg.JWT.VerificationTTL = time.Hour
		log.Println("Verification token TTL capped at 1h")
	}

	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 24 * time.Hour
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = "session_token"
	}
	if !v.IsSet("session.sliding") {
		cfg.Session.Sliding = true
	}
	if !v.IsSet("session.secure") {
		cfg.Session.Secure = true
	}

	if cfg.Limits.Window == 0 {
		cfg.Limits.Window = time.Minute
	}
	if cfg.Limits.Max == 0 {
		cfg.Limits.Max = 30
	}
	if cfg.Limits.SlowdownAfter == 0 {
		cfg.Limits.SlowdownAfter = 10
	}
	if cfg.Limits.SlowdownStep == 0 {
		cfg.Limits.SlowdownStep = 250 * time.Millisecond
	}
	if cfg.Limits.SlowdownMax == 0 {
		cfg.Limits.SlowdownMax = 2 * time.Second
	}
	if cfg.Limits.ResendCooldown == 0 {
		cfg.Limits.ResendCooldown = time.Minute
	}

	if cfg.Mail.ClientURL == "" {
		cfg.Mail.ClientURL = "https://natemarcellus.com"
		log.Println("Mail clientURL not specified, using default https://natemarcellus.com")
	}

	if cfg.Timeouts.Dependency == 0 {
		cfg.Timeouts.Dependency = 5 * time.Second
	}

	return &cfg, nil
}
