package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"wa-relay-server/internal/models"
	"wa-relay-server/pkg/logger"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config holds all configuration settings
type Config struct {
	Server struct {
		Port int    `json:"port" yaml:"port"`
		Host string `json:"host" yaml:"host"`
	} `json:"server" yaml:"server"`
	Database struct {
		Driver        string `json:"driver" yaml:"driver"`
		DSN           string `json:"dsn" yaml:"dsn"`
		MongoURI      string `json:"mongo_uri" yaml:"mongo_uri"`
		MongoDatabase string `json:"mongo_database" yaml:"mongo_database"`
	} `json:"database" yaml:"database"`
	JWT struct {
		Secret      string   `json:"secret" yaml:"secret"`
		TokenExpiry Duration `json:"token_expiry" yaml:"token_expiry"`
	} `json:"jwt" yaml:"jwt"`
	Auth struct {
		Enabled           bool     `json:"enabled" yaml:"enabled"`
		AdminUsername     string   `json:"admin_username" yaml:"admin_username"`
		AdminPasswordHash string   `json:"admin_password_hash" yaml:"admin_password_hash"`
		TOTPSecret        string   `json:"totp_secret" yaml:"totp_secret"`
		Permissions       []string `json:"permissions" yaml:"permissions"`
	} `json:"auth" yaml:"auth"`
	Logging struct {
		Level   string `json:"level" yaml:"level"`
		Path    string `json:"path" yaml:"path"`
		Console bool   `json:"console" yaml:"console"`
	} `json:"logging" yaml:"logging"`
	WhatsApp struct {
		BaseURL       string   `json:"base_url" yaml:"base_url"`
		PhoneNumberID string   `json:"phone_number_id" yaml:"phone_number_id"`
		AccessToken   string   `json:"access_token" yaml:"access_token"`
		VerifyToken   string   `json:"verify_token" yaml:"verify_token"`
		AppSecret     string   `json:"app_secret" yaml:"app_secret"`
		Timeout       Duration `json:"timeout" yaml:"timeout"`
		CountryCode   string   `json:"country_code" yaml:"country_code"`
	} `json:"whatsapp" yaml:"whatsapp"`
	Media struct {
		CloudinaryURL string `json:"cloudinary_url" yaml:"cloudinary_url"`
		Folder        string `json:"folder" yaml:"folder"`
	} `json:"media" yaml:"media"`
	Chat struct {
		MaxMessages int `json:"max_messages" yaml:"max_messages"`
	} `json:"chat" yaml:"chat"`
	Bulk struct {
		SendInterval Duration `json:"send_interval" yaml:"send_interval"`
	} `json:"bulk" yaml:"bulk"`
	Templates struct {
		AllowUnknown    bool                                 `json:"allow_unknown" yaml:"allow_unknown"`
		DefaultLanguage string                               `json:"default_language" yaml:"default_language"`
		Descriptors     map[string]models.TemplateDescriptor `json:"descriptors" yaml:"descriptors"`
	} `json:"templates" yaml:"templates"`
	EventLog struct {
		Capacity      int    `json:"capacity" yaml:"capacity"`
		RedisAddr     string `json:"redis_addr" yaml:"redis_addr"`
		RedisPassword string `json:"redis_password" yaml:"redis_password"`
		RedisDB       int    `json:"redis_db" yaml:"redis_db"`
		RedisKey      string `json:"redis_key" yaml:"redis_key"`
	} `json:"event_log" yaml:"event_log"`
	KeepAlive struct {
		URL      string   `json:"url" yaml:"url"`
		Schedule string   `json:"schedule" yaml:"schedule"`
		Timeout  Duration `json:"timeout" yaml:"timeout"`
	} `json:"keep_alive" yaml:"keep_alive"`
}

// LoadConfig reads a JSON or YAML file (chosen by extension) over the defaults
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if !filepath.IsAbs(cleanPath) {
		return nil, fmt.Errorf("config path must be absolute")
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("config file error: %w", err)
	}
	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("config path is not a regular file")
	}

	file, err := os.Open(cleanPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			logger.Warn("Failed to close config file", zap.Error(closeErr))
		}
	}()

	config := DefaultConfig()
	switch strings.ToLower(filepath.Ext(cleanPath)) {
	case ".yaml", ".yml":
		err = yaml.NewDecoder(file).Decode(config)
	default:
		err = json.NewDecoder(file).Decode(config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	config := &Config{}
	config.Server.Port = 8080
	config.Server.Host = "localhost"
	config.Database.Driver = DriverSQLite
	config.Database.DSN = "file:relay.db?cache=shared&mode=rwc"
	config.Database.MongoDatabase = "relay"
	config.JWT.Secret = "change-me"
	config.JWT.TokenExpiry = Duration(24 * time.Hour)
	config.Auth.AdminUsername = "admin"
	config.Auth.Permissions = []string{"chat:read", "chat:write", "bulk:send", "bulk:history", "debug:read"}
	config.Logging.Level = "info"
	config.Logging.Path = "logs/relay.log"
	config.WhatsApp.BaseURL = "https://graph.facebook.com/v18.0"
	config.WhatsApp.Timeout = Duration(10 * time.Second)
	config.WhatsApp.CountryCode = "91"
	config.Media.Folder = "registrations"
	config.Chat.MaxMessages = models.MaxChatMessages
	config.Bulk.SendInterval = Duration(100 * time.Millisecond)
	config.Templates.DefaultLanguage = "en_US"
	config.Templates.Descriptors = map[string]models.TemplateDescriptor{
		"hello_world":               {Language: "en_US", BodyParams: 0, Header: models.HeaderNone},
		"tournament_announcement":   {Language: "en", BodyParams: 2, Header: models.HeaderImage},
		"tournament_reminder":       {Language: "en", BodyParams: 2, Header: models.HeaderNone},
		"registration_confirmation": {Language: "en", BodyParams: 1, Header: models.HeaderNone},
		"tournament_highlights":     {Language: "en", BodyParams: 1, Header: models.HeaderVideo},
	}
	config.EventLog.Capacity = 100
	config.EventLog.RedisKey = "relay:webhook-events"
	config.KeepAlive.Schedule = "@every 14m"
	config.KeepAlive.Timeout = Duration(10 * time.Second)
	return config
}

// ApplyEnv overrides settings, mostly secrets, from the environment
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT value %q: %w", v, err)
		}
		c.Server.Port = port
	}

	setString(&c.Database.Driver, "DATABASE_DRIVER")
	setString(&c.Database.DSN, "DATABASE_DSN")
	setString(&c.Database.MongoURI, "MONGO_URI")
	setString(&c.Database.MongoDatabase, "MONGO_DATABASE")
	setString(&c.JWT.Secret, "JWT_SECRET")
	setString(&c.Auth.AdminUsername, "ADMIN_USERNAME")
	setString(&c.Auth.AdminPasswordHash, "ADMIN_PASSWORD_HASH")
	setString(&c.Auth.TOTPSecret, "ADMIN_TOTP_SECRET")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Path, "LOG_PATH")
	setString(&c.WhatsApp.BaseURL, "WHATSAPP_API_URL")
	setString(&c.WhatsApp.PhoneNumberID, "WHATSAPP_PHONE_NUMBER_ID")
	setString(&c.WhatsApp.AccessToken, "WHATSAPP_ACCESS_TOKEN")
	setString(&c.WhatsApp.VerifyToken, "WHATSAPP_VERIFY_TOKEN")
	setString(&c.WhatsApp.AppSecret, "WHATSAPP_APP_SECRET")
	setString(&c.Media.CloudinaryURL, "CLOUDINARY_URL")
	setString(&c.EventLog.RedisAddr, "REDIS_ADDR")
	setString(&c.EventLog.RedisPassword, "REDIS_PASSWORD")
	setString(&c.KeepAlive.URL, "KEEPALIVE_URL")

	if v := os.Getenv("AUTH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid AUTH_ENABLED value %q: %w", v, err)
		}
		c.Auth.Enabled = enabled
	}

	return nil
}

// Validate checks the settings the server cannot start without
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535"))
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for sqlite"))
		}
	case DriverMongo:
		if c.Database.MongoURI == "" || c.Database.MongoDatabase == "" {
			errs = append(errs, errors.New("database.mongo_uri and database.mongo_database are required for mongo"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported database.driver %q", c.Database.Driver))
	}

	if c.Chat.MaxMessages <= 0 {
		errs = append(errs, errors.New("chat.max_messages must be > 0"))
	}
	if c.WhatsApp.Timeout <= 0 {
		errs = append(errs, errors.New("whatsapp.timeout must be > 0"))
	}
	if !isDigits(c.WhatsApp.CountryCode) {
		errs = append(errs, fmt.Errorf("whatsapp.country_code %q must be digits", c.WhatsApp.CountryCode))
	}
	if c.Bulk.SendInterval < 0 {
		errs = append(errs, errors.New("bulk.send_interval cannot be negative"))
	}
	if c.EventLog.Capacity <= 0 {
		errs = append(errs, errors.New("event_log.capacity must be > 0"))
	}
	if c.KeepAlive.Timeout <= 0 {
		errs = append(errs, errors.New("keep_alive.timeout must be > 0"))
	}

	for name, d := range c.Templates.Descriptors {
		if d.BodyParams < 0 {
			errs = append(errs, fmt.Errorf("template %q: body_params cannot be negative", name))
		}
		switch d.Header {
		case "", models.HeaderNone, models.HeaderImage, models.HeaderVideo:
		default:
			errs = append(errs, fmt.Errorf("template %q: unknown header kind %q", name, d.Header))
		}
	}

	if c.Auth.Enabled {
		if c.JWT.Secret == "" {
			errs = append(errs, errors.New("jwt.secret is required when auth is enabled"))
		}
		if c.Auth.AdminUsername == "" || c.Auth.AdminPasswordHash == "" {
			errs = append(errs, errors.New("auth.admin_username and auth.admin_password_hash are required when auth is enabled"))
		}
	}

	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
