package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level

	// LogFile is the tab-separated sensor log written by the logger daemon.
	LogFile string

	HTTPAddr        string
	WebappDebug     bool
	UnsubscribeLink string

	SenderEmail    string
	SenderPassword string
	SMTPHost       string
	SMTPPort       int
	SMTPRequireTLS bool
	ReceiverEmail  string
	SheetID        string
	SheetBaseURL   string
	FormLink       string
	DashboardURL   string
	DigestSchedule string

	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration
	SQLiteLogStatements   bool

	MQTTBroker    string
	MQTTPort      int
	MQTTClientID  string
	StationID     string
	RelayInterval time.Duration

	// I2CBus is the periph.io bus name; empty selects the first bus.
	I2CBus             string
	BME280InteriorAddr uint16
	// Zero disables the sensor.
	BME280ExteriorAddr uint16
	ADS1115Addr        uint16
	SamplePeriod       time.Duration
	SamplesPerPeriod   int
}

// LoadDotEnv loads variables from path into the process environment.
// Variables that are already set win over the file. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	webappDebug, err := envBool("WEBAPP_DEBUG", false)
	if err != nil {
		return Config{}, err
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
		if webappDebug {
			logLevelStr = "debug"
		}
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	logFile := envString("LOG_FILE", "log.txt")
	logFile, err = filepath.Abs(logFile)
	if err != nil {
		return Config{}, fmt.Errorf("LOG_FILE %q: %w", logFile, err)
	}

	smtpPort, err := envInt("SMTP_PORT", 587)
	if err != nil {
		return Config{}, err
	}
	smtpRequireTLS, err := envBool("SMTP_REQUIRE_TLS", true)
	if err != nil {
		return Config{}, err
	}

	maxOpenConns, err := envInt("DB_MAX_OPEN_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := envInt("DB_MAX_IDLE_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := envDuration("DB_CONN_MAX_LIFETIME", 0)
	if err != nil {
		return Config{}, err
	}
	logStatements, err := envBool("DB_LOG_SQL", false)
	if err != nil {
		return Config{}, err
	}

	mqttPort, err := envInt("MQTT_PORT", 1883)
	if err != nil {
		return Config{}, err
	}
	relayInterval, err := envDuration("RELAY_INTERVAL", time.Minute)
	if err != nil {
		return Config{}, err
	}
	if relayInterval <= 0 {
		return Config{}, fmt.Errorf("RELAY_INTERVAL must be positive, got %v", relayInterval)
	}

	interiorAddr, err := envAddr("BME280_INTERIOR_ADDR", 0x76)
	if err != nil {
		return Config{}, err
	}
	exteriorAddr, err := envAddr("BME280_EXTERIOR_ADDR", 0x77)
	if err != nil {
		return Config{}, err
	}
	adsAddr, err := envAddr("ADS1115_ADDR", 0)
	if err != nil {
		return Config{}, err
	}
	samplePeriod, err := envDuration("SAMPLE_PERIOD", time.Minute)
	if err != nil {
		return Config{}, err
	}
	samples, err := envInt("SAMPLES_PER_PERIOD", 60)
	if err != nil {
		return Config{}, err
	}
	if samplePeriod <= 0 || samples <= 0 {
		return Config{}, fmt.Errorf("SAMPLE_PERIOD and SAMPLES_PER_PERIOD must be positive, got %v and %d", samplePeriod, samples)
	}

	return Config{
		AppEnv:   appEnv,
		LogLevel: level,
		LogFile:  logFile,

		HTTPAddr:        envString("HTTP_ADDR", ":8050"),
		WebappDebug:     webappDebug,
		UnsubscribeLink: envString("UNSUBSCRIBE_LINK", ""),

		SenderEmail:    envString("SENDER_EMAIL", ""),
		SenderPassword: os.Getenv("PASSWORD"),
		SMTPHost:       envString("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:       smtpPort,
		SMTPRequireTLS: smtpRequireTLS,
		ReceiverEmail:  envString("RECEIVER_EMAIL", ""),
		SheetID:        envString("SHEET_ID", ""),
		SheetBaseURL:   envString("SHEET_BASE_URL", "https://docs.google.com/spreadsheets/d/e"),
		FormLink:       envString("FORM_LINK", ""),
		DashboardURL:   envString("DASHBOARD_URL", "https://home.gafc.info/"),
		DigestSchedule: envString("DIGEST_SCHEDULE", "0 2 * * 1"),

		SQLitePath:            envString("SQLITE_PATH", "data/app.db"),
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,
		SQLiteLogStatements:   logStatements,

		MQTTBroker:    envString("MQTT_BROKER", "localhost"),
		MQTTPort:      mqttPort,
		MQTTClientID:  envString("MQTT_CLIENT_ID", "temperature-logger-relay"),
		StationID:     envString("STATION_ID", "home"),
		RelayInterval: relayInterval,

		I2CBus:             envString("I2C_BUS", ""),
		BME280InteriorAddr: interiorAddr,
		BME280ExteriorAddr: exteriorAddr,
		ADS1115Addr:        adsAddr,
		SamplePeriod:       samplePeriod,
		SamplesPerPeriod:   samples,
	}, nil
}

// ValidateDigest reports the settings the email digest cannot run without.
func (c Config) ValidateDigest() error {
	var errs []error
	if c.SenderEmail == "" {
		errs = append(errs, errors.New("SENDER_EMAIL is required"))
	}
	if c.SheetID == "" {
		errs = append(errs, errors.New("SHEET_ID is required"))
	}
	if c.SMTPHost == "" {
		errs = append(errs, errors.New("SMTP_HOST is required"))
	}
	return errors.Join(errs...)
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

// envAddr parses an I2C address, accepting 0x prefixed hex.
func envAddr(key string, def uint16) (uint16, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return uint16(n), nil
}

func envBool(key string, def bool) (bool, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
