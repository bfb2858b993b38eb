package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration. main reads it once and hands
// pieces to the components that need them.
type Server struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	KafkaBrokers  []string
	JWTSigningKey string
	AdminToken    string

	RegistrationPrefix string

	SMTP SMTPConfig
	SMS  SMSConfig
}

// SMTPConfig configures the outbound email gateway.
type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

// SMSConfig configures the outbound SMS gateway (HTTP provider API).
type SMSConfig struct {
	GatewayURL string
	Password   string
	SenderID   string
	// LocalPrefix identifies mobile numbers eligible for SMS delivery;
	// numbers are rewritten to CountryCode before dispatch.
	LocalPrefix string
	CountryCode string
}

// OTPTTL is how long an issued one-time code stays valid.
var OTPTTL = 10 * time.Minute

// OTPSweepInterval is how often expired one-time codes are purged.
var OTPSweepInterval = 5 * time.Minute

// OfficerTokenTTL is the lifetime of an officer session token.
var OfficerTokenTTL = 4 * time.Hour

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:               envOr("PORTAL_ADDR", ":8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		JWTSigningKey:      envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		AdminToken:         envOr("ADMIN_TOKEN", "dev-admin-token"),
		RegistrationPrefix: envOr("REGISTRATION_PREFIX", "CPC"),
		SMTP: SMTPConfig{
			Host: os.Getenv("SMTP_HOST"),
			Port: envOr("SMTP_PORT", "587"),
			User: os.Getenv("SMTP_USER"),
			Pass: os.Getenv("SMTP_PASS"),
			From: envOr("SMTP_FROM", "no-reply@portal.local"),
		},
		SMS: SMSConfig{
			GatewayURL:  os.Getenv("SMS_GATEWAY_URL"),
			Password:    os.Getenv("SMS_GATEWAY_PASS"),
			SenderID:    envOr("SMS_SENDER_ID", "PORTAL"),
			LocalPrefix: envOr("SMS_LOCAL_PREFIX", "07"),
			CountryCode: envOr("SMS_COUNTRY_CODE", "94"),
		},
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
