package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable. Required values are enforced at load time so a
// misconfigured process refuses to start instead of failing mid-request;
// the Google and mail settings are optional because the features degrade
// cleanly without them (OAuth endpoints report a server error, mail falls
// back to logging).
type Config struct {
	Env        string // application environment (e.g. "dev", "prod")
	Port       string // HTTP port to listen on
	DBUser     string // database username
	DBPass     string // database password (optional)
	DBHost     string // database host address
	DBPort     string // database port number
	DBName     string // database name
	JWTSecret  string // secret used to sign session tokens
	BcryptCost int    // bcrypt cost for password hashing

	GoogleClientID     string // Google OAuth client id (optional)
	GoogleClientSecret string // Google OAuth client secret (optional)
	GoogleRedirectURI  string // Google OAuth redirect URI (optional)

	AMQPURL  string // RabbitMQ URL for the mail queue (optional)
	MailFrom string // sender address for outgoing mail

	SMTPHost string // SMTP host for the mail consumer (optional)
	SMTPPort string // SMTP port
	SMTPUser string // SMTP username
	SMTPPass string // SMTP password
}

// Load reads configuration values from environment variables and returns a
// Config. Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:        must("APP_ENV"),      // environment (dev/test/prod)
		Port:       must("APP_PORT"),     // port to bind the HTTP server
		DBUser:     must("DB_USER"),      // database user
		DBPass:     os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:     must("DB_HOST"),      // database host
		DBPort:     must("DB_PORT"),      // database port
		DBName:     must("DB_NAME"),      // database name
		JWTSecret:  must("JWT_SECRET"),   // secret for signing session tokens
		BcryptCost: mustInt("BCRYPT_COST"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURI:  os.Getenv("GOOGLE_REDIRECT_URI"),

		AMQPURL:  os.Getenv("RABBITMQ_URL"),
		MailFrom: os.Getenv("MAIL_FROM"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: os.Getenv("SMTP_PORT"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
	}
	if cfg.MailFrom == "" {
		cfg.MailFrom = "noreply@shift-calendar.local"
	}
	return cfg
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
