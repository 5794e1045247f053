package notify

import "os"

// Config holds the notify daemon configuration.
type Config struct {
	ListenAddr   string
	CronSpec     string
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	SenderEmail  string
}

// ConfigFromEnv loads configuration from environment variables, with
// defaults suitable for a local run. Email is optional: it stays disabled
// until GHESTA_SMTP_HOST is set.
func ConfigFromEnv() Config {
	return Config{
		ListenAddr:   ":" + getEnv("GHESTA_NOTIFY_PORT", "8090"),
		CronSpec:     getEnv("GHESTA_NOTIFY_CRON", "0 9 * * *"),
		SMTPHost:     getEnv("GHESTA_SMTP_HOST", ""),
		SMTPPort:     getEnv("GHESTA_SMTP_PORT", "587"),
		SMTPUsername: getEnv("GHESTA_SMTP_USERNAME", ""),
		SMTPPassword: getEnv("GHESTA_SMTP_PASSWORD", ""),
		SenderEmail:  getEnv("GHESTA_SENDER_EMAIL", "ghesta@localhost"),
	}
}

func (c Config) EmailEnabled() bool {
	return c.SMTPHost != ""
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
