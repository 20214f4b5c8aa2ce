package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	// Mail transport. Credentials are only fetched (and attached) when the
	// URL uses the smtps scheme; see pkg/email.
	SMTPURL                   string
	SMTPCredentialsSecretName string
	// FriendlyCaptcha verification endpoint and the secret holding the
	// sitekey/secret pair.
	FriendlyCaptchaVerifyURL  string
	FriendlyCaptchaSecretName string
	// AWS Secrets Manager settings. AWSEndpointURL overrides the endpoint,
	// which is how integration tests point the service at LocalStack.
	AWSRegion      string
	AWSEndpointURL string
	// BaseHost anchors success redirects and the error page links;
	// ContactFrom/ContactTo are the fixed envelope of every relayed message.
	BaseHost    string
	ContactFrom string
	ContactTo   string
}

func LoadConfig() (*Config, error) {
	// Only effective locally; ignored in production where no .env exists.
	_ = godotenv.Load()

	cfg := &Config{
		Port:                      getEnv("PORT", "8080"),
		SMTPURL:                   getEnv("SMTP_URL", "smtps://email-smtp.eu-north-1.amazonaws.com"),
		SMTPCredentialsSecretName: getEnv("SMTP_CREDENTIALS_SECRET_NAME", "smtp-ses-credentials"),
		FriendlyCaptchaVerifyURL:  getEnv("FRIENDLYCAPTCHA_VERIFY_URL", "https://api.friendlycaptcha.com/api/v1/siteverify"),
		FriendlyCaptchaSecretName: getEnv("FRIENDLYCAPTCHA_SECRET_NAME", "friendlycaptcha-data"),
		AWSRegion:                 getEnv("AWS_REGION", "eu-north-1"),
		AWSEndpointURL:            getEnv("AWS_ENDPOINT_URL", ""),
		BaseHost:                  getEnv("BASE_HOST", "example.com"),
		ContactFrom:               getEnv("CONTACT_FROM", "Web contact form <noreply@example.com>"),
		ContactTo:                 getEnv("CONTACT_TO", "Site owner <contact@example.com>"),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
