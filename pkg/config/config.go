package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port                    string
	Env                     string
	FirebaseCredentialsPath string
	MongoURI                string
	MongoDatabase           string
	RedisURL                string
	ViewWindow              time.Duration
	SweepInterval           time.Duration
	WebhookSecret           string
	UploadEndpoint          string
	UploadAccessKey         string
	UploadSecretKey         string
	UploadBucket            string
	UploadUseSSL            bool
	UploadPublicBaseURL     string
	UploadSignedExpiry      time.Duration
}

func Load() *Config {
	return &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase_credentials.json"),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "inkwell"),
		RedisURL:                getEnv("REDIS_URL", ""),
		ViewWindow:              getDuration("VIEW_WINDOW", 30*time.Minute),
		SweepInterval:           getDuration("SWEEP_INTERVAL", 10*time.Minute),
		WebhookSecret:           getEnv("IDENTITY_WEBHOOK_SECRET", ""),
		UploadEndpoint:          getEnv("UPLOAD_ENDPOINT", ""),
		UploadAccessKey:         getEnv("UPLOAD_ACCESS_KEY", ""),
		UploadSecretKey:         getEnv("UPLOAD_SECRET_KEY", ""),
		UploadBucket:            getEnv("UPLOAD_BUCKET", "inkwell-media"),
		UploadUseSSL:            getBool("UPLOAD_USE_SSL", false),
		UploadPublicBaseURL:     getEnv("UPLOAD_PUBLIC_BASE_URL", ""),
		UploadSignedExpiry:      getDuration("UPLOAD_SIGNED_EXPIRY", 15*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
