package config

import (
	"os"
	"strings"
)

type Config struct {
	MongoURI            string
	MongoDBName         string
	RedisURI            string // optional; empty disables Redis rate limiting and cross-instance push
	SessionSecret       string
	Port                string
	AllowedOrigins      []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL
	TrustedProxies      []string // TRUSTED_PROXIES: peers allowed to set X-Real-IP / X-Forwarded-For
	UploadDir           string   // local profile picture root, served under /uploads
	StaticDir           string   // built docs site; empty disables static serving
	CloudinaryName      string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	AIAPIKey            string
	AIModel             string
	Environment         string // ENV: production, development, etc.
}

// DefaultSessionSecret is only acceptable outside production.
const DefaultSessionSecret = "co-razer-secret-key-change-in-production"

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", getEnv("NODE_ENV", "development"))))

	allowedOrigins := parseList(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", ""), getEnv("FRONTEND_URL_2", "")} {
			u = strings.TrimSpace(u)
			if u != "" {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	return &Config{
		MongoURI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDBName:         getEnv("MONGODB_DB_NAME", "co_razer_db"),
		RedisURI:            getEnv("REDIS_URI", ""),
		SessionSecret:       getEnv("SESSION_SECRET", DefaultSessionSecret),
		Port:                getEnv("PORT", "3000"),
		AllowedOrigins:      allowedOrigins,
		TrustedProxies:      parseList(getEnv("TRUSTED_PROXIES", "")),
		UploadDir:           getEnv("UPLOAD_DIR", "uploads"),
		StaticDir:           getEnv("STATIC_DIR", "public"),
		CloudinaryName:      getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),
		AIAPIKey:            getEnv("GOOGLE_API_KEY", getEnv("GEMINI_API_KEY", "")),
		AIModel:             getEnv("AI_MODEL", "gemini-2.5-flash"),
		Environment:         env,
	}
}

func parseList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

// CloudinaryEnabled reports whether all three Cloudinary credentials are present.
func (c *Config) CloudinaryEnabled() bool {
	return c.CloudinaryName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
