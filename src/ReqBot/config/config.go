package config

import (
	"log"
	"os"

	"github.com/sendcrew/reqbot/src/shared/data"
	"gorm.io/gorm"
)

type Config struct {
	Token             string
	GuildID           string
	JWTSecret         string
	AdminPasswordHash string
	MySQLDSN          string
	RedisURL          string
	HTTPPort          string
}

// Load resolves configuration from the settings table with environment
// fallbacks. Connection strings come from the environment only, since the
// database has to be reachable before settings can be read.
func Load(db *gorm.DB) Config {
	settings, err := data.LoadSettings(db)
	if err != nil {
		log.Printf("Failed to load settings: %v", err)
		settings = &data.Settings{}
	}

	return Config{
		Token:             settings.GetOr("discord_token", os.Getenv("DISCORD_TOKEN")),
		GuildID:           settings.GetOr("guild_id", os.Getenv("GUILD_ID")),
		JWTSecret:         settings.GetOr("jwt_secret", os.Getenv("JWT_SECRET")),
		AdminPasswordHash: settings.GetOr("admin_password_hash", os.Getenv("ADMIN_PASSWORD_HASH")),
		MySQLDSN:          getenv("MYSQL_DSN", "reqbot:reqbot@tcp(127.0.0.1:3306)/reqbot?parseTime=true"),
		RedisURL:          getenv("REDIS_URL", "redis://127.0.0.1:6379/0"),
		HTTPPort:          getenv("HTTP_PORT", "8090"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
