package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	BotToken string

	DBUser     string
	DBPassword string
	DBName     string
	DBHost     string
	DBPort     string
	DBSSLMode  string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	AdminID           int64
	ChannelUsername   string
	ChannelInviteLink string
	PromoLink         string
	TaskLink          string

	Points Points

	// ClaimLocation decides where a calendar day starts for the daily bonus.
	ClaimLocation     *time.Location
	WithdrawPromptTTL time.Duration
}

// Points holds the ledger constants.
type Points struct {
	DailyReward       int64
	ReferralJoinBonus int64
	ReferralDaily     int64
	MinWithdraw       int64
}

// DefaultPoints are the amounts the bot has always paid out.
var DefaultPoints = Points{
	DailyReward:       10,
	ReferralJoinBonus: 50,
	ReferralDaily:     2,
	MinWithdraw:       1000,
}

// LoadConfig reads the environment (and an optional .env file).
// Missing required settings are reported as an error; the caller is expected to exit.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		BotToken:          strings.TrimSpace(getEnv("TELEGRAM_BOT_TOKEN", "")),
		DBUser:            getEnv("DB_USER", "postgres"),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBName:            strings.TrimSpace(getEnv("DB_NAME", "")),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBSSLMode:         getEnv("DB_SSLMODE", "disable"),
		RedisHost:         getEnv("REDIS_HOST", "localhost"),
		RedisPort:         getEnv("REDIS_PORT", "6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		ChannelUsername:   getEnv("CHANNEL_USERNAME", "@EarnQuickOfficial"),
		ChannelInviteLink: getEnv("CHANNEL_INVITE_LINK", "https://t.me/EarnQuickOfficial"),
		PromoLink:         getEnv("PROMO_LINK", "https://roughlydispleasureslayer.com/ykawxa7tnr?key=bacb6ca047e4fabf73e54c2eaf85b2a5"),
		TaskLink:          getEnv("TASK_LINK", "https://newspaper.42web.io"),
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN not set")
	}
	if cfg.DBName == "" {
		return nil, fmt.Errorf("DB_NAME not set")
	}

	adminStr := strings.TrimSpace(getEnv("ADMIN_USER_ID", ""))
	if adminStr == "" {
		return nil, fmt.Errorf("ADMIN_USER_ID not set")
	}
	adminID, err := strconv.ParseInt(adminStr, 10, 64)
	if err != nil || adminID <= 0 {
		return nil, fmt.Errorf("invalid ADMIN_USER_ID %q", adminStr)
	}
	cfg.AdminID = adminID

	if cfg.Points, err = loadPoints(); err != nil {
		return nil, err
	}

	tz := getEnv("CLAIM_TIMEZONE", "UTC")
	if cfg.ClaimLocation, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid CLAIM_TIMEZONE %q: %w", tz, err)
	}

	ttl := getEnv("WITHDRAW_PROMPT_TTL", "10m")
	if cfg.WithdrawPromptTTL, err = time.ParseDuration(ttl); err != nil || cfg.WithdrawPromptTTL <= 0 {
		return nil, fmt.Errorf("invalid WITHDRAW_PROMPT_TTL %q", ttl)
	}

	return cfg, nil
}

// PostgresDSN builds the key/value connection string for the gorm postgres driver.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func loadPoints() (Points, error) {
	p := DefaultPoints
	fields := []struct {
		key string
		dst *int64
	}{
		{"DAILY_REWARD_POINTS", &p.DailyReward},
		{"REFERRAL_JOIN_BONUS", &p.ReferralJoinBonus},
		{"REFERRAL_DAILY_COMMISSION", &p.ReferralDaily},
		{"MIN_WITHDRAW_POINTS", &p.MinWithdraw},
	}
	for _, f := range fields {
		raw, ok := os.LookupEnv(f.key)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil || v < 0 {
			return Points{}, fmt.Errorf("invalid %s %q", f.key, raw)
		}
		*f.dst = v
	}
	return p, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
