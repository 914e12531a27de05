package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/quickmart/shop-backend/internal/models"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	ServerPort string
	JWTSecret  []byte
	LogLevel   string

	StripeSecretKey     string
	StripeWebhookSecret string
	SettlementCurrency  string

	KafkaAddress string
	RedisAddr    string

	CartExpiry       time.Duration
	SweepInterval    time.Duration
	OrderDedupWindow time.Duration
}

func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	return &Config{
		DBHost:     getenv("DB_HOST", "localhost"),
		DBPort:     getenv("DB_PORT", "5432"),
		DBUser:     getenv("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getenv("DB_NAME", "shop"),

		ServerPort: getenv("SERVER_PORT", "8080"),
		JWTSecret:  []byte(os.Getenv("JWT_SECRET")),
		LogLevel:   getenv("LOG_LEVEL", "info"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		SettlementCurrency:  getenv("SETTLEMENT_CURRENCY", "inr"),

		KafkaAddress: os.Getenv("KAFKA_ADDRESS"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),

		CartExpiry:       minutes("CART_EXPIRY_MINUTES", 15),
		SweepInterval:    minutes("SWEEP_INTERVAL_MINUTES", 1),
		OrderDedupWindow: minutes("ORDER_DEDUP_MINUTES", 10),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func minutes(key string, def int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Minute
		}
	}
	return time.Duration(def) * time.Minute
}

func (c *Config) InitDB(ctx context.Context) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	db = db.WithContext(ctx)
	if err := db.AutoMigrate(
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.SavedItem{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}
