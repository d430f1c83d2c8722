package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	Database Database
	Payment  Payment
	Redis    Redis `envPrefix:"REDIS_"`
	Kafka    Kafka `envPrefix:"KAFKA_"`
	Auth     Auth

	// code:percent pairs, e.g. WELCOME10:10,SAVE20:20
	Coupons           map[string]string `env:"COUPONS" envDefault:"WELCOME10:10,SAVE20:20"`
	CheckoutRateLimit float64           `env:"CHECKOUT_RATE_LIMIT" envDefault:"5"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host            string        `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port            string        `env:"HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

type Database struct {
	Driver       string        `env:"DATABASE_DRIVER" envDefault:"sqlite"` // sqlite, mysql, postgres
	URL          string        `env:"DATABASE_URL" envDefault:"storefront.db"`
	Timeout      time.Duration `env:"DATABASE_TIMEOUT" envDefault:"5s"`
	SeedProducts bool          `env:"SEED_PRODUCTS" envDefault:"false"`
}

type Payment struct {
	Provider      string        `env:"PAYMENT_PROVIDER" envDefault:"sandbox"` // stripe, sandbox
	StripeBaseURL string        `env:"STRIPE_BASE_API_URL" envDefault:"https://api.stripe.com"`
	StripeSecret  string        `env:"STRIPE_SECRET_KEY"`
	Timeout       time.Duration `env:"PAYMENT_TIMEOUT" envDefault:"10s"`
	Currency      string        `env:"PAYMENT_CURRENCY" envDefault:"usd"`
}

type Redis struct {
	Addr     string        `env:"ADDR"`
	Password string        `env:"PASSWORD"`
	DB       int           `env:"DB" envDefault:"0"`
	CartTTL  time.Duration `env:"CART_TTL" envDefault:"15m"`
}

type Kafka struct {
	Brokers    []string `env:"BROKERS" envSeparator:","`
	OrderTopic string   `env:"ORDER_TOPIC" envDefault:"order_events"`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET,required"`
}
