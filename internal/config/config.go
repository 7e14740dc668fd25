package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL"`
	DatabaseURL string `env:"DATABASE_URL"`

	Auth     Auth     `envPrefix:"AUTH_"`
	Razorpay Razorpay `envPrefix:"RAZORPAY_"`
	Checkout Checkout `envPrefix:"CHECKOUT_"`
}

type Razorpay struct {
	KeyID         string `env:"KEY_ID"`
	KeySecret     string `env:"KEY_SECRET"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

// Checkout tunes the widget options handed to the hosted checkout UI.
// The defaults match what the dashboards shipped with, but they are
// configuration, not constants.
type Checkout struct {
	WidgetTimeout time.Duration `env:"WIDGET_TIMEOUT" envDefault:"900s"`
	RetryCount    int           `env:"RETRY_COUNT" envDefault:"1"`
	ThemeColor    string        `env:"THEME_COLOR" envDefault:"#2563eb"`
	Currency      string        `env:"CURRENCY" envDefault:"INR"`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
