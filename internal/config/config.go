package config

import (
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port          int           `envconfig:"PORT" default:"8080"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL   string        `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns    int32         `envconfig:"DB_MAX_CONNS" default:"25"`
	Version       string        `envconfig:"VERSION" default:"dev"`
	JWTSecret     string        `envconfig:"JWT_SECRET" required:"true"`
	BcryptCost    int           `envconfig:"BCRYPT_COST" default:"12"`
	SalesCutoff   time.Duration `envconfig:"SALES_CUTOFF" default:"10m"`
	VenueTimezone string        `envconfig:"VENUE_TIMEZONE" default:"UTC"`
	CORSOrigins   []string      `envconfig:"CORS_ORIGINS" default:"http://localhost:5173"`
	AdminEmail    string        `envconfig:"ADMIN_EMAIL" default:"admin@localhost"`
}

// Load reads an optional .env file and then environment variables into a Config struct.
// Variables already present in the environment take precedence over the file.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		slog.Debug("no env file loaded, using process environment", "files", envFiles)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Location resolves VenueTimezone. Hour-of-day analytics are computed in this zone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.VenueTimezone)
}
