package app

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/shrimpsizemoose/trekker/logger"
)

type HeaderConfig struct {
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

type Config struct {
	Server struct {
		Port            string `toml:"port"`
		EnableAdminGate bool   `toml:"enable_admin_gate"`
	} `toml:"server"`

	Auth struct {
		RedisURL string `toml:"redis_url"`
	} `toml:"auth"`

	Admin struct {
		RequiredHeaders []HeaderConfig `toml:"required_headers"`
	} `toml:"admin"`

	Database struct {
		DSN           string `toml:"dsn"`
		MigrationsDir string `toml:"migrations_dir"`
	} `toml:"database"`

	Geofence struct {
		Latitude  float64 `toml:"latitude"`
		Longitude float64 `toml:"longitude"`
		RadiusM   float64 `toml:"radius_m"`
	} `toml:"geofence"`

	Roster struct {
		Students []string `toml:"students"`
	} `toml:"roster"`

	Export struct {
		Schedule     string `toml:"schedule"`
		OutputDir    string `toml:"output_dir"`
		LookbackDays int    `toml:"lookback_days"`
	} `toml:"export"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf(
			"error reading config file %s\n> Error: %w\n> Content:\n%s",
			path,
			err,
			string(data),
		)
	}

	if config.Server.Port == "" {
		return nil, fmt.Errorf("Server port is not specified in config, use a value like :9999")
	}

	if config.Geofence.RadiusM < 0 {
		return nil, fmt.Errorf("geofence radius_m must not be negative, got %v", config.Geofence.RadiusM)
	}

	logger.Debug.Printf("Loaded geofence config: %+v", config.Geofence)
	logger.Debug.Printf("Roster has %d students", len(config.Roster.Students))

	return &config, nil
}
