package config

import "github.com/spf13/viper"

type Config struct {
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	JWTSecret     string
	ServerPort    string
	SweepInterval int // minutes between expiry sweeps
}

func Load() *Config {
	v := viper.New()

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "rowcoach")
	v.SetDefault("JWT_SECRET", "super-secret-key-change-me")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SWEEP_INTERVAL", 10)

	v.AutomaticEnv()

	return &Config{
		DBHost:        v.GetString("DB_HOST"),
		DBPort:        v.GetString("DB_PORT"),
		DBUser:        v.GetString("DB_USER"),
		DBPassword:    v.GetString("DB_PASSWORD"),
		DBName:        v.GetString("DB_NAME"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		ServerPort:    v.GetString("SERVER_PORT"),
		SweepInterval: v.GetInt("SWEEP_INTERVAL"),
	}
}
