package config

import "github.com/joho/godotenv"

// LoadEnv loads environment variables from a .env file in the working
// directory. Callers are expected to tolerate a missing file.
func LoadEnv() error {
	return godotenv.Load()
}
