// Package config loads application configuration from environment
// variables into tagged structs.
//
// It combines github.com/joho/godotenv (optional .env files) with
// github.com/caarlos0/env/v11 (struct tag parsing) and caches each parsed
// configuration type for the lifetime of the process.
//
// # Usage
//
//	var cfg backends.Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//
// Additional .env files can be loaded explicitly before the first Load:
//
//	if err := config.LoadEnv(".env.local"); err != nil {
//	    return err
//	}
//
// Tests that change the environment between loads call ResetCache.
package config
