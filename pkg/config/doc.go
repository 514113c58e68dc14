// Package config loads application configuration from environment
// variables into tagged structs.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11:
// the first Load in a process reads an optional .env file, then each
// configuration type is parsed once and cached for the lifetime of the
// process, so services and stores can call Load independently without
// re-parsing the environment.
//
// Usage:
//
//	type MongoConfig struct {
//		URL      string `env:"MONGODB_URL,required"`
//		Database string `env:"MONGODB_DATABASE" envDefault:"entitlements"`
//	}
//
//	var cfg MongoConfig
//	config.MustLoad(&cfg)
//
// Errors returned by Load compare with errors.Is against ErrParsingConfig
// and ErrNilPointer.
package config
