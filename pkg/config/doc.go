// Package config loads typed configuration from environment variables using
// github.com/caarlos0/env/v11, with optional .env files read through
// github.com/joho/godotenv.
//
//	type Config struct {
//	    Addr      string        `env:"HTTP_ADDR" envDefault:":8080"`
//	    Heartbeat time.Duration `env:"STREAM_HEARTBEAT" envDefault:"25s"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//
// Each struct type is parsed once per process and cached; call Reset in tests
// after changing the environment.
package config
