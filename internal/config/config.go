package config

import (
	"flag"
	"os"
	"time"

	handlerConfig "github.com/iurnickita/dairyshop/internal/handler/config"
	loggerConfig "github.com/iurnickita/dairyshop/internal/logger/config"
	serviceConfig "github.com/iurnickita/dairyshop/internal/service/config"
	storeConfig "github.com/iurnickita/dairyshop/internal/store/config"
)

type Config struct {
	Handler handlerConfig.Config
	Service serviceConfig.Config
	Store   storeConfig.Config
	Logger  loggerConfig.Config
}

// GetConfig reads command line flags, then lets environment variables override them.
func GetConfig() Config {
	return parse(flag.CommandLine, os.Args[1:], os.LookupEnv)
}

func parse(fs *flag.FlagSet, args []string, lookupEnv func(string) (string, bool)) Config {
	var cfg Config

	fs.StringVar(&cfg.Handler.ServerAddr, "a", ":8080", "server address")
	fs.StringVar(&cfg.Handler.TokenSecret, "s", "", "session token secret, random per process when empty")
	fs.DurationVar(&cfg.Handler.TokenTTL, "t", 24*time.Hour, "session token lifetime")
	fs.StringVar(&cfg.Logger.LogLevel, "l", "info", "log level")
	fs.StringVar(&cfg.Store.DBDsn, "d", "", "database DSN, in-memory store when empty")
	fs.StringVar(&cfg.Service.WarehouseURI, "w", "", "warehouse AMQP URI, publishing disabled when empty")
	fs.StringVar(&cfg.Service.WarehouseQueue, "q", "orders", "warehouse queue name")
	fs.StringVar(&cfg.Service.AdminEmail, "e", "", "bootstrap employee email")
	fs.StringVar(&cfg.Service.AdminPassword, "p", "", "bootstrap employee password")
	fs.Parse(args)

	// переменные окружения имеют приоритет
	if v, ok := lookupEnv("RUN_ADDRESS"); ok {
		cfg.Handler.ServerAddr = v
	}
	if v, ok := lookupEnv("TOKEN_SECRET"); ok {
		cfg.Handler.TokenSecret = v
	}
	if v, ok := lookupEnv("TOKEN_TTL"); ok {
		if ttl, err := time.ParseDuration(v); err == nil {
			cfg.Handler.TokenTTL = ttl
		}
	}
	if v, ok := lookupEnv("LOG_LEVEL"); ok {
		cfg.Logger.LogLevel = v
	}
	if v, ok := lookupEnv("DATABASE_URI"); ok {
		cfg.Store.DBDsn = v
	}
	if v, ok := lookupEnv("WAREHOUSE_URI"); ok {
		cfg.Service.WarehouseURI = v
	}
	if v, ok := lookupEnv("WAREHOUSE_QUEUE"); ok {
		cfg.Service.WarehouseQueue = v
	}
	if v, ok := lookupEnv("ADMIN_EMAIL"); ok {
		cfg.Service.AdminEmail = v
	}
	if v, ok := lookupEnv("ADMIN_PASSWORD"); ok {
		cfg.Service.AdminPassword = v
	}

	return cfg
}
