package config

import "time"

type Config struct {
	ServerAddr  string
	TokenSecret string
	TokenTTL    time.Duration
}
