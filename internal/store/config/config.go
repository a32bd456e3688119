package config

// Config of the storage layer. An empty DBDsn selects the in-memory store.
type Config struct {
	DBDsn string
}
