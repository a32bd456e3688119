package config

type Config struct {
	WarehouseURI   string
	WarehouseQueue string
	AdminEmail     string
	AdminPassword  string
}
