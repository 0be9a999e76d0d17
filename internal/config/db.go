package config

// DB holds the database configuration settings.
// GormEngine selects the driver: sqlite (default), postgres or mysql.
// Path is only used by the sqlite engine.
type DB struct {
	Extras     string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	Path       string
	GormEngine string `toml:"gorm_engine"`
}
