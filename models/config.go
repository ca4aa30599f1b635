package models

// Config holds the server settings. It is read from config.json and then
// overridden by environment variables.
type Config struct {
	// Environment is "development" for console logs, anything else for JSON.
	Environment  string   `json:"environment"`
	Port         string   `json:"port"`
	AllowOrigins []string `json:"allow_origins"`

	// StoreDriver selects the session store: "postgres", "sqlite" or "memory".
	StoreDriver string `json:"store_driver"`
	SQLitePath  string `json:"sqlite_path"`

	DBHost     string `json:"db_host"`
	DBUser     string `json:"db_user"`
	DBPassword string `json:"db_password"`
	DBName     string `json:"db_name"`
	DBSSLMode  string `json:"db_sslmode"`

	// RoomLock is "local" for a single process or "redis" when several
	// processes share one database.
	RoomLock      string `json:"room_lock"`
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`

	// IdleRoomTTL is how long an empty room survives, e.g. "24h".
	IdleRoomTTL string `json:"idle_room_ttl"`
}
