package main

import (
	"os"
	"strconv"
)

// Config holds the runtime configuration, read from the environment
// with defaults matching the original application.
type Config struct {
	Database  string // path to the SQLite database file
	Addr      string // listen address
	SecretKey string // session cookie signing key
	PerPage   int    // messages per timeline page
}

func loadConfig() Config {
	return Config{
		Database:  envString("MINITWIT_DATABASE", "/tmp/minitwit.db"),
		Addr:      envString("MINITWIT_ADDR", ":5000"),
		SecretKey: envString("MINITWIT_SECRET_KEY", "development key"),
		PerPage:   envInt("MINITWIT_PER_PAGE", 30),
	}
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
