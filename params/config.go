package params

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type API struct {
	Addr           string
	AllowedOrigins []string
}

type Storage struct {
	// Path of the Pebble database. Empty disables persistence.
	Path string
}

type Exchange struct {
	NativeSymbol string
	// Tokens onboarded at startup, "SYMBOL=0xContractAddress" entries.
	Tokens map[string]string
}

type Config struct {
	API      API
	Storage  Storage
	Exchange Exchange
	LogFile  string
}

func Default() Config {
	return Config{
		API: API{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Storage: Storage{
			Path: "data/spotdex.db",
		},
		Exchange: Exchange{
			NativeSymbol: "ETH",
			Tokens:       map[string]string{},
		},
		LogFile: "data/spotdex.log",
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if v := os.Getenv("API_ADDR"); v != "" {
		cfg.API.Addr = v
	}
	if v := os.Getenv("API_ORIGINS"); v != "" {
		cfg.API.AllowedOrigins = splitList(v)
	}
	if v, ok := os.LookupEnv("DB_PATH"); ok {
		cfg.Storage.Path = v // explicit empty disables persistence
	}
	if v := os.Getenv("NATIVE_SYMBOL"); v != "" {
		cfg.Exchange.NativeSymbol = v
	}
	if v := os.Getenv("TOKENS"); v != "" {
		cfg.Exchange.Tokens = parseTokens(v)
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.LogFile = v
	}

	return cfg
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseTokens parses "LINK=0xabc...,AAVE=0xdef..." into symbol → address.
func parseTokens(s string) map[string]string {
	tokens := make(map[string]string)
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		sym, addr, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		tokens[strings.TrimSpace(sym)] = strings.TrimSpace(addr)
	}
	return tokens
}
