package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PERPINDEX_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PERPINDEX_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This lets
// operators inject secrets at deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// --- Chain ---
	setStr(&cfg.Chain.RPCURL, "PERPINDEX_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "PERPINDEX_CHAIN_ID")
	setStr(&cfg.Chain.EngineAddress, "PERPINDEX_CHAIN_ENGINE_ADDRESS")
	setUint64(&cfg.Chain.StartBlock, "PERPINDEX_CHAIN_START_BLOCK")
	setDuration(&cfg.Chain.PollInterval, "PERPINDEX_CHAIN_POLL_INTERVAL")

	// --- Database ---
	setStr(&cfg.Database.DSN, "PERPINDEX_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "PERPINDEX_DATABASE_HOST")
	setInt(&cfg.Database.Port, "PERPINDEX_DATABASE_PORT")
	setStr(&cfg.Database.Database, "PERPINDEX_DATABASE_NAME")
	setStr(&cfg.Database.User, "PERPINDEX_DATABASE_USER")
	setStr(&cfg.Database.Password, "PERPINDEX_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "PERPINDEX_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "PERPINDEX_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "PERPINDEX_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "PERPINDEX_DATABASE_RUN_MIGRATIONS")

	// --- Redis ---
	setStr(&cfg.Redis.Addr, "PERPINDEX_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PERPINDEX_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PERPINDEX_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PERPINDEX_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PERPINDEX_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PERPINDEX_REDIS_TLS_ENABLED")

	// --- S3 ---
	setStr(&cfg.S3.Endpoint, "PERPINDEX_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PERPINDEX_S3_REGION")
	setStr(&cfg.S3.Bucket, "PERPINDEX_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PERPINDEX_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PERPINDEX_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PERPINDEX_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PERPINDEX_S3_FORCE_PATH_STYLE")

	// --- Server ---
	setStr(&cfg.Server.Host, "PERPINDEX_SERVER_HOST")
	setInt(&cfg.Server.Port, "PERPINDEX_SERVER_PORT")

	// --- Top-level ---
	setStr(&cfg.LogLevel, "PERPINDEX_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
