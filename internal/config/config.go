package config // package config loads application configuration from environment variables

import (
    "errors"
    "fmt"
    "os"
    "strconv"
    "strings"

    "github.com/joho/godotenv"
    "golang.org/x/crypto/bcrypt"
)

// Reset token backends selectable with RESET_TOKEN_STORE.
const (
    ResetStoreMySQL = "mysql"
    ResetStoreRedis = "redis"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable.
type Config struct {
    Env              string   // APP_ENV, "dev" selects the development logger
    Port             string   // APP_PORT
    DBUser           string   // DB_USER
    DBPass           string   // DB_PASS (optional)
    DBHost           string   // DB_HOST
    DBPort           string   // DB_PORT
    DBName           string   // DB_NAME
    JWTSecret        string   // JWT_SECRET, no fallback
    BcryptCost       int      // BCRYPT_COST, default 10
    ResetTokenStore  string   // RESET_TOKEN_STORE: mysql | redis
    RedisPrefix      string   // REDIS_PREFIX for reset token keys
    AMQPURL          string   // RABBITMQ_URL or AMQP_URL; empty disables notifications
    MailLogDir       string   // MAIL_LOG_DIR for the mailer, default "logs"
    CORSAllowOrigins []string // CORS_ALLOW_ORIGINS, comma separated
}

// IsDev reports whether the app runs in development mode.
func (c Config) IsDev() bool { return c.Env == "dev" || c.Env == "development" }

// Load reads an optional .env file and then the environment. Every missing
// or invalid setting is reported in a single error.
func Load() (Config, error) {
    _ = godotenv.Load()

    var missing []string
    must := func(key string) string {
        v := strings.TrimSpace(os.Getenv(key))
        if v == "" {
            missing = append(missing, key)
        }
        return v
    }

    cfg := Config{
        Env:              getEnv("APP_ENV", "dev"),
        Port:             must("APP_PORT"),
        DBUser:           must("DB_USER"),
        DBPass:           os.Getenv("DB_PASS"),
        DBHost:           must("DB_HOST"),
        DBPort:           must("DB_PORT"),
        DBName:           must("DB_NAME"),
        JWTSecret:        must("JWT_SECRET"),
        ResetTokenStore:  strings.ToLower(getEnv("RESET_TOKEN_STORE", ResetStoreMySQL)),
        RedisPrefix:      getEnv("REDIS_PREFIX", "pwreset"),
        AMQPURL:          firstEnv("RABBITMQ_URL", "AMQP_URL"),
        MailLogDir:       getEnv("MAIL_LOG_DIR", "logs"),
        CORSAllowOrigins: getList("CORS_ALLOW_ORIGINS", []string{"*"}),
    }

    var errs []error
    if len(missing) > 0 {
        errs = append(errs, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", ")))
    }

    cost, err := getInt("BCRYPT_COST", bcrypt.DefaultCost)
    if err != nil {
        errs = append(errs, err)
    } else if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
        errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
    }
    cfg.BcryptCost = cost

    if cfg.ResetTokenStore != ResetStoreMySQL && cfg.ResetTokenStore != ResetStoreRedis {
        errs = append(errs, fmt.Errorf("RESET_TOKEN_STORE must be %q or %q", ResetStoreMySQL, ResetStoreRedis))
    }

    if len(errs) > 0 {
        return Config{}, errors.Join(errs...)
    }
    return cfg, nil
}

// LoadMailer reads the subset of settings the mailer needs.
func LoadMailer() (Config, error) {
    _ = godotenv.Load()
    cfg := Config{
        Env:        getEnv("APP_ENV", "dev"),
        AMQPURL:    firstEnv("RABBITMQ_URL", "AMQP_URL"),
        MailLogDir: getEnv("MAIL_LOG_DIR", "logs"),
    }
    if cfg.AMQPURL == "" {
        return Config{}, errors.New("missing required env vars: RABBITMQ_URL")
    }
    return cfg, nil
}

func getEnv(key, def string) string {
    if v := strings.TrimSpace(os.Getenv(key)); v != "" {
        return v
    }
    return def
}

func firstEnv(keys ...string) string {
    for _, k := range keys {
        if v := strings.TrimSpace(os.Getenv(k)); v != "" {
            return v
        }
    }
    return ""
}

func getInt(key string, def int) (int, error) {
    s := strings.TrimSpace(os.Getenv(key))
    if s == "" {
        return def, nil
    }
    n, err := strconv.Atoi(s)
    if err != nil {
        return 0, fmt.Errorf("invalid int for %s: %q", key, s)
    }
    return n, nil
}

func getList(key string, def []string) []string {
    raw := strings.TrimSpace(os.Getenv(key))
    if raw == "" {
        return def
    }
    var out []string
    for _, p := range strings.Split(raw, ",") {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    if len(out) == 0 {
        return def
    }
    return out
}
