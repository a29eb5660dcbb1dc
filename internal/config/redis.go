package config

// Redis backs the optional reset token store (RESET_TOKEN_STORE=redis).

import (
    "context"
    "crypto/tls"
    "fmt"
    "net"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from the environment:
//   REDIS_HOST and REDIS_PORT, or REDIS_ADDR (host:port), default localhost:6379
//   REDIS_PASSWORD  optional password
//   REDIS_DB        database number (default 0)
//   REDIS_TLS       "true" or "1" enables TLS
func RedisOptions() *redis.Options {
    host := os.Getenv("REDIS_HOST")
    port := os.Getenv("REDIS_PORT")
    addr := os.Getenv("REDIS_ADDR")
    if host != "" && port != "" {
        addr = net.JoinHostPort(host, port)
    }
    if addr == "" {
        addr = "localhost:6379"
    }
    dbNum := 0
    if s := os.Getenv("REDIS_DB"); s != "" {
        if n, err := strconv.Atoi(s); err == nil {
            dbNum = n
        }
    }
    var tlsConf *tls.Config
    if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
        serverName, _, _ := net.SplitHostPort(addr)
        tlsConf = &tls.Config{ServerName: serverName, MinVersion: tls.VersionTLS12}
    }
    return &redis.Options{
        Addr:      addr,
        Password:  os.Getenv("REDIS_PASSWORD"),
        DB:        dbNum,
        TLSConfig: tlsConf,
    }
}

// NewRedisClient connects with RedisOptions and pings the server. Reset
// tokens cannot live anywhere else once Redis is selected, so a failed ping
// is an error rather than a silent fallback.
func NewRedisClient(ctx context.Context) (*redis.Client, error) {
    client := redis.NewClient(RedisOptions())
    ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil, fmt.Errorf("redis ping %s: %w", client.Options().Addr, err)
    }
    return client, nil
}
