package repository

import (
    "context"
    "errors"
    "fmt"
    "strconv"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/user-management-api/internal/model"
)

// ExpiredTokenRetention is how long an expired token lingers in Redis so a
// late redeem is reported as expired rather than unknown.
const ExpiredTokenRetention = time.Hour

// Key layout (prefix defaults to "pwreset"):
//   {prefix}:token:{hash} -> hash {user_id, expires_at (unix ms)}
//   {prefix}:user:{id}    -> current token hash of the user
// Both keys expire at expires_at + ExpiredTokenRetention.

// replaceScript drops the user's previous token and stores the new one.
var replaceScript = redis.NewScript(`
    local user_key = KEYS[1]
    local token_key = KEYS[2]
    local token_prefix = ARGV[1]
    local new_hash = ARGV[2]
    local user_id = ARGV[3]
    local expires_ms = ARGV[4]
    local evict_ms = ARGV[5]

    local old = redis.call('GET', user_key)
    if old and old ~= new_hash then
        redis.call('DEL', token_prefix .. old)
    end

    redis.call('HSET', token_key, 'user_id', user_id, 'expires_at', expires_ms)
    redis.call('SET', user_key, new_hash)
    redis.call('PEXPIREAT', token_key, evict_ms)
    redis.call('PEXPIREAT', user_key, evict_ms)
    return 1
`)

// claimScript removes a token and reports {status, user_id, expires_at}.
// status: 0 unknown, 1 live, 2 expired.
var claimScript = redis.NewScript(`
    local token_key = KEYS[1]
    local user_prefix = ARGV[1]
    local token_hash = ARGV[2]
    local now_ms = tonumber(ARGV[3])

    local v = redis.call('HMGET', token_key, 'user_id', 'expires_at')
    if not v[1] or not v[2] then
        return { 0, 0, 0 }
    end
    redis.call('DEL', token_key)

    local user_key = user_prefix .. v[1]
    if redis.call('GET', user_key) == token_hash then
        redis.call('DEL', user_key)
    end

    local expires_ms = tonumber(v[2])
    local status = 1
    if now_ms > expires_ms then
        status = 2
    end
    return { status, tonumber(v[1]), expires_ms }
`)

// restoreScript puts a claimed token back unless the user has been issued
// a newer one in the meantime.
var restoreScript = redis.NewScript(`
    local user_key = KEYS[1]
    local token_key = KEYS[2]
    if not redis.call('SET', user_key, ARGV[1], 'NX') then
        return 0
    end
    redis.call('HSET', token_key, 'user_id', ARGV[2], 'expires_at', ARGV[3])
    redis.call('PEXPIREAT', token_key, ARGV[4])
    redis.call('PEXPIREAT', user_key, ARGV[4])
    return 1
`)

// RedisResetTokenRepo keeps reset tokens in Redis. Redemption claims the
// token atomically, then writes the password through users; a failed write
// puts the token back.
type RedisResetTokenRepo struct {
    rdb    *redis.Client
    users  PasswordUpdater
    prefix string
}

func NewRedisResetTokenRepo(rdb *redis.Client, users PasswordUpdater, prefix string) *RedisResetTokenRepo {
    if prefix == "" {
        prefix = "pwreset"
    }
    return &RedisResetTokenRepo{rdb: rdb, users: users, prefix: prefix}
}

func (r *RedisResetTokenRepo) tokenPrefix() string { return r.prefix + ":token:" }
func (r *RedisResetTokenRepo) userPrefix() string  { return r.prefix + ":user:" }

func (r *RedisResetTokenRepo) tokenKey(hash string) string { return r.tokenPrefix() + hash }
func (r *RedisResetTokenRepo) userKey(id uint64) string {
    return r.userPrefix() + strconv.FormatUint(id, 10)
}

// Replace stores t as the only token of t.UserID.
func (r *RedisResetTokenRepo) Replace(ctx context.Context, t model.PasswordResetToken) error {
    expMs := t.ExpiresAt.UnixMilli()
    evictMs := t.ExpiresAt.Add(ExpiredTokenRetention).UnixMilli()
    err := replaceScript.Run(ctx, r.rdb,
        []string{r.userKey(t.UserID), r.tokenKey(t.TokenHash)},
        r.tokenPrefix(), t.TokenHash, t.UserID, expMs, evictMs,
    ).Err()
    if err != nil {
        return fmt.Errorf("redis replace reset token: %w", err)
    }
    return nil
}

// Redeem claims tokenHash and, if it is live, stores the hash produced by
// newHash as the owner's password.
func (r *RedisResetTokenRepo) Redeem(ctx context.Context, tokenHash string, now time.Time, newHash func() (string, error)) (uint64, error) {
    vals, err := claimScript.Run(ctx, r.rdb,
        []string{r.tokenKey(tokenHash)},
        r.userPrefix(), tokenHash, now.UnixMilli(),
    ).Result()
    if err != nil {
        return 0, fmt.Errorf("redis claim reset token: %w", err)
    }
    arr, ok := vals.([]interface{})
    if !ok || len(arr) != 3 {
        return 0, fmt.Errorf("redis claim reset token: unexpected result %#v", vals)
    }
    status := asInt64(arr[0])
    userID := uint64(asInt64(arr[1]))
    expMs := asInt64(arr[2])

    switch status {
    case 0:
        return 0, ErrResetTokenNotFound
    case 2:
        return userID, ErrResetTokenExpired
    }

    hash, err := newHash()
    if err != nil {
        r.restore(ctx, tokenHash, userID, expMs)
        return userID, err
    }
    if err := r.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
        // a token of a deleted user is not worth keeping
        if !errors.Is(err, ErrUserNotFound) {
            r.restore(ctx, tokenHash, userID, expMs)
        }
        return userID, err
    }
    return userID, nil
}

// restore is best effort: a token lost here only forces a new request.
func (r *RedisResetTokenRepo) restore(ctx context.Context, tokenHash string, userID uint64, expMs int64) {
    evictMs := time.UnixMilli(expMs).Add(ExpiredTokenRetention).UnixMilli()
    _ = restoreScript.Run(context.WithoutCancel(ctx), r.rdb,
        []string{r.userKey(userID), r.tokenKey(tokenHash)},
        tokenHash, userID, expMs, evictMs,
    ).Err()
}

func asInt64(v interface{}) int64 {
    switch t := v.(type) {
    case int64:
        return t
    case int:
        return int64(t)
    case float64:
        return int64(t)
    case string:
        if n, err := strconv.ParseInt(t, 10, 64); err == nil {
            return n
        }
    }
    return 0
}
