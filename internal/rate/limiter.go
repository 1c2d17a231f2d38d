package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds login throttle parameters.
type Config struct {
	// Prefix namespaces the counter keys.
	Prefix           string
	MaxLoginAttempts int
	LoginCooldown    time.Duration
}

// Limiter counts failed logins per username in fixed Redis windows.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) (*Limiter, error) {
	if redisClient == nil {
		return nil, errors.New("redis client required")
	}
	if cfg.MaxLoginAttempts <= 0 {
		return nil, errors.New("MaxLoginAttempts must be > 0")
	}
	if cfg.LoginCooldown <= 0 {
		return nil, errors.New("LoginCooldown must be > 0")
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}, nil
}

// CheckLogin returns [ErrRateLimited] once username has used up its attempts
// for the current window.
func (l *Limiter) CheckLogin(ctx context.Context, username string) error {
	count, err := l.LoginAttempts(ctx, username)
	if err != nil {
		return err
	}
	if count >= l.config.MaxLoginAttempts {
		return ErrRateLimited
	}
	return nil
}

// IncrementLogin records a failed login attempt. The attempt that exhausts the
// budget returns [ErrRateLimited].
func (l *Limiter) IncrementLogin(ctx context.Context, username string) error {
	count, err := l.incrementWithTTL(ctx, l.loginKey(username), l.config.LoginCooldown)
	if err != nil {
		return err
	}
	if count >= int64(l.config.MaxLoginAttempts) {
		return ErrRateLimited
	}
	return nil
}

// ResetLogin clears the counter after a successful login.
func (l *Limiter) ResetLogin(ctx context.Context, username string) error {
	if err := l.redis.Del(ctx, l.loginKey(username)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// LoginAttempts returns the failed attempts in the current window. Unknown
// usernames report zero.
func (l *Limiter) LoginAttempts(ctx context.Context, username string) (int, error) {
	count, err := l.redis.Get(ctx, l.loginKey(username)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if count < 0 {
		return 0, nil
	}
	return int(count), nil
}

// RetryAfter is the time left in username's window.
func (l *Limiter) RetryAfter(ctx context.Context, username string) (time.Duration, error) {
	ttl, err := l.redis.TTL(ctx, l.loginKey(username)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: the first hit starts the clock.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}

func (l *Limiter) loginKey(username string) string {
	prefix := l.config.Prefix
	if prefix == "" {
		prefix = "rl"
	}
	return prefix + ":login:" + username
}
