// internal/app/tokens.go
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/kardemumma/internal/models"
)

const (
	timeFormat     = "2006-01-02 15:04:05"
	dayTokenKeyTpl = "attend:token:%s" // attend:token:${day}
	tokenPrefix    = "sk-krdm-"
)

// TokenStore is the per-day token surface the verification flow needs.
type TokenStore interface {
	Issue(ctx context.Context, day string) (*models.DayToken, error)
	Get(ctx context.Context, day string) (*models.DayToken, error)
	Validate(ctx context.Context, day, presented string) (bool, error)
	Close() error
}

// TokenManager keeps one verification token per calendar day in redis.
// The token is scoped by the day baked into its key, so a value issued
// for one day never validates against another.
type TokenManager struct {
	redis *redis.Client
}

func NewTokenManager(redisURL string) (*TokenManager, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &TokenManager{redis: client}, nil
}

func generateToken() (string, error) {
	randomBytes := make([]byte, 12)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return tokenPrefix + hex.EncodeToString(randomBytes), nil
}

// Issue creates the token for a day, overwriting any previous one.
// Records already marked against the old value stay valid.
func (tm *TokenManager) Issue(ctx context.Context, day string) (*models.DayToken, error) {
	if _, err := models.ParseDay(day); err != nil {
		return nil, fmt.Errorf("invalid day %q: %w", day, err)
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	now := time.Now().UTC()
	key := fmt.Sprintf(dayTokenKeyTpl, day)

	err = tm.redis.HSet(ctx, key, map[string]interface{}{
		"token":           token,
		"issued_dttm_utc": now.Format(timeFormat),
	}).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}

	return &models.DayToken{
		Day:        day,
		Token:      token,
		IssuedTime: now,
	}, nil
}

// Get returns the token issued for a day, or nil when none exists.
func (tm *TokenManager) Get(ctx context.Context, day string) (*models.DayToken, error) {
	key := fmt.Sprintf(dayTokenKeyTpl, day)

	values, err := tm.redis.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}

	issuedTime, _ := time.Parse(timeFormat, values["issued_dttm_utc"])

	return &models.DayToken{
		Day:        day,
		Token:      values["token"],
		IssuedTime: issuedTime,
	}, nil
}

// Validate reports whether the presented value matches the token issued
// for exactly this day. A stale value photographed yesterday fails here.
func (tm *TokenManager) Validate(ctx context.Context, day, presented string) (bool, error) {
	token, err := tm.Get(ctx, day)
	if err != nil {
		return false, err
	}
	if token == nil {
		logger.Debug.Printf("No token issued for day %s", day)
		return false, nil
	}

	return MatchDayToken(token, day, presented), nil
}

// MatchDayToken is the pure day-scoping rule: the value must match and the
// token must have been issued for the presented day.
func MatchDayToken(token *models.DayToken, day, presented string) bool {
	if token == nil || presented == "" {
		return false
	}
	return token.Day == day && token.Token == presented
}

func (tm *TokenManager) Close() error {
	if tm.redis != nil {
		return tm.redis.Close()
	}
	return nil
}
