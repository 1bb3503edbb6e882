package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/aju-clearance-api/internal/models"
)

const resetTokenPrefix = "password_reset:"

var (
	// ErrResetTokenUnavailable is returned when no Redis client is configured.
	ErrResetTokenUnavailable = errors.New("password reset store unavailable")
	// ErrResetTokenNotFound is returned for unknown, used or expired tokens.
	ErrResetTokenNotFound = errors.New("password reset token not found")
)

// ResetTokenRepository keeps single-use password reset grants in Redis.
type ResetTokenRepository struct {
	client *redis.Client
}

// NewResetTokenRepository constructs a ResetTokenRepository.
func NewResetTokenRepository(client *redis.Client) *ResetTokenRepository {
	return &ResetTokenRepository{client: client}
}

// Save stores grant under token for ttl.
func (r *ResetTokenRepository) Save(ctx context.Context, token string, grant models.PasswordResetToken, ttl time.Duration) error {
	if r.client == nil {
		return ErrResetTokenUnavailable
	}
	payload, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("marshal reset token: %w", err)
	}
	if err := r.client.Set(ctx, resetTokenPrefix+token, payload, ttl).Err(); err != nil {
		return fmt.Errorf("save reset token: %w", err)
	}
	return nil
}

// Consume returns and deletes the grant stored under token.
func (r *ResetTokenRepository) Consume(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	if r.client == nil {
		return nil, ErrResetTokenUnavailable
	}
	raw, err := r.client.GetDel(ctx, resetTokenPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrResetTokenNotFound
		}
		return nil, fmt.Errorf("consume reset token: %w", err)
	}
	var grant models.PasswordResetToken
	if err := json.Unmarshal(raw, &grant); err != nil {
		return nil, fmt.Errorf("decode reset token: %w", err)
	}
	return &grant, nil
}
