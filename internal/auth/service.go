package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "auth:revoked:"

// Service validates admin tokens and keeps the revocation list in Redis.
type Service struct {
	jwt         *JWTManager
	redisClient *redis.Client
}

func NewService(jwt *JWTManager, redisClient *redis.Client) *Service {
	return &Service{
		jwt:         jwt,
		redisClient: redisClient,
	}
}

// Authenticate validates tokenStr and rejects revoked tokens. If Redis is
// unreachable the signature check alone decides.
func (s *Service) Authenticate(ctx context.Context, tokenStr string) (*AdminClaims, error) {
	claims, err := s.jwt.Validate(tokenStr)
	if err != nil {
		return nil, err
	}
	if s.redisClient == nil {
		return claims, nil
	}
	n, err := s.redisClient.Exists(ctx, revokedKeyPrefix+claims.ID).Result()
	if err != nil {
		return claims, nil
	}
	if n > 0 {
		return nil, fmt.Errorf("admin token revoked")
	}
	return claims, nil
}

// Revoke blocks the token until it would have expired anyway.
func (s *Service) Revoke(ctx context.Context, claims *AdminClaims) error {
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.redisClient.Set(ctx, revokedKeyPrefix+claims.ID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("storing revocation: %w", err)
	}
	return nil
}

func (s *Service) JWT() *JWTManager {
	return s.jwt
}
