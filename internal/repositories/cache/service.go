package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tierpay/internal/models"

	"github.com/redis/go-redis/v9"
)

// ScanTargetTTL bounds how long a resolved scan code may be served from cache.
// Rotation deletes the entry explicitly.
const ScanTargetTTL = 10 * time.Minute

// PaymentMethodTTL bounds staleness of merchant payment instructions.
const PaymentMethodTTL = 10 * time.Minute

type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client, defaultTTL time.Duration) *CacheService {
	return &CacheService{
		client: client,
		ttl:    defaultTTL,
	}
}

// Base operations
func (s *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.SetWithTTL(ctx, key, value, s.ttl)
}

func (s *CacheService) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// Key generation
func (s *CacheService) GenerateKey(entityType, keyType string, value interface{}) string {
	return GenerateKey(entityType, keyType, value)
}

// GenerateKey builds keys of the form entity:keyType:value.
func GenerateKey(entityType, keyType string, value interface{}) string {
	return fmt.Sprintf("%s:%s:%v", entityType, keyType, value)
}

// Scan code caching
func (s *CacheService) CacheScanTarget(ctx context.Context, code string, target *models.ScanTarget) error {
	if target == nil {
		return errors.New("cannot cache nil scan target")
	}
	return s.SetWithTTL(ctx, GenerateKey("scancode", "code", code), target, ScanTargetTTL)
}

func (s *CacheService) GetScanTarget(ctx context.Context, code string) (*models.ScanTarget, bool, error) {
	var target models.ScanTarget
	found, err := s.Get(ctx, GenerateKey("scancode", "code", code), &target)
	if err != nil || !found {
		return nil, false, err
	}
	return &target, true, nil
}

func (s *CacheService) InvalidateScanCode(ctx context.Context, code string) error {
	return s.Delete(ctx, GenerateKey("scancode", "code", code))
}

// Payment method caching
func (s *CacheService) CachePaymentMethods(ctx context.Context, merchantID uint, methods []models.PaymentMethod) error {
	return s.SetWithTTL(ctx, GenerateKey("paymethods", "merchant", merchantID), methods, PaymentMethodTTL)
}

func (s *CacheService) GetPaymentMethods(ctx context.Context, merchantID uint) ([]models.PaymentMethod, bool, error) {
	var methods []models.PaymentMethod
	found, err := s.Get(ctx, GenerateKey("paymethods", "merchant", merchantID), &methods)
	if err != nil || !found {
		return nil, false, err
	}
	return methods, true, nil
}

func (s *CacheService) InvalidatePaymentMethods(ctx context.Context, merchantID uint) error {
	return s.Delete(ctx, GenerateKey("paymethods", "merchant", merchantID))
}

// Close closes the Redis client connection
func (s *CacheService) Close() error {
	return s.client.Close()
}
