package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/TIANLI0/PersonWatch/config"
	"github.com/TIANLI0/PersonWatch/model"
	"github.com/TIANLI0/PersonWatch/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisService(cfg *config.RedisConfig) *RedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisService{
		client: client,
		ttl:    cfg.TTL,
	}
}

func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func detectionsKey(md5 string) string {
	return "detections:" + md5
}

// GetDetections 从缓存获取未过滤的检测结果，未命中时返回 nil
func (s *RedisService) GetDetections(ctx context.Context, md5 string) (*model.CachedDetections, error) {
	data, err := s.client.Get(ctx, detectionsKey(md5)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // 缓存未命中
		}
		return nil, err
	}

	var cached model.CachedDetections
	if err := json.Unmarshal(data, &cached); err != nil {
		utils.Logger.Error("failed to unmarshal cached detections",
			zap.String("md5", md5), zap.Error(err))
		return nil, err
	}

	return &cached, nil
}

// SetDetections 写入缓存
func (s *RedisService) SetDetections(ctx context.Context, md5 string, regions []model.Region) error {
	data, err := json.Marshal(model.CachedDetections{
		MD5:       md5,
		Regions:   regions,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	return s.client.Set(ctx, detectionsKey(md5), data, s.ttl).Err()
}

func (s *RedisService) Close() error {
	return s.client.Close()
}
