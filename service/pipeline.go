package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TIANLI0/PersonWatch/model"
	"github.com/TIANLI0/PersonWatch/utils"
	"go.uber.org/zap"
)

// Detector 提交图片到检测服务
type Detector interface {
	Detect(ctx context.Context, image []byte) (*WorkflowResult, error)
}

// Relayer 把图片转发到消息渠道
type Relayer interface {
	Relay(ctx context.Context, image []byte, filename string) error
}

// DetectionCache 按图片 MD5 缓存未过滤的检测结果
type DetectionCache interface {
	GetDetections(ctx context.Context, md5 string) (*model.CachedDetections, error)
	SetDetections(ctx context.Context, md5 string, regions []model.Region) error
}

// Outcome 一次处理的结果。Regions 是全部检测结果，Matched 是实际绘制并转发的部分。
type Outcome struct {
	Relayed bool
	Regions []model.Region
	Matched []model.Region
}

// PipelineService 检测 -> 过滤 -> 绘制 -> 转发，两个上传入口共用
type PipelineService struct {
	detector   Detector
	normalizer *RegionNormalizer
	renderer   *OverlayRenderer
	relayer    Relayer
	cache      DetectionCache
}

// NewPipelineService cache 可以为 nil
func NewPipelineService(detector Detector, normalizer *RegionNormalizer, renderer *OverlayRenderer, relayer Relayer, cache DetectionCache) *PipelineService {
	return &PipelineService{
		detector:   detector,
		normalizer: normalizer,
		renderer:   renderer,
		relayer:    relayer,
		cache:      cache,
	}
}

// Process 单次前向处理，不重试。转发失败不算处理失败，体现在 Outcome.Relayed。
func (s *PipelineService) Process(ctx context.Context, image []byte, filename string) (*Outcome, error) {
	startTime := time.Now()
	md5 := utils.BytesMD5(image)

	all, matched, err := s.detect(ctx, md5, image)
	if err != nil {
		return nil, err
	}

	utils.Logger.Info("regions detected",
		zap.String("md5", md5),
		zap.Int("regions", len(all)),
		zap.Int("matched", len(matched)))

	rendered, err := s.renderer.Render(image, matched)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{Regions: all, Matched: matched}

	if err := s.relayer.Relay(ctx, rendered, filename); err != nil {
		utils.Logger.Error("failed to relay image",
			zap.String("md5", md5),
			zap.Error(err))
	} else {
		outcome.Relayed = true
	}

	utils.Logger.Info("image processed",
		zap.String("md5", md5),
		zap.Bool("relayed", outcome.Relayed),
		zap.Duration("duration", time.Since(startTime)))

	return outcome, nil
}

func (s *PipelineService) detect(ctx context.Context, md5 string, image []byte) (all, matched []model.Region, err error) {
	if s.cache != nil {
		cached, err := s.cache.GetDetections(ctx, md5)
		if err != nil {
			utils.Logger.Warn("failed to get cache", zap.Error(err))
		}
		if cached != nil {
			utils.Logger.Info("cache hit", zap.String("md5", md5))
			return cached.Regions, s.normalizer.Filter(cached.Regions), nil
		}
	}

	result, err := s.detector.Detect(ctx, image)
	if err != nil {
		if errors.Is(err, ErrDetectionService) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrDetectionService, err)
	}

	all, matched, err = s.normalizer.Normalize(result)
	if err != nil {
		return nil, nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetDetections(ctx, md5, all); err != nil {
			utils.Logger.Warn("failed to set cache", zap.Error(err))
		}
	}

	return all, matched, nil
}
