package service

import (
	"fmt"

	"github.com/TIANLI0/PersonWatch/model"
)

// RegionNormalizer 把 Clarifai 的嵌套结果转换为统一的 Region 列表。
// 这是唯一依赖工作流返回结构的地方。
type RegionNormalizer struct {
	target string
}

func NewRegionNormalizer(targetCategory string) *RegionNormalizer {
	return &RegionNormalizer{target: targetCategory}
}

// Normalize 返回全部区域以及类别等于目标类别的子集，两者都保持输入顺序
func (n *RegionNormalizer) Normalize(result *WorkflowResult) (all, matched []model.Region, err error) {
	if result == nil || len(result.Results) == 0 {
		return nil, nil, fmt.Errorf("%w: no results", ErrMalformedDetection)
	}
	outputs := result.Results[0].Outputs
	if len(outputs) == 0 {
		return nil, nil, fmt.Errorf("%w: no outputs", ErrMalformedDetection)
	}
	if outputs[0].Data == nil {
		return nil, nil, fmt.Errorf("%w: output has no data", ErrMalformedDetection)
	}

	raw := outputs[0].Data.Regions
	all = make([]model.Region, 0, len(raw))
	for i, r := range raw {
		if r.RegionInfo == nil || r.RegionInfo.BoundingBox == nil {
			return nil, nil, fmt.Errorf("%w: region %d has no bounding box", ErrMalformedDetection, i)
		}
		if r.Data == nil || len(r.Data.Concepts) == 0 {
			return nil, nil, fmt.Errorf("%w: region %d has no concepts", ErrMalformedDetection, i)
		}

		bb := r.RegionInfo.BoundingBox
		all = append(all, model.Region{
			Category: r.Data.Concepts[0].Name,
			Box: model.FractionalBox{
				Top:    bb.TopRow,
				Left:   bb.LeftCol,
				Bottom: bb.BottomRow,
				Right:  bb.RightCol,
			},
		})
	}

	return all, n.Filter(all), nil
}

// Filter 只保留目标类别
func (n *RegionNormalizer) Filter(regions []model.Region) []model.Region {
	matched := make([]model.Region, 0, len(regions))
	for _, r := range regions {
		if r.Category == n.target {
			matched = append(matched, r)
		}
	}
	return matched
}
