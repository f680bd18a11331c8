package model

import "math"

// FractionalBox 以图像高宽比例表示的边界框，取值范围 [0,1]
type FractionalBox struct {
	Top    float64 `json:"top"`
	Left   float64 `json:"left"`
	Bottom float64 `json:"bottom"`
	Right  float64 `json:"right"`
}

// PixelBox 像素坐标边界框
type PixelBox struct {
	Top    int `json:"top"`
	Left   int `json:"left"`
	Bottom int `json:"bottom"`
	Right  int `json:"right"`
}

// Width 可能为负数（退化的边界框）
func (b PixelBox) Width() int { return b.Right - b.Left }

func (b PixelBox) Height() int { return b.Bottom - b.Top }

// Pixels 按图像尺寸换算为像素坐标，四舍五入
func (b FractionalBox) Pixels(width, height int) PixelBox {
	return PixelBox{
		Top:    int(math.Round(b.Top * float64(height))),
		Left:   int(math.Round(b.Left * float64(width))),
		Bottom: int(math.Round(b.Bottom * float64(height))),
		Right:  int(math.Round(b.Right * float64(width))),
	}
}

// Region 单个检测结果
type Region struct {
	Category string        `json:"category"`
	Box      FractionalBox `json:"box"`
}

// CachedDetections 缓存中保存的未过滤检测结果
type CachedDetections struct {
	MD5       string   `json:"md5"`
	Regions   []Region `json:"regions"`
	Timestamp int64    `json:"timestamp"`
}
