package service

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"

	"github.com/TIANLI0/PersonWatch/model"
	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

var (
	strokeColor  = color.RGBA{R: 255, A: 255}
	outlineColor = color.RGBA{A: 255}
)

const (
	strokeWidth = 5

	labelOffsetX   = 5
	labelAbove     = 5
	labelInside    = 20
	labelEdge      = 20
	labelFontScale = 0.8
	labelThickness = 1
	labelOutline   = 3
)

// 输出格式与输入保持一致
var encodeExt = map[string]gocv.FileExt{
	"jpeg": gocv.FileExt(".jpg"),
	"png":  gocv.FileExt(".png"),
	"webp": gocv.FileExt(".webp"),
	"bmp":  gocv.FileExt(".bmp"),
}

// OverlayRenderer 在图片上绘制检测框和标签
type OverlayRenderer struct {
	label string
}

func NewOverlayRenderer(label string) *OverlayRenderer {
	return &OverlayRenderer{label: label}
}

// Render 返回绘制后的图片字节。regions 为空时原样返回输入。
func (r *OverlayRenderer) Render(data []byte, regions []model.Region) ([]byte, error) {
	header, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	ext, ok := encodeExt[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, format)
	}

	if len(regions) == 0 {
		return data, nil
	}

	img, err := decodeMat(data, hasAlpha(header.ColorModel))
	if err != nil {
		return nil, err
	}
	defer img.Close()

	width, height := img.Cols(), img.Rows()
	for _, region := range regions {
		r.draw(&img, region.Box.Pixels(width, height))
	}

	buf, err := gocv.IMEncode(ext, img)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrUnsupportedImage, err)
	}
	defer buf.Close()

	return bytes.Clone(buf.GetBytes()), nil
}

// draw 退化的框（宽或高不为正）不绘制矩形，只绘制标签
func (r *OverlayRenderer) draw(img *gocv.Mat, box model.PixelBox) {
	if box.Width() > 0 && box.Height() > 0 {
		gocv.Rectangle(img, image.Rect(box.Left, box.Top, box.Right, box.Bottom), strokeColor, strokeWidth)
	}

	org := labelOrigin(box)
	gocv.PutText(img, r.label, org, gocv.FontHersheySimplex, labelFontScale, outlineColor, labelOutline)
	gocv.PutText(img, r.label, org, gocv.FontHersheySimplex, labelFontScale, strokeColor, labelThickness)
}

// labelOrigin 标签基线放在框上方，靠近图片顶部时改放到框内
func labelOrigin(box model.PixelBox) image.Point {
	y := box.Top - labelAbove
	if box.Top < labelEdge {
		y = box.Top + labelInside
	}
	return image.Point{X: box.Left + labelOffsetX, Y: y}
}

// decodeMat 带透明通道的图片按原样解码，保留 alpha；其余统一为 8 位 BGR
func decodeMat(data []byte, alpha bool) (gocv.Mat, error) {
	flags := gocv.IMReadColor | gocv.IMReadIgnoreOrientation
	if alpha {
		flags = gocv.IMReadUnchanged
	}

	img, err := gocv.IMDecode(data, flags)
	if err != nil {
		return img, fmt.Errorf("%w: decode: %v", ErrUnsupportedImage, err)
	}
	if img.Empty() {
		img.Close()
		return img, fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}

	if img.Type()&7 == gocv.MatTypeCV16U {
		converted := gocv.NewMat()
		img.ConvertToWithParams(&converted, gocv.MatTypeCV8U, 1.0/257, 0)
		img.Close()
		img = converted
	}
	if img.Channels() == 1 {
		converted := gocv.NewMat()
		gocv.CvtColor(img, &converted, gocv.ColorGrayToBGR)
		img.Close()
		img = converted
	}
	return img, nil
}

func hasAlpha(m color.Model) bool {
	if p, ok := m.(color.Palette); ok {
		for _, c := range p {
			if _, _, _, a := c.RGBA(); a < 0xffff {
				return true
			}
		}
		return false
	}
	return m == color.NRGBAModel || m == color.NRGBA64Model || m == color.NYCbCrAModel
}
