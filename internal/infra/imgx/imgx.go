package imgx

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"

	"golang.org/x/image/draw"

	"github.com/ndastur/TiCons-CLI/internal/infra/fsx"
)

// jpegQuality 固定值，与 ImageMagick 无法推断原质量时的默认值一致。
const jpegQuality = 92

// Resizer 是纯 Go 的缩放后端（golang.org/x/image/draw）。
//
// 约束：
// - 输入允许是 PNG/JPEG
// - 输出编码与输入一致（不做格式转换）
// - 写入是原子的：失败不会留下半成品
type Resizer struct {
	// Scaler 为 nil 时使用 CatmullRom。
	Scaler draw.Scaler
}

// Command 返回与本次缩放等价的命令描述（仅用于 trace，不会被执行）。
func (r Resizer) Command(src, dst string, percent int) []string {
	return []string{"builtin", src, "-resize", fmt.Sprintf("%d%%", percent), dst}
}

// Resize 把 src 按 percent 缩放后写到 dst。
func (r Resizer) Resize(ctx context.Context, src, dst string, percent int) error {
	if percent <= 0 {
		return fmt.Errorf("缩放百分比必须为正数，实际 %d", percent)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	img, format, err := decodeFile(src)
	if err != nil {
		return fmt.Errorf("解码 %q 失败：%w", src, err)
	}

	out, err := r.Scale(img, percent)
	if err != nil {
		return err
	}

	return fsx.WriteAtomic(dst, func(w io.Writer) error {
		return encode(w, out, format)
	})
}

// Scale 按 percent 缩放 img；任一边至少保留 1 像素。
func (r Resizer) Scale(img image.Image, percent int) (image.Image, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.New("图片尺寸无效")
	}

	w := scaled(b.Dx(), percent)
	h := scaled(b.Dy(), percent)

	s := r.Scaler
	if s == nil {
		s = draw.CatmullRom
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	s.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, nil
}

func scaled(n, percent int) int {
	v := int(math.Round(float64(n) * float64(percent) / 100))
	if v < 1 {
		return 1
	}
	return v
}

func decodeFile(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	return image.Decode(f)
}

func encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	default:
		return fmt.Errorf("不支持的图片格式：%q", format)
	}
}
