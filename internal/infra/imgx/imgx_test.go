package imgx

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestResize_PNGHalf(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.png")
	writePNG(t, src, 200, 100)

	dst := filepath.Join(dir, "out", "a.png")
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := (Resizer{}).Resize(context.Background(), src, dst, 50); err != nil {
		t.Fatalf("Resize 失败：%v", err)
	}

	b, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("读取目标失败：%v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode 目标失败：%v", err)
	}
	if format != "png" {
		t.Fatalf("输出编码应保持 png，实际 %q", format)
	}
	if cfg.Width != 100 || cfg.Height != 50 {
		t.Fatalf("尺寸不符合预期：got=%dx%d want=100x50", cfg.Width, cfg.Height)
	}
}

func TestResize_JPEGKeepsEncoding(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.jpg")

	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode jpeg 失败：%v", err)
	}
	if err := os.WriteFile(src, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("写入源失败：%v", err)
	}

	dst := filepath.Join(dir, "b.jpg")
	if err := (Resizer{}).Resize(context.Background(), src, dst, 150); err != nil {
		t.Fatalf("Resize 失败：%v", err)
	}

	f, err := os.Open(dst)
	if err != nil {
		t.Fatalf("打开目标失败：%v", err)
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode 目标失败：%v", err)
	}
	if format != "jpeg" || cfg.Width != 60 || cfg.Height != 45 {
		t.Fatalf("输出不符合预期：format=%q %dx%d", format, cfg.Width, cfg.Height)
	}
}

func TestScale_MinOnePixel(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	out, err := (Resizer{}).Scale(img, 10)
	if err != nil {
		t.Fatalf("Scale 失败：%v", err)
	}
	if b := out.Bounds(); b.Dx() != 1 || b.Dy() != 1 {
		t.Fatalf("期望 1x1，实际 %dx%d", b.Dx(), b.Dy())
	}
}

func TestResize_InvalidInput(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(src, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("写入源失败：%v", err)
	}
	dst := filepath.Join(dir, "out.png")

	if err := (Resizer{}).Resize(context.Background(), src, dst, 50); err == nil {
		t.Fatalf("期望解码错误")
	}
	if _, err := os.Stat(dst); !os.IsNotExist(err) {
		t.Fatalf("失败时不应写出目标：%v", err)
	}
	if err := (Resizer{}).Resize(context.Background(), src, dst, 0); err == nil {
		t.Fatalf("期望百分比错误")
	}
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png 失败：%v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("写入 png 失败：%v", err)
	}
}
