package magick

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ndastur/TiCons-CLI/internal/infra/fsx"
)

// DefaultBin 是 ImageMagick 6 的命令名；ImageMagick 7 可配置为 "magick"。
const DefaultBin = "convert"

// 通过可替换的函数指针，让测试不依赖本机安装 ImageMagick。
var execFunc = func(ctx context.Context, bin string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// Converter 通过外部 ImageMagick 进程完成缩放。
type Converter struct {
	Bin string
	// Trace 非 nil 时，每次执行前以 Debug 级别输出实际的 argv（含临时文件路径）。
	Trace *slog.Logger
}

func (c Converter) bin() string {
	if strings.TrimSpace(c.Bin) == "" {
		return DefaultBin
	}
	return c.Bin
}

// Resize 调用 ImageMagick 把 src 缩放到 dst。
//
// 先写同目录临时文件（保留扩展名，ImageMagick 依赖它决定编码），成功后再 rename。
func (c Converter) Resize(ctx context.Context, src, dst string, percent int) error {
	if percent <= 0 {
		return fmt.Errorf("缩放百分比必须为正数，实际 %d", percent)
	}

	dir := filepath.Dir(dst)
	base := filepath.Base(dst)
	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*"+filepath.Ext(base))
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(tmpName) }()

	argv := args(src, tmpName, percent)
	if c.Trace != nil {
		c.Trace.Debug("Executing: " + strings.Join(append([]string{c.bin()}, argv...), " "))
	}
	out, err := execFunc(ctx, c.bin(), argv...)
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("%s 执行失败：%w：%s", c.bin(), err, msg)
		}
		return fmt.Errorf("%s 执行失败：%w", c.bin(), err)
	}
	return fsx.Rename(tmpName, dst)
}

func args(src, dst string, percent int) []string {
	return []string{src, "-resize", fmt.Sprintf("%d%%", percent), dst}
}
