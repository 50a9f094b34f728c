package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ndastur/TiCons-CLI/internal/domain"
)

// ErrNoSources 表示输入路径下没有任何可用的源图片。
var ErrNoSources = errors.New("找不到输入图片")

// ScanImages 把输入路径解析为源图片列表。
//
// 规则（硬约束）：
// - input 是目录：递归列出文件名以 .png 或 .jpg 结尾的文件（大小写敏感）
// - input 是文件：它本身就是唯一的源（不检查扩展名）
// - 结果为空：返回 ErrNoSources
//
// 注意：扫描阶段只做 stat（DirEntry.Info），不读文件内容。
func ScanImages(input string) ([]domain.SourceFile, error) {
	input, err := filepath.Abs(input)
	if err != nil {
		return nil, err
	}

	fi, err := os.Stat(input)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return []domain.SourceFile{{AbsPath: input, ModTime: fi.ModTime()}}, nil
	}

	files := make([]domain.SourceFile, 0, 64)
	err = filepath.WalkDir(input, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !IsImageName(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, domain.SourceFile{
			AbsPath: path,
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w：%q", ErrNoSources, input)
	}

	// 强制稳定输出，避免不同平台/文件系统行为差异带来的不确定性。
	sort.Slice(files, func(i, j int) bool { return files[i].AbsPath < files[j].AbsPath })
	return files, nil
}

// IsImageName 判断文件名是否为可处理的源图片（大小写敏感）。
func IsImageName(name string) bool {
	return strings.HasSuffix(name, ".png") || strings.HasSuffix(name, ".jpg")
}
