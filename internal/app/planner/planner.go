package planner

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/ndastur/TiCons-CLI/internal/domain"
)

// 通过可替换的函数指针，让测试能稳定模拟 stat 错误。
var statFunc = os.Stat

// PlanTasks 基于 InputSpec + OutputSpecs + 源文件生成确定性的任务列表（不做任何写入）。
//
// 顺序：先按 sources 顺序，再按 outputs 顺序。
// 跳过规则：
// - 目标存在 .9.png 兄弟文件（手工维护的可拉伸图，永不覆盖）
// - 目标存在且 mtime 不早于源文件（已是最新）
func PlanTasks(in domain.InputSpec, outputs []domain.DensitySpec, sources []domain.SourceFile) ([]domain.PlannedTask, error) {
	tasks := make([]domain.PlannedTask, 0, len(sources)*len(outputs))
	for _, src := range sources {
		rel, err := RelativePath(in, src.AbsPath)
		if err != nil {
			return nil, err
		}

		for _, out := range outputs {
			target := out.Output + rel

			need, err := needsWrite(target, src)
			if err != nil {
				return nil, err
			}
			if !need {
				continue
			}

			tasks = append(tasks, domain.PlannedTask{
				Source:      src.AbsPath,
				Target:      target,
				Spec:        out.Name,
				SameDensity: in.DPI == out.DPI,
				Percent:     Percent(in.DPI, out.DPI),
			})
		}
	}
	return tasks, nil
}

// RelativePath 去掉源路径中 input spec 的前缀；retina 输入树额外去掉 "@2x"。
func RelativePath(in domain.InputSpec, source string) (string, error) {
	if len(source) < in.OutputLength || source[:in.OutputLength] != in.Output {
		return "", fmt.Errorf("源文件 %q 不在输入目录 %q 下", source, in.Output)
	}
	rel := source[in.OutputLength:]
	if in.Retina {
		// 只去掉第一个 "@2x"。
		rel = strings.Replace(rel, "@2x", "", 1)
	}
	return rel, nil
}

// Percent 计算缩放百分比：round(100 * outDPI / inDPI)。
func Percent(inDPI, outDPI int) int {
	if inDPI <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(outDPI) / float64(inDPI)))
}

// NinePatchSibling 返回 target 对应的 .9.png 路径；非 .png 目标返回空串。
func NinePatchSibling(target string) string {
	if !strings.HasSuffix(target, ".png") {
		return ""
	}
	return strings.TrimSuffix(target, ".png") + ".9.png"
}

func needsWrite(target string, src domain.SourceFile) (bool, error) {
	if nine := NinePatchSibling(target); nine != "" {
		exists, err := exists(nine)
		if err != nil {
			return false, err
		}
		if exists {
			return false, nil
		}
	}

	fi, err := statFunc(target)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	// 严格早于源文件才算过期。
	return fi.ModTime().Before(src.ModTime), nil
}

func exists(path string) (bool, error) {
	_, err := statFunc(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
