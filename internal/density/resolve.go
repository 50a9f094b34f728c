package density

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ndastur/TiCons-CLI/internal/domain"
)

var (
	// ErrNoInputSpec 表示没有任何 spec 的 output 前缀能匹配输入路径。
	ErrNoInputSpec = errors.New("无法识别输入密度")
	// ErrAmbiguousInputSpec 表示有多个 spec 同时匹配输入路径。
	ErrAmbiguousInputSpec = errors.New("输入密度不唯一")
)

// 两者密度等价：同时存在时 mdpi 不再生成。
const (
	dedupeDropped = "android-res-mdpi"
	dedupeKept    = "ios-images"
)

// ResolveInput 从注册表中选出 output 是 input 字面前缀的那一个 spec。
//
// 匹配必须唯一：0 个返回 ErrNoInputSpec，多个返回 ErrAmbiguousInputSpec。
func ResolveInput(input string, reg Registry) (domain.InputSpec, error) {
	var matched []domain.DensitySpec
	for _, s := range reg.Specs() {
		if strings.HasPrefix(input, s.Output) {
			matched = append(matched, s)
		}
	}

	switch len(matched) {
	case 0:
		return domain.InputSpec{}, fmt.Errorf("%w：%q", ErrNoInputSpec, input)
	case 1:
		return domain.NewInputSpec(matched[0]), nil
	default:
		names := make([]string, 0, len(matched))
		for _, s := range matched {
			names = append(names, s.Name)
		}
		return domain.InputSpec{}, fmt.Errorf("%w：%q 同时匹配 %v", ErrAmbiguousInputSpec, input, names)
	}
}

// OutputSpecs 返回除 input 以外的全部 spec（按 name 排序），并应用 mdpi/ios-images 去重规则。
func OutputSpecs(in domain.InputSpec, reg Registry) []domain.DensitySpec {
	out := make([]domain.DensitySpec, 0, reg.Len())
	present := make(map[string]bool, reg.Len())
	for _, s := range reg.Specs() {
		if s.Name == in.Name {
			continue
		}
		out = append(out, s)
		present[s.Name] = true
	}

	if !present[dedupeDropped] || !present[dedupeKept] {
		return out
	}
	kept := out[:0]
	for _, s := range out {
		if s.Name != dedupeDropped {
			kept = append(kept, s)
		}
	}
	return kept
}
