package density

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ndastur/TiCons-CLI/internal/domain"
)

// Registry 是 density spec 的只读注册表（按 name 索引）。
// 遍历顺序不参与任何语义；需要顺序时一律按 name 排序。
type Registry struct {
	byName map[string]domain.DensitySpec
}

func NewRegistry(specs ...domain.DensitySpec) (Registry, error) {
	byName := make(map[string]domain.DensitySpec, len(specs))
	for _, s := range specs {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			return Registry{}, fmt.Errorf("spec.Name 不能为空")
		}
		if s.Output == "" {
			return Registry{}, fmt.Errorf("spec %q 缺少 output", name)
		}
		if s.DPI <= 0 {
			return Registry{}, fmt.Errorf("spec %q 的 dpi 必须为正数，实际 %d", name, s.DPI)
		}
		if _, ok := byName[name]; ok {
			return Registry{}, fmt.Errorf("重复的 spec：%q", name)
		}
		s.Name = name
		byName[name] = s
	}
	return Registry{byName: byName}, nil
}

func (r Registry) Get(name string) (domain.DensitySpec, bool) {
	s, ok := r.byName[name]
	return s, ok
}

func (r Registry) Len() int { return len(r.byName) }

// Specs 返回按 name 排序的全部 spec。
func (r Registry) Specs() []domain.DensitySpec {
	out := make([]domain.DensitySpec, 0, len(r.byName))
	for _, s := range r.byName {
		out = append(out, s)
	}
	sortByName(out)
	return out
}

// Platform 返回 spec 名称所属的平台（第一个 '-' 之前的部分）。
func Platform(name string) string {
	if i := strings.IndexByte(name, '-'); i >= 0 {
		return name[:i]
	}
	return name
}

// ForPlatforms 只保留属于 platforms 的 spec。
func (r Registry) ForPlatforms(platforms []string) Registry {
	want := make(map[string]struct{}, len(platforms))
	for _, p := range platforms {
		want[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}
	byName := make(map[string]domain.DensitySpec, len(r.byName))
	for name, s := range r.byName {
		if _, ok := want[Platform(name)]; ok {
			byName[name] = s
		}
	}
	return Registry{byName: byName}
}

// Rooted 把相对 output 前缀解析到 outputDir 下，并保证以路径分隔符结尾。
// 已是绝对路径的 output 只做 Clean。
func (r Registry) Rooted(outputDir string) Registry {
	sep := string(filepath.Separator)
	byName := make(map[string]domain.DensitySpec, len(r.byName))
	for name, s := range r.byName {
		out := filepath.FromSlash(s.Output)
		if !filepath.IsAbs(out) {
			out = filepath.Join(outputDir, out)
		}
		out = filepath.Clean(out)
		if !strings.HasSuffix(out, sep) {
			out += sep
		}
		s.Output = out
		byName[name] = s
	}
	return Registry{byName: byName}
}

// With 返回叠加 overrides 后的新注册表（同名覆盖）。
func (r Registry) With(overrides ...domain.DensitySpec) (Registry, error) {
	merged := make(map[string]domain.DensitySpec, len(r.byName)+len(overrides))
	for name, s := range r.byName {
		merged[name] = s
	}
	for _, s := range overrides {
		merged[strings.TrimSpace(s.Name)] = s
	}
	all := make([]domain.DensitySpec, 0, len(merged))
	for name, s := range merged {
		s.Name = name
		all = append(all, s)
	}
	return NewRegistry(all...)
}

func sortByName(specs []domain.DensitySpec) {
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
}
