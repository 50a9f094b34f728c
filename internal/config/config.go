package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"gopkg.in/yaml.v3"

	"github.com/ndastur/TiCons-CLI/internal/density"
	"github.com/ndastur/TiCons-CLI/internal/domain"
)

const (
	// ErrCodeNotFound 表示显式指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingInput 表示 CLI 与配置文件都没有给出 input。
	ErrCodeMissingInput = "config_missing_input"
	// ErrCodeUnknownPlatform 表示 platforms 中有注册表不认识的平台。
	ErrCodeUnknownPlatform = "config_unknown_platform"
)

const (
	// FileName 是默认配置文件名（位于 cwd）。
	FileName = "ticons.yaml"

	BackendBuiltin = "builtin"
	BackendMagick  = "magick"
)

// DefaultPlatforms 是 platforms 的最终默认值。
var DefaultPlatforms = []string{"android", "ios"}

// CLIArgs 是 CLI 暴露的入口，并保留“是否显式指定”的信息，
// 保证 --trace=false 这类参数能覆盖配置文件。
type CLIArgs struct {
	ConfigPath string

	Input     string
	OutputDir string

	Platforms    []string
	PlatformsSet bool

	Trace    bool
	TraceSet bool

	Backend    string
	BackendSet bool

	DryRun bool
	// CLI 表示由命令行调用（决定是否输出人类可读的进度）。
	CLI bool
}

// FileConfig 对应 ticons.yaml 的解析结构（JSON 也是合法 YAML）。
type FileConfig struct {
	Input     string                `yaml:"input"`
	OutputDir string                `yaml:"output_dir"`
	Platforms []string              `yaml:"platforms"`
	Nine      bool                  `yaml:"nine"` // assets 流程不读取
	Trace     *bool                 `yaml:"trace"`
	Backend   string                `yaml:"backend"`
	MagickBin string                `yaml:"magick_bin"`
	Specs     map[string]SpecConfig `yaml:"specs"`
}

// SpecConfig 覆盖或新增一个 density spec；output 相对 output_dir。
type SpecConfig struct {
	Output string `yaml:"output"`
	DPI    int    `yaml:"dpi"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费）。
type EffectiveConfig struct {
	Input     string
	OutputDir string
	Platforms []string

	// Nine 只供 splash 等生成 9-patch 的命令使用，对 assets 流程没有影响。
	Nine   bool
	Trace  bool
	CLI    bool
	DryRun bool

	Backend   string
	MagickBin string

	// Registry 已按 platforms 过滤，且 output 已解析为 OutputDir 下的绝对前缀。
	Registry density.Registry
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeMissingInput:
		return fmt.Sprintf("%s：未指定 input（命令行参数或配置文件 input 字段）", e.Code)
	default:
		if e.Err != nil && e.Path != "" {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 给了 --config：必须存在
// 2) 否则尝试读取 <cwd>/ticons.yaml（可选）
//
// 覆盖优先级（固定）：CLI > 配置文件 > 默认值。
// 相对路径一律相对 cwd 解析。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Err: err}
	}

	cfgPath := filepath.Join(cwdAbs, FileName)
	required := false
	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigPath)
		required = true
	}

	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if required && !exists {
		return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
	}
	if !exists {
		cfgPath = ""
	}

	input := strings.TrimSpace(cli.Input)
	if input == "" {
		input = strings.TrimSpace(fc.Input)
	}
	if input == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeMissingInput, Path: cfgPath}
	}
	return merge(cwdAbs, input, cli, fc, cfgPath)
}

// LoadRegistry 与 LoadEffective 使用相同的发现/合并规则，但不要求 input，
// 只返回最终生效的 density 注册表（用于列出 spec）。
func LoadRegistry(cwd string, cli CLIArgs) (density.Registry, error) {
	if strings.TrimSpace(cli.Input) == "" {
		// 占位：注册表与 input 无关。
		cli.Input = "."
	}
	eff, err := LoadEffective(cwd, cli)
	if err != nil {
		return density.Registry{}, err
	}
	return eff.Registry, nil
}

func merge(cwdAbs, input string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {

	outputDir := strings.TrimSpace(cli.OutputDir)
	if outputDir == "" {
		outputDir = strings.TrimSpace(fc.OutputDir)
	}
	if outputDir == "" {
		outputDir = cwdAbs
	}

	platforms := DefaultPlatforms
	if cli.PlatformsSet {
		platforms = cli.Platforms
	} else if len(fc.Platforms) > 0 {
		platforms = fc.Platforms
	}
	platforms = normalizePlatforms(platforms)
	if len(platforms) == 0 {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: errors.New("platforms 不能为空")}
	}

	trace := false
	if cli.TraceSet {
		trace = cli.Trace
	} else if fc.Trace != nil {
		trace = *fc.Trace
	}

	backend := BackendBuiltin
	if cli.BackendSet {
		backend = cli.Backend
	} else if strings.TrimSpace(fc.Backend) != "" {
		backend = fc.Backend
	}
	backend = strings.ToLower(strings.TrimSpace(backend))
	if backend != BackendBuiltin && backend != BackendMagick {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("backend 只能是 builtin 或 magick，实际是 %q", backend)}
	}

	reg, err := density.Default().With(overrides(fc.Specs)...)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if err := validatePlatforms(platforms, reg); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeUnknownPlatform, Path: cfgPath, Err: err}
	}

	outputDirAbs := absCleanFrom(cwdAbs, outputDir)
	return EffectiveConfig{
		Input:     absCleanFrom(cwdAbs, input),
		OutputDir: outputDirAbs,
		Platforms: platforms,
		Nine:      fc.Nine,
		Trace:     trace,
		CLI:       cli.CLI,
		DryRun:    cli.DryRun,
		Backend:   backend,
		MagickBin: strings.TrimSpace(fc.MagickBin),
		Registry:  reg.ForPlatforms(platforms).Rooted(outputDirAbs),
	}, nil
}

func overrides(specs map[string]SpecConfig) []domain.DensitySpec {
	out := make([]domain.DensitySpec, 0, len(specs))
	for name, s := range specs {
		out = append(out, domain.DensitySpec{Name: name, Output: s.Output, DPI: s.DPI})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func normalizePlatforms(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, p := range in {
		// 允许 "android,ios" 这种逗号分隔写法。
		for _, part := range strings.Split(p, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			out = append(out, part)
		}
	}
	return out
}

func validatePlatforms(platforms []string, reg density.Registry) error {
	known := map[string]struct{}{}
	for _, s := range reg.Specs() {
		known[density.Platform(s.Name)] = struct{}{}
	}
	names := make([]string, 0, len(known))
	for k := range known {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, p := range platforms {
		if _, ok := known[p]; ok {
			continue
		}
		if s := Suggest(p, names); s != "" {
			return fmt.Errorf("未知平台 %q（是否想输入 %q？）", p, s)
		}
		return fmt.Errorf("未知平台 %q，可用：%v", p, names)
	}
	return nil
}

// Suggest 返回与 s 编辑距离最近且在阈值内的候选；没有则返回空串。
func Suggest(s string, candidates []string) string {
	best := ""
	bestDist := -1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(s, c)
		if d > suggestLimit(len(c)) {
			continue
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func suggestLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	p = filepath.Clean(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 YAML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
