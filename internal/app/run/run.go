package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ndastur/TiCons-CLI/internal/app/planner"
	"github.com/ndastur/TiCons-CLI/internal/config"
	"github.com/ndastur/TiCons-CLI/internal/density"
	"github.com/ndastur/TiCons-CLI/internal/domain"
	"github.com/ndastur/TiCons-CLI/internal/infra/fsx"
	"github.com/ndastur/TiCons-CLI/internal/scan"
)

// Converter 是外部图片转换能力：把 src 按 percent 缩放后写到 dst，编码与 src 一致。
type Converter interface {
	Resize(ctx context.Context, src, dst string, percent int) error
}

// Describer 是可选能力：返回一次缩放对应的命令行，仅用于 trace 输出。
type Describer interface {
	Command(src, dst string, percent int) []string
}

// Env 是一次调用的上下文：日志、转换后端、观察者都显式传入，不依赖进程级全局状态。
type Env struct {
	Log       *slog.Logger
	Converter Converter
	Observer  Observer
}

func (e Env) logger() *slog.Logger {
	if e.Log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Log
}

// Plan 是前置阶段（resolve/scan/plan）的产物。
type Plan struct {
	Input   domain.InputSpec
	Outputs []domain.DensitySpec
	Sources []domain.SourceFile
	Tasks   []domain.PlannedTask
}

// Result 是一次运行的结果：Targets 是按执行顺序成功写入的目标路径。
type Result struct {
	Plan
	Targets []string
}

// TaskError 描述导致整次运行中止的任务失败。
type TaskError struct {
	Index int // 在 Plan.Tasks 中的下标
	Task  domain.PlannedTask
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s %q -> %q 失败：%v", e.Task.Action(), e.Task.Source, e.Task.Target, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// Execute 执行一次完整的 asset 流程：识别输入密度 → 枚举源文件 → 规划 → 串行执行。
//
// 前置条件失败（无匹配 spec / 无源图片）以 error 返回，不会静默结束。
// 任务失败会中止剩余任务；已完成的目标保留，且体现在 Result.Targets 中。
// dry-run 只规划不执行。
func Execute(ctx context.Context, eff config.EffectiveConfig, env Env) (Result, error) {
	obs := env.Observer
	if obs != nil {
		obs.OnStart(eff)
	}

	p, err := BuildPlan(eff, env)
	if err != nil {
		return Result{Plan: p}, err
	}
	res := Result{Plan: p}
	if eff.DryRun {
		return res, nil
	}

	execStarted := time.Now()
	targets, err := RunTasks(ctx, eff, env, p.Tasks)
	res.Targets = targets
	if obs != nil {
		obs.OnPhaseDone("exec", map[string]any{
			"done":  len(targets),
			"total": len(p.Tasks),
		}, time.Since(execStarted))
	}
	return res, err
}

// BuildPlan 完成 resolve/scan/plan 三个阶段（不做任何写入）。
func BuildPlan(eff config.EffectiveConfig, env Env) (Plan, error) {
	log := env.logger()
	obs := env.Observer

	started := time.Now()
	in, err := density.ResolveInput(inputKey(eff.Input), eff.Registry)
	if err != nil {
		log.Error("无法识别输入密度", "input", eff.Input, "err", err)
		return Plan{}, err
	}
	outputs := density.OutputSpecs(in, eff.Registry)
	p := Plan{Input: in, Outputs: outputs}
	if obs != nil {
		obs.OnPhaseDone("resolve", map[string]any{
			"input_spec": in.Name,
			"outputs":    len(outputs),
		}, time.Since(started))
	}

	started = time.Now()
	sources, err := scan.ScanImages(eff.Input)
	if err != nil {
		log.Error("找不到输入图片", "input", eff.Input, "err", err)
		return p, err
	}
	p.Sources = sources
	if obs != nil {
		obs.OnPhaseDone("scan", map[string]any{"files": len(sources)}, time.Since(started))
	}

	started = time.Now()
	tasks, err := planner.PlanTasks(in, outputs, sources)
	if err != nil {
		log.Error("规划失败", "err", err)
		return p, err
	}
	p.Tasks = tasks
	if obs != nil {
		var copies int
		for _, t := range tasks {
			if t.SameDensity {
				copies++
			}
		}
		obs.OnPhaseDone("plan", map[string]any{
			"tasks":   len(tasks),
			"copy":    copies,
			"resize":  len(tasks) - copies,
			"skipped": len(sources)*len(outputs) - len(tasks),
		}, time.Since(started))
	}
	log.Debug("规划完成", "input_spec", in.Name, "sources", len(sources), "tasks", len(tasks))
	return p, nil
}

// RunTasks 严格串行执行 tasks：每个任务完成（成功或失败）后才开始下一个。
//
// 首个失败中止剩余任务，返回 *TaskError；返回的 targets 是失败前已成功写入的目标。
func RunTasks(ctx context.Context, eff config.EffectiveConfig, env Env, tasks []domain.PlannedTask) ([]string, error) {
	log := env.logger()
	targets := make([]string, 0, len(tasks))

	for i, t := range tasks {
		if err := ctx.Err(); err != nil {
			return targets, &TaskError{Index: i, Task: t, Err: err}
		}

		started := time.Now()
		err := runOne(ctx, eff, env, t)
		if env.Observer != nil {
			env.Observer.OnTaskDone(i+1, len(tasks), t, err, time.Since(started))
		}
		if err != nil {
			log.Error("任务失败，中止剩余任务", "target", t.Target, "remaining", len(tasks)-i-1, "err", err)
			return targets, &TaskError{Index: i, Task: t, Err: err}
		}
		targets = append(targets, t.Target)
	}
	return targets, nil
}

func runOne(ctx context.Context, eff config.EffectiveConfig, env Env, t domain.PlannedTask) error {
	if t.SameDensity {
		return fsx.CopyFile(t.Source, t.Target)
	}

	if env.Converter == nil {
		return errors.New("未配置图片转换后端")
	}
	if err := fsx.EnsureDir(filepath.Dir(t.Target)); err != nil {
		return err
	}
	if eff.Trace && eff.CLI {
		if d, ok := env.Converter.(Describer); ok {
			env.logger().Debug("Executing: " + strings.Join(d.Command(t.Source, t.Target, t.Percent), " "))
		}
	}
	return env.Converter.Resize(ctx, t.Source, t.Target, t.Percent)
}

// inputKey 返回用于前缀匹配的输入路径：目录补上结尾分隔符，
// 使 ".../res-xhdpi" 也能匹配 ".../res-xhdpi/"。
func inputKey(input string) string {
	sep := string(filepath.Separator)
	if strings.HasSuffix(input, sep) {
		return input
	}
	if fi, err := os.Stat(input); err == nil && fi.IsDir() {
		return input + sep
	}
	return input
}
