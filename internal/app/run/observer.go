package run

import (
	"time"

	"github.com/ndastur/TiCons-CLI/internal/config"
	"github.com/ndastur/TiCons-CLI/internal/domain"
)

// Observer 用于把“运行进度/阶段/任务结果”从核心执行流程中解耦出来。
//
// 约束：run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// 任务严格串行，事件总是来自同一个 goroutine。
type Observer interface {
	// OnStart 在 Execute 开始时调用。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束时调用（resolve/scan/plan/exec）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnTaskDone 在每个任务完成（成功或失败）后调用；idx 从 1 开始。
	OnTaskDone(idx, total int, task domain.PlannedTask, err error, dur time.Duration)
}
