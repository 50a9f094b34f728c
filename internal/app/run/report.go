package run

import (
	"errors"
	"time"

	"github.com/ndastur/TiCons-CLI/internal/config"
	"github.com/ndastur/TiCons-CLI/internal/density"
	"github.com/ndastur/TiCons-CLI/internal/domain"
	"github.com/ndastur/TiCons-CLI/internal/scan"
)

// Report 把一次 Execute 的结果转换为对外稳定的 RunReport。
//
// 任务状态由 Result 推导：Targets 覆盖的前缀为 done，TaskError 指向的为 failed，
// 其后为 aborted；dry-run 全部为 planned。
func Report(eff config.EffectiveConfig, res Result, err error, started, finished time.Time) domain.RunReport {
	rr := domain.RunReport{
		Input:      eff.Input,
		InputSpec:  res.Input.Name,
		DryRun:     eff.DryRun,
		StartedAt:  started,
		FinishedAt: finished,
		Tasks:      make([]domain.TaskResult, 0, len(res.Tasks)),
	}

	failedIdx := -1
	var te *TaskError
	if errors.As(err, &te) {
		failedIdx = te.Index
	}

	for i, t := range res.Tasks {
		tr := domain.TaskResult{
			Source:  t.Source,
			Target:  t.Target,
			Spec:    t.Spec,
			Action:  t.Action(),
			Percent: t.Percent,
		}
		switch {
		case eff.DryRun:
			tr.Status = domain.TaskStatusPlanned
		case i < len(res.Targets):
			tr.Status = domain.TaskStatusDone
		case i == failedIdx:
			tr.Status = domain.TaskStatusFailed
			tr.Error = te.Err.Error()
		default:
			tr.Status = domain.TaskStatusAborted
		}
		rr.Tasks = append(rr.Tasks, tr)
	}

	if err != nil {
		rr.ErrorCode = ErrorCode(err)
		rr.ErrorMsg = err.Error()
	}
	rr.Finalize()
	return rr
}

// ErrorCode 把错误映射为报告中的 error_code。
func ErrorCode(err error) string {
	var te *TaskError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, density.ErrNoInputSpec):
		return domain.ErrCodeNoInputSpec
	case errors.Is(err, density.ErrAmbiguousInputSpec):
		return domain.ErrCodeAmbiguousInput
	case errors.Is(err, scan.ErrNoSources):
		return domain.ErrCodeNoSources
	case config.Code(err) != "":
		return domain.ErrCodeConfigInvalid
	case errors.As(err, &te) && !te.Task.SameDensity:
		return domain.ErrCodeConvertFailed
	default:
		return domain.ErrCodeIOFailed
	}
}
