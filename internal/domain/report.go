package domain

import (
	"encoding/json"
	"time"
)

const (
	ActionCopy   = "copy"
	ActionResize = "resize"
)

const (
	TaskStatusPlanned = "planned"
	TaskStatusDone    = "done"
	TaskStatusFailed  = "failed"
	// TaskStatusAborted 表示前序任务失败后未执行的任务。
	TaskStatusAborted = "aborted"
)

const (
	ErrCodeNoInputSpec    = "no_input_spec"
	ErrCodeAmbiguousInput = "ambiguous_input_spec"
	ErrCodeNoSources      = "no_sources"
	ErrCodeIOFailed       = "io_failed"
	ErrCodeConvertFailed  = "convert_failed"
	ErrCodeConfigInvalid  = "config_invalid"
)

// RunReport 是对外稳定输出（stdout JSON）的结构。
type RunReport struct {
	Input     string `json:"input"`
	InputSpec string `json:"input_spec"`
	DryRun    bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// ErrorCode/ErrorMsg 仅在整次运行失败（前置条件或任务失败）时非空。
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	Summary ReportSummary `json:"summary"`
	Tasks   []TaskResult  `json:"tasks"`
}

type ReportSummary struct {
	Planned   int `json:"planned"`
	Copied    int `json:"copied"`
	Generated int `json:"generated"`
	Failed    int `json:"failed"`
	Aborted   int `json:"aborted"`
}

type TaskResult struct {
	Source  string `json:"source"`
	Target  string `json:"target"`
	Spec    string `json:"spec"`
	Action  string `json:"action"`
	// Percent 为缩放比例；copy 时为 100。
	Percent int    `json:"percent"`
	Status  string `json:"status"`
	Error   string `json:"error"`
}

// Finalize 做两件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) summary 由 tasks 计算得出
//
// tasks 保持执行顺序，不重新排序。
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()
	if r.Tasks == nil {
		r.Tasks = []TaskResult{}
	}

	s := ReportSummary{Planned: len(r.Tasks)}
	for _, t := range r.Tasks {
		switch t.Status {
		case TaskStatusDone:
			if t.Action == ActionCopy {
				s.Copied++
			} else {
				s.Generated++
			}
		case TaskStatusFailed:
			s.Failed++
		case TaskStatusAborted:
			s.Aborted++
		}
	}
	r.Summary = s
}

// OK 表示整次运行没有失败。
func (r RunReport) OK() bool {
	return r.ErrorCode == "" && r.Summary.Failed == 0
}

// MarshalJSON 仅用于集中约束输出的稳定性。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
