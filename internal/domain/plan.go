package domain

// PlannedTask 规划一次目标写入：SameDensity 为 true 时字节拷贝，否则按 Percent 缩放。
//
// 同一次运行内 Target 互不相同（一个 source × 一个 output spec 只产生一个任务）。
type PlannedTask struct {
	Source      string
	Target      string
	Spec        string // 目标 spec 名称，仅用于报告
	SameDensity bool
	Percent     int
}

// Action 返回任务动作名（copy/resize），用于报告与日志。
func (t PlannedTask) Action() string {
	if t.SameDensity {
		return ActionCopy
	}
	return ActionResize
}
