package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ndastur/TiCons-CLI/internal/app/run"
	"github.com/ndastur/TiCons-CLI/internal/config"
	"github.com/ndastur/TiCons-CLI/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的进度输出，只写 stderr，不污染 stdout 的 JSON 契约。
//
// 任务严格串行，事件来自同一个 goroutine，因此不需要锁。
type progressUI struct {
	w io.Writer

	target lipgloss.Style
	fail   lipgloss.Style
	dim    lipgloss.Style
}

func newProgressUI(w io.Writer) *progressUI {
	r := lipgloss.NewRenderer(w)
	return &progressUI{
		w:      w,
		target: r.NewStyle().Foreground(lipgloss.Color("6")),
		fail:   r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		dim:    r.NewStyle().Faint(true),
	}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	mode := "generate"
	if eff.DryRun {
		mode = "dry-run"
	}
	fmt.Fprintf(p.w, "[%s] ticons assets (%s)\n", time.Now().Format("15:04:05"), mode)
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  input: %s\n", eff.Input)
	fmt.Fprintf(p.w, "  output_dir: %s\n", eff.OutputDir)
	fmt.Fprintf(p.w, "  platforms: %s\n", formatList(eff.Platforms))
	fmt.Fprintf(p.w, "  backend: %s\n", eff.Backend)
	fmt.Fprintf(p.w, "  nine: %s（assets 不使用）\n", onOff(eff.Nine))
	fmt.Fprintf(p.w, "  trace: %s\n", onOff(eff.Trace))
	fmt.Fprintln(p.w)
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	switch name {
	case "resolve":
		fmt.Fprintf(p.w, "识别: input_spec=%s outputs=%d (%s)\n",
			stringField(fields, "input_spec"), intField(fields, "outputs"), formatShortDuration(dur),
		)
	case "scan":
		fmt.Fprintf(p.w, "扫描: files=%d (%s)\n", intField(fields, "files"), formatShortDuration(dur))
	case "plan":
		fmt.Fprintf(p.w, "规划: tasks=%d copy=%d resize=%d up_to_date=%d (%s)\n",
			intField(fields, "tasks"),
			intField(fields, "copy"),
			intField(fields, "resize"),
			intField(fields, "skipped"),
			formatShortDuration(dur),
		)
	case "exec":
		fmt.Fprintf(p.w, "执行: done=%d/%d (%s)\n",
			intField(fields, "done"), intField(fields, "total"), formatShortDuration(dur),
		)
	default:
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
}

func (p *progressUI) OnTaskDone(idx, total int, task domain.PlannedTask, err error, dur time.Duration) {
	counter := p.dim.Render(fmt.Sprintf("[%d/%d]", idx, total))

	if err != nil {
		fmt.Fprintf(p.w, "%s %s %s: %v\n", counter, p.fail.Render("FAIL"), task.Target, err)
		return
	}

	verb := "Generated:"
	if task.SameDensity {
		verb = "Copied:"
	}
	fmt.Fprintf(p.w, "%s %s %s (%s)\n", counter, verb, p.target.Render(task.Target), formatShortDuration(dur))
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatList(xs []string) string {
	if len(xs) == 0 {
		return "-"
	}
	return strings.Join(xs, ",")
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	switch x := fields[key].(type) {
	case int:
		return x
	case int64:
		return int(x)
	default:
		return 0
	}
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}
