package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/ndastur/TiCons-CLI/internal/app/run"
	"github.com/ndastur/TiCons-CLI/internal/config"
	"github.com/ndastur/TiCons-CLI/internal/domain"
	"github.com/ndastur/TiCons-CLI/internal/infra/fsx"
	"github.com/ndastur/TiCons-CLI/internal/infra/imgx"
	"github.com/ndastur/TiCons-CLI/internal/infra/magick"
	"github.com/ndastur/TiCons-CLI/internal/watch"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

// exitError 让 RunE 把退出码带回 execute（cobra 本身只区分有无 error）。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

type assetsFlags struct {
	config    string
	outputDir string
	platforms []string
	trace     bool
	dryRun    bool
	backend   string
	watch     bool
	report    string
}

// isTTYFunc 便于测试覆盖 TTY 判断。
var isTTYFunc = isTTY

var newWatcher = watch.New

func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(stderr, "错误：%v\n", ee.err)
		}
		return ee.code
	}
	// cobra 自身的参数/命令错误。
	fmt.Fprintf(stderr, "参数错误：%v\n", err)
	return exitUsage
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "ticons",
		Short:         "按密度为多平台生成图片资源",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(newAssetsCmd(stdout, stderr), newSpecsCmd(stdout))
	return root
}

func newAssetsCmd(stdout, stderr io.Writer) *cobra.Command {
	f := &assetsFlags{}
	cmd := &cobra.Command{
		Use:   "assets [input]",
		Short: "从一个密度的图片树生成其他密度的图片（增量）",
		Long: `从一个密度的图片树生成其他密度的图片。

input 必须位于某个 density spec 的输出目录下（例如 app/assets/android/images/res-xhdpi）；
已是最新的目标与存在 .9.png 的目标会被跳过。

stdout 非 TTY 时只输出一个 JSON 报告；日志与摘要走 stderr。`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := config.CLIArgs{
				ConfigPath:   f.config,
				OutputDir:    f.outputDir,
				Platforms:    f.platforms,
				PlatformsSet: cmd.Flags().Changed("platforms"),
				Trace:        f.trace,
				TraceSet:     cmd.Flags().Changed("trace"),
				Backend:      f.backend,
				BackendSet:   cmd.Flags().Changed("backend"),
				DryRun:       f.dryRun,
				CLI:          true,
			}
			if len(args) == 1 {
				cli.Input = args[0]
			}
			return runAssets(cmd.Context(), cli, f, stdout, stderr)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.config, "config", "c", "", "配置文件路径（默认 ./"+config.FileName+"，可选）")
	fl.StringVarP(&f.outputDir, "output-dir", "o", "", "工程根目录，spec 的输出前缀相对它解析（默认当前目录）")
	fl.StringSliceVarP(&f.platforms, "platforms", "p", nil, "目标平台，逗号分隔（默认 android,ios）")
	fl.BoolVar(&f.trace, "trace", false, "输出调试日志及实际执行的转换命令")
	fl.BoolVar(&f.dryRun, "dry-run", false, "只规划，不写入")
	fl.StringVar(&f.backend, "backend", config.BackendBuiltin, "缩放后端：builtin|magick")
	fl.BoolVarP(&f.watch, "watch", "w", false, "首次生成后持续监听输入变化")
	fl.StringVar(&f.report, "report", "", "额外把 JSON 报告写入该文件")
	return cmd
}

func newSpecsCmd(stdout io.Writer) *cobra.Command {
	var (
		cfgPath   string
		outputDir string
		platforms []string
	)
	cmd := &cobra.Command{
		Use:   "specs",
		Short: "列出生效的 density spec",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return &exitError{code: exitFailed, err: err}
			}
			reg, err := config.LoadRegistry(cwd, config.CLIArgs{
				ConfigPath:   cfgPath,
				OutputDir:    outputDir,
				Platforms:    platforms,
				PlatformsSet: cmd.Flags().Changed("platforms"),
			})
			if err != nil {
				return &exitError{code: exitUsage, err: err}
			}
			printSpecs(stdout, reg.Specs())
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "配置文件路径")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "工程根目录")
	cmd.Flags().StringSliceVarP(&platforms, "platforms", "p", nil, "目标平台，逗号分隔")
	return cmd
}

func runAssets(ctx context.Context, cli config.CLIArgs, f *assetsFlags, stdout, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cwd, err := os.Getwd()
	if err != nil {
		return &exitError{code: exitFailed, err: fmt.Errorf("读取当前目录失败：%w", err)}
	}

	started := time.Now()
	eff, err := config.LoadEffective(cwd, cli)
	if err != nil {
		rr := domain.RunReport{
			DryRun:     cli.DryRun,
			StartedAt:  started,
			FinishedAt: time.Now(),
			ErrorCode:  config.Code(err),
			ErrorMsg:   err.Error(),
		}
		rr.Finalize()
		emitReport(stdout, stderr, rr)
		return &exitError{code: exitUsage}
	}

	log := newLogger(stderr, eff.Trace)
	env := run.Env{
		Log:       log,
		Converter: newConverter(eff, log),
	}
	if isTTYFunc(stderr) {
		env.Observer = newProgressUI(stderr)
	}

	once := func(ctx context.Context) error {
		started := time.Now()
		res, err := run.Execute(ctx, eff, env)
		rr := run.Report(eff, res, err, started, time.Now())
		if f.report != "" {
			if werr := writeReportFile(f.report, rr); werr != nil {
				fmt.Fprintf(stderr, "写入报告失败：%v\n", werr)
			}
		}
		emitReport(stdout, stderr, rr)
		return err
	}

	if !f.watch {
		if err := once(ctx); err != nil {
			return &exitError{code: exitFailed}
		}
		return nil
	}

	// 先建立监听再做首次生成，首次运行期间的改动也会触发下一轮。
	w, werr := newWatcher(eff.Input)
	if werr != nil {
		return &exitError{code: exitFailed, err: werr}
	}
	defer w.Close()
	w.Log = env.Log

	_ = once(ctx)
	env.Log.Info("监听输入变化", "input", eff.Input)
	if werr := w.Run(ctx, once); werr != nil && !errors.Is(werr, context.Canceled) {
		return &exitError{code: exitFailed, err: werr}
	}
	return nil
}

func newConverter(eff config.EffectiveConfig, log *slog.Logger) run.Converter {
	if eff.Backend == config.BackendMagick {
		c := magick.Converter{Bin: eff.MagickBin}
		if eff.Trace && eff.CLI {
			c.Trace = log
		}
		return c
	}
	return imgx.Resizer{}
}

func newLogger(w io.Writer, trace bool) *slog.Logger {
	level := slog.LevelInfo
	if trace {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func emitReport(stdout, stderr io.Writer, rr domain.RunReport) {
	summary := fmt.Sprintf("完成：planned=%d copied=%d generated=%d failed=%d aborted=%d",
		rr.Summary.Planned, rr.Summary.Copied, rr.Summary.Generated, rr.Summary.Failed, rr.Summary.Aborted,
	)

	if isTTYFunc(stdout) {
		for _, t := range rr.Tasks {
			if t.Status == domain.TaskStatusPlanned {
				fmt.Fprintf(stdout, "%s %d%% %s\n", t.Action, t.Percent, t.Target)
			}
		}
		fmt.Fprintln(stdout, summary)
		if rr.ErrorCode != "" {
			fmt.Fprintf(stderr, "%s: %s\n", rr.ErrorCode, rr.ErrorMsg)
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(stdout)
	_ = enc.Encode(rr)
	fmt.Fprintln(stderr, summary)
}

func writeReportFile(path string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return fsx.WriteFileAtomicReplace(filepath.Dir(abs), filepath.Base(abs), b)
}

func printSpecs(w io.Writer, specs []domain.DensitySpec) {
	r := lipgloss.NewRenderer(w)
	head := r.NewStyle().Bold(true)
	name := r.NewStyle().Foreground(lipgloss.Color("6")).Width(24)

	fmt.Fprintln(w, head.Render(fmt.Sprintf("%-24s %5s  %s", "NAME", "DPI", "OUTPUT")))
	for _, s := range specs {
		fmt.Fprintf(w, "%s %5d  %s\n", name.Render(s.Name), s.DPI, s.Output)
	}
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
