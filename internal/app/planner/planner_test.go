package planner

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ndastur/TiCons-CLI/internal/domain"
)

var base = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestPlanTasks_MissingTargetsPlannedInSourceOrder(t *testing.T) {
	root := t.TempDir()
	in, outs := specs(root, 160, 320)

	sources := []domain.SourceFile{
		writeAt(t, filepath.Join(in.Output, "a.png"), base),
		writeAt(t, filepath.Join(in.Output, "b.png"), base),
	}

	tasks, err := PlanTasks(in, outs, sources)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("期望 2 个任务，实际 %d", len(tasks))
	}
	for i, name := range []string{"a.png", "b.png"} {
		want := outs[0].Output + name
		if tasks[i].Target != want {
			t.Fatalf("第 %d 个任务：期望 target=%q，实际=%q", i, want, tasks[i].Target)
		}
		if tasks[i].SameDensity || tasks[i].Percent != 200 {
			t.Fatalf("期望 resize 200%%：%+v", tasks[i])
		}
	}
}

func TestPlanTasks_Staleness(t *testing.T) {
	cases := []struct {
		name     string
		target   *time.Time
		wantTask bool
	}{
		{name: "absent", target: nil, wantTask: true},
		{name: "older", target: ptr(base.Add(-time.Second)), wantTask: true},
		{name: "equal", target: ptr(base), wantTask: false},
		{name: "newer", target: ptr(base.Add(time.Second)), wantTask: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			root := t.TempDir()
			in, outs := specs(root, 160, 160)
			src := writeAt(t, filepath.Join(in.Output, "x.png"), base)
			if tc.target != nil {
				writeAt(t, outs[0].Output+"x.png", *tc.target)
			}

			tasks, err := PlanTasks(in, outs, []domain.SourceFile{src})
			if err != nil {
				t.Fatalf("不期望错误：%v", err)
			}
			if got := len(tasks) == 1; got != tc.wantTask {
				t.Fatalf("期望 task=%v，实际 tasks=%+v", tc.wantTask, tasks)
			}
			if tc.wantTask && !tasks[0].SameDensity {
				t.Fatalf("同密度应为 copy：%+v", tasks[0])
			}
		})
	}
}

func TestPlanTasks_NinePatchSiblingSuppresses(t *testing.T) {
	root := t.TempDir()
	in, outs := specs(root, 160, 240)
	src := writeAt(t, filepath.Join(in.Output, "bg.png"), base)
	writeAt(t, outs[0].Output+"bg.9.png", base.Add(-time.Hour))

	tasks, err := PlanTasks(in, outs, []domain.SourceFile{src})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("存在 .9.png 时不应规划任务：%+v", tasks)
	}
}

func TestPlanTasks_RetinaStripsSuffix(t *testing.T) {
	root := t.TempDir()
	in, outs := specs(root, 320, 160)
	in.Retina = true

	src := writeAt(t, filepath.Join(in.Output, "icon@2x", "foo.png"), base)

	tasks, err := PlanTasks(in, outs, []domain.SourceFile{src})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("期望 1 个任务，实际 %d", len(tasks))
	}
	want := outs[0].Output + filepath.Join("icon", "foo.png")
	if tasks[0].Target != want {
		t.Fatalf("retina 映射错误：got=%q want=%q", tasks[0].Target, want)
	}
	if tasks[0].Percent != 50 {
		t.Fatalf("期望 50%%，实际 %d", tasks[0].Percent)
	}
}

func TestRelativePath_RetinaStripsFirstOccurrenceOnly(t *testing.T) {
	in := domain.InputSpec{
		DensitySpec:  domain.DensitySpec{Name: domain.RetinaSpecName, Output: "/in/", DPI: 320},
		OutputLength: len("/in/"),
		Retina:       true,
	}
	got, err := RelativePath(in, "/in/icon@2x/foo@2x.png")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if got != "icon/foo@2x.png" {
		t.Fatalf("只应去掉第一个 @2x：got=%q", got)
	}

	in.Retina = false
	if got, _ := RelativePath(in, "/in/foo@2x.png"); got != "foo@2x.png" {
		t.Fatalf("非 retina 输入不应改写：got=%q", got)
	}
}

func TestPlanTasks_SourceOutsideInput(t *testing.T) {
	root := t.TempDir()
	in, outs := specs(root, 160, 320)

	_, err := PlanTasks(in, outs, []domain.SourceFile{{AbsPath: "/elsewhere/a.png", ModTime: base}})
	if err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
}

func TestPlanTasks_StatErrorPropagates(t *testing.T) {
	root := t.TempDir()
	in, outs := specs(root, 160, 320)
	src := domain.SourceFile{AbsPath: in.Output + "a.png", ModTime: base}

	old := statFunc
	statFunc = func(string) (fs.FileInfo, error) { return nil, os.ErrPermission }
	defer func() { statFunc = old }()

	_, err := PlanTasks(in, outs, []domain.SourceFile{src})
	if !errors.Is(err, os.ErrPermission) {
		t.Fatalf("期望 ErrPermission，实际：%v", err)
	}
}

func TestPercent(t *testing.T) {
	cases := []struct{ in, out, want int }{
		{160, 320, 200},
		{320, 120, 38}, // 37.5 => 38
		{480, 160, 33},
		{160, 160, 100},
		{0, 160, 0},
	}
	for _, c := range cases {
		if got := Percent(c.in, c.out); got != c.want {
			t.Fatalf("Percent(%d,%d)=%d want %d", c.in, c.out, got, c.want)
		}
	}
}

func TestNinePatchSibling(t *testing.T) {
	if got := NinePatchSibling("/a/b.png"); got != "/a/b.9.png" {
		t.Fatalf("got=%q", got)
	}
	if got := NinePatchSibling("/a/b.jpg"); got != "" {
		t.Fatalf("jpg 不应有 9-patch 兄弟：%q", got)
	}
}

func specs(root string, inDPI, outDPI int) (domain.InputSpec, []domain.DensitySpec) {
	sep := string(filepath.Separator)
	in := domain.NewInputSpec(domain.DensitySpec{Name: "in", Output: filepath.Join(root, "in") + sep, DPI: inDPI})
	outs := []domain.DensitySpec{{Name: "out", Output: filepath.Join(root, "out") + sep, DPI: outDPI}}
	return in, outs
}

func writeAt(t *testing.T, path string, mtime time.Time) domain.SourceFile {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("设置 mtime 失败：%v", err)
	}
	return domain.SourceFile{AbsPath: path, ModTime: mtime}
}

func ptr(t time.Time) *time.Time { return &t }
