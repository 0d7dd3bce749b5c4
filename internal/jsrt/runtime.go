// Package jsrt hosts JavaScript programs that schedule alarms. A Runtime is
// one goja runtime bound to one alarm.Thread; JavaScript functions are the
// alarm callbacks and always run on that thread's driver goroutine.
package jsrt

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	requirePkg "github.com/dop251/goja_nodejs/require"
	"github.com/spf13/afero"
	"github.com/warpdl/warpalarm/internal/scheduler"
	"github.com/warpdl/warpalarm/pkg/alarm"
	"github.com/warpdl/warpalarm/pkg/logger"
)

// Options configures a Runtime. The zero value reads scripts from the OS
// filesystem and prints to os.Stdout.
type Options struct {
	// Fs is the filesystem scripts and required modules are read from.
	Fs afero.Fs
	// Logger receives console.warn/console.error output and callback
	// failures.
	Logger logger.Logger
	// Stdout receives print and console.log output.
	Stdout io.Writer
	// WorkDir resolves relative require paths. Empty means the directory of
	// the script passed to RunFile.
	WorkDir string
}

type Runtime struct {
	*requirePkg.RequireModule
	*goja.Runtime
	thr   *alarm.Thread
	sched *alarm.Scheduler
	fs    afero.Fs
	l     logger.Logger
	out   io.Writer
	wd    string
	// jobs maps the handles of cron jobs to the jobs, so that removing the
	// alarm also stops the recurrence.
	jobs map[alarm.Handle]*scheduler.Job
	// imported lists the modules loaded through require.
	imported []string
}

// New creates a Runtime whose alarms are owned by thr. The Runtime must only
// be used from thr's driver goroutine.
func New(thr *alarm.Thread, opts *Options) (*Runtime, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.Fs == nil {
		o.Fs = afero.NewOsFs()
	}
	if o.Logger == nil {
		o.Logger = logger.NewNopLogger()
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	r := &Runtime{
		Runtime: goja.New(),
		thr:     thr,
		sched:   thr.Scheduler(),
		fs:      o.Fs,
		l:       o.Logger,
		out:     o.Stdout,
		wd:      o.WorkDir,
		jobs:    make(map[alarm.Handle]*scheduler.Job),
	}
	registry := requirePkg.NewRegistry(requirePkg.WithLoader(r.loadSource))
	registry.RegisterNativeModule(console.ModuleName, console.RequireWithPrinter(printer{r}))
	r.RequireModule = registry.Enable(r.Runtime)
	console.Enable(r.Runtime)

	globals := map[string]any{
		"print":           r.print,
		"require":         r.require,
		"alarm":           r.alarm,
		"alarm_at":        r.alarmAt,
		"remove_alarm":    r.removeAlarm,
		"uninstall_alarm": r.uninstallAlarm,
		"install_alarm":   r.installAlarm,
		"current_alarms":  r.currentAlarms,
		"every":           r.every,
	}
	for name, fn := range globals {
		if err := r.Set(name, fn); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Thread returns the thread that owns the runtime's alarms.
func (r *Runtime) Thread() *alarm.Thread {
	return r.thr
}

// Imported returns the modules loaded through require, in load order.
func (r *Runtime) Imported() []string {
	return r.imported
}

// RunFile loads and runs the script at path.
func (r *Runtime) RunFile(path string) error {
	b, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return err
	}
	if r.wd == "" {
		r.wd = filepath.Dir(path)
	}
	_, err = r.RunScript(path, string(b))
	return err
}

func (r *Runtime) loadSource(name string) ([]byte, error) {
	b, err := afero.ReadFile(r.fs, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, requirePkg.ModuleFileDoesNotExistError
	}
	return b, err
}

func (r *Runtime) print(call goja.FunctionCall) goja.Value {
	parts := make([]string, len(call.Arguments))
	for i, v := range call.Arguments {
		parts[i] = fmt.Sprint(v.Export())
	}
	fmt.Fprintln(r.out, strings.Join(parts, " "))
	return nil
}

func (r *Runtime) require(call goja.FunctionCall) goja.Value {
	modName := call.Argument(0).String()
	modPath := modName
	if strings.HasPrefix(modName, "./") || strings.HasPrefix(modName, "../") {
		modPath = filepath.Join(r.wd, modName)
	}
	v, err := r.RequireModule.Require(modPath)
	if err != nil {
		r.l.Error("require: failed to import module %s: %v", modName, err)
		panic(r.NewGoError(err))
	}
	r.imported = append(r.imported, modName)
	return v
}

// throw raises err as a JavaScript exception. Alarm errors carry their kind
// in the "kind" property.
func (r *Runtime) throw(err error) {
	obj := r.NewGoError(err)
	if k := alarm.KindOf(err); k != 0 {
		_ = obj.Set("kind", k.String())
	}
	panic(obj)
}

type printer struct {
	r *Runtime
}

func (p printer) Log(s string) {
	fmt.Fprintln(p.r.out, s)
}

func (p printer) Info(s string) {
	p.Log(s)
}

func (p printer) Debug(s string) {
	p.r.l.Debug("console: %s", s)
}

func (p printer) Warn(s string) {
	p.r.l.Warning("console: %s", s)
}

func (p printer) Error(s string) {
	p.r.l.Error("console: %s", s)
}
