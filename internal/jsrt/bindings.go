package jsrt

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"
	"github.com/warpdl/warpalarm/internal/scheduler"
	"github.com/warpdl/warpalarm/pkg/alarm"
)

var errNotFunction = errors.New("callback is not a function")

func argError(op string, err error) error {
	return &alarm.Error{Kind: alarm.KindArgument, Op: op, Err: err}
}

// callbackArg returns the callback at argument i or throws.
func (r *Runtime) callbackArg(op string, call goja.FunctionCall, i int) *jsCallback {
	cb, ok := newCallback(r.Runtime, call.Argument(i))
	if !ok {
		r.throw(argError(op, errNotFunction))
	}
	return cb
}

// optionsArg converts the options object at argument i, if any.
func (r *Runtime) optionsArg(op string, call goja.FunctionCall, i int) []alarm.Option {
	v := call.Argument(i)
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	m, ok := v.Export().(map[string]any)
	if !ok {
		r.throw(argError(op, fmt.Errorf("%w: options must be an object", alarm.ErrInvalidOption)))
	}
	opts, err := alarm.ParseOptions(m)
	if err != nil {
		r.throw(err)
	}
	return opts
}

func (r *Runtime) handleArg(call goja.FunctionCall, i int) alarm.Handle {
	h, err := alarm.ParseHandle(call.Argument(i).String())
	if err != nil {
		r.throw(err)
	}
	return h
}

// alarm(seconds, fn, options?) arms fn to run seconds from now and returns
// the alarm id.
func (r *Runtime) alarm(call goja.FunctionCall) goja.Value {
	cb := r.callbackArg("alarm", call, 1)
	opts := r.optionsArg("alarm", call, 2)
	h, err := r.thr.AfterSeconds(call.Argument(0).ToFloat(), cb, opts...)
	if err != nil {
		r.throw(err)
	}
	return r.ToValue(h.String())
}

// alarm_at(epochSeconds, fn, options?) arms fn at an absolute time.
func (r *Runtime) alarmAt(call goja.FunctionCall) goja.Value {
	cb := r.callbackArg("alarm_at", call, 1)
	opts := r.optionsArg("alarm_at", call, 2)
	h, err := r.thr.AtSeconds(call.Argument(0).ToFloat(), cb, opts...)
	if err != nil {
		r.throw(err)
	}
	return r.ToValue(h.String())
}

// remove_alarm(id) removes an alarm. Removing a cron job stops it.
func (r *Runtime) removeAlarm(call goja.FunctionCall) goja.Value {
	h := r.handleArg(call, 0)
	if job, ok := r.jobs[h]; ok {
		delete(r.jobs, h)
		if err := job.Stop(); err != nil {
			r.throw(err)
		}
		return nil
	}
	if err := r.sched.Remove(h); err != nil {
		r.throw(err)
	}
	return nil
}

// uninstall_alarm(id) disarms an alarm without removing it.
func (r *Runtime) uninstallAlarm(call goja.FunctionCall) goja.Value {
	if err := r.sched.Uninstall(r.handleArg(call, 0)); err != nil {
		r.throw(err)
	}
	return nil
}

// install_alarm(id, seconds?) arms an uninstalled alarm. With seconds, the
// alarm is rearmed that far from now, whatever its state.
func (r *Runtime) installAlarm(call goja.FunctionCall) goja.Value {
	h := r.handleArg(call, 0)
	if secs := call.Argument(1); !goja.IsUndefined(secs) {
		d, err := alarm.DelayFromSeconds(secs.ToFloat())
		if err != nil {
			r.throw(err)
		}
		if err := r.sched.ReinstallAfter(h, d); err != nil {
			r.throw(err)
		}
		return nil
	}
	if err := r.sched.Install(h); err != nil {
		r.throw(err)
	}
	return nil
}

// current_alarms(id?) lists this runtime's alarms, or the one alarm id.
func (r *Runtime) currentAlarms(call goja.FunctionCall) goja.Value {
	f := alarm.Filter{Owner: r.thr}
	if v := call.Argument(0); !goja.IsUndefined(v) {
		f.Handle = r.handleArg(call, 0)
	}
	entries, err := r.sched.Query(f)
	if err != nil {
		r.throw(err)
	}
	out := make([]any, len(entries))
	for i, e := range entries {
		out[i] = map[string]any{
			"id":       e.Handle.String(),
			"at":       e.Seconds(),
			"callback": e.Callback,
			"status":   e.Status.String(),
			"thread":   e.Thread,
		}
	}
	return r.ToValue(out)
}

// every(cron, fn) runs fn at every occurrence of a 5-field cron expression
// and returns the alarm id.
func (r *Runtime) every(call goja.FunctionCall) goja.Value {
	expr := call.Argument(0).String()
	cb := r.callbackArg("every", call, 1)
	job, err := scheduler.Every(r.thr, expr, cb)
	if err != nil {
		if errors.Is(err, scheduler.ErrInvalidExpr) || errors.Is(err, scheduler.ErrNoOccurrence) {
			err = argError("every", err)
		}
		r.throw(err)
	}
	r.jobs[job.Handle()] = job
	return r.ToValue(job.Handle().String())
}
