package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/creachadair/jrpc2/jhttp"
	"github.com/warpdl/warpalarm/common"
	"github.com/warpdl/warpalarm/pkg/alarm"
)

// JSON-RPC error codes for alarm errors, by kind.
const (
	codeInvalidParams = jrpc2.Code(-32602)
	codeNotAnAlarm    = jrpc2.Code(-32001)
	codeNotPermitted  = jrpc2.Code(-32002)
	codeNoResources   = jrpc2.Code(-32003)
	codeInternal      = jrpc2.Code(-32603)
)

// RPCConfig holds configuration for the JSON-RPC endpoint.
type RPCConfig struct {
	Secret    string // Auth token (required -- empty means RPC disabled)
	Version   string // Daemon version
	Commit    string // Git commit
	BuildType string // Build type
}

// RPCServer manages the JSON-RPC 2.0 bridge and method handlers.
type RPCServer struct {
	bridge    jhttp.Bridge
	methods   handler.Map
	secret    string
	version   string
	commit    string
	buildType string
	sched     *alarm.Scheduler
	worker    *Worker
	notifier  *RPCNotifier
	seq       atomic.Uint64
	closeOnce sync.Once
}

// EmptyResult is a placeholder for methods that return no data.
type EmptyResult struct{}

// NewRPCServer creates a new RPCServer with method handlers and HTTP bridge.
// Alarms scheduled over RPC are owned by w's thread and announce themselves
// through n when they fire.
func NewRPCServer(cfg *RPCConfig, w *Worker, n *RPCNotifier) *RPCServer {
	rs := &RPCServer{
		secret:    cfg.Secret,
		version:   cfg.Version,
		commit:    cfg.Commit,
		buildType: cfg.BuildType,
		worker:    w,
		notifier:  n,
	}
	if w != nil {
		rs.sched = w.Thread().Scheduler()
	}

	rs.methods = handler.Map{
		"system.getVersion":   handler.New(rs.systemGetVersion),
		"alarm.scheduleAfter": handler.New(rs.alarmScheduleAfter),
		"alarm.scheduleAt":    handler.New(rs.alarmScheduleAt),
		"alarm.cancel":        handler.New(rs.alarmCancel),
		"alarm.uninstall":     handler.New(rs.alarmUninstall),
		"alarm.install":       handler.New(rs.alarmInstall),
		"alarm.reinstall":     handler.New(rs.alarmReinstall),
		"alarm.list":          handler.New(rs.alarmList),
	}

	rs.bridge = jhttp.NewBridge(rs.methods, nil)
	return rs
}

func (rs *RPCServer) systemGetVersion(_ context.Context) (*common.VersionResult, error) {
	return &common.VersionResult{
		Version:   rs.version,
		Commit:    rs.commit,
		BuildType: rs.buildType,
	}, nil
}

// alarmScheduleAfter arms an alarm Seconds from now.
func (rs *RPCServer) alarmScheduleAfter(_ context.Context, p *common.ScheduleAfterParams) (*common.ScheduleResult, error) {
	at, err := rs.deadlineAfter(p.Seconds)
	if err != nil {
		return nil, rpcError(err)
	}
	return rs.schedule(at, &p.ScheduleOptions)
}

// alarmScheduleAt arms an alarm at At seconds since the Unix epoch.
func (rs *RPCServer) alarmScheduleAt(_ context.Context, p *common.ScheduleAtParams) (*common.ScheduleResult, error) {
	at, err := alarm.DeadlineFromSeconds(p.At)
	if err != nil {
		return nil, rpcError(err)
	}
	return rs.schedule(at, &p.ScheduleOptions)
}

func (rs *RPCServer) deadlineAfter(sec float64) (time.Time, error) {
	d, err := alarm.DelayFromSeconds(sec)
	if err != nil {
		return time.Time{}, err
	}
	return rs.sched.Now().Add(d), nil
}

func (rs *RPCServer) schedule(at time.Time, o *common.ScheduleOptions) (*common.ScheduleResult, error) {
	if rs.worker == nil {
		return nil, &jrpc2.Error{Code: codeNoResources, Message: "no alarm worker"}
	}
	label := o.Label
	if label == "" {
		label = fmt.Sprintf("rpc#%d", rs.seq.Add(1))
	}
	cb := &firedCallback{label: label, notifier: rs.notifier, clock: rs.sched}
	// The callback needs its handle, so it is set before the alarm is armed.
	h, err := rs.worker.Thread().At(at, cb, alarm.WithAutoRemove(o.AutoRemove), alarm.WithInstall(false))
	if err != nil {
		return nil, rpcError(err)
	}
	cb.handle = h
	if !o.NoInstall {
		if err := rs.sched.Install(h); err != nil {
			_ = rs.sched.Remove(h)
			return nil, rpcError(err)
		}
	}
	return &common.ScheduleResult{ID: h.String()}, nil
}

func (rs *RPCServer) handle(id string) (alarm.Handle, error) {
	if rs.sched == nil {
		return alarm.Handle{}, &jrpc2.Error{Code: codeNoResources, Message: "no alarm worker"}
	}
	h, err := alarm.ParseHandle(id)
	if err != nil {
		return alarm.Handle{}, rpcError(err)
	}
	return h, nil
}

// alarmCancel removes an alarm.
func (rs *RPCServer) alarmCancel(_ context.Context, p *common.IDParam) (*EmptyResult, error) {
	h, err := rs.handle(p.ID)
	if err != nil {
		return nil, err
	}
	if err := rs.sched.Remove(h); err != nil {
		return nil, rpcError(err)
	}
	return &EmptyResult{}, nil
}

// alarmUninstall disarms an alarm without removing it.
func (rs *RPCServer) alarmUninstall(_ context.Context, p *common.IDParam) (*EmptyResult, error) {
	h, err := rs.handle(p.ID)
	if err != nil {
		return nil, err
	}
	if err := rs.sched.Uninstall(h); err != nil {
		return nil, rpcError(err)
	}
	return &EmptyResult{}, nil
}

// alarmInstall arms an alarm that is not armed, keeping its deadline.
func (rs *RPCServer) alarmInstall(_ context.Context, p *common.IDParam) (*EmptyResult, error) {
	h, err := rs.handle(p.ID)
	if err != nil {
		return nil, err
	}
	if err := rs.sched.Install(h); err != nil {
		return nil, rpcError(err)
	}
	return &EmptyResult{}, nil
}

// alarmReinstall rearms an alarm, Seconds from now if given.
func (rs *RPCServer) alarmReinstall(_ context.Context, p *common.ReinstallParams) (*EmptyResult, error) {
	h, err := rs.handle(p.ID)
	if err != nil {
		return nil, err
	}
	if p.Seconds == nil {
		err = rs.sched.Reinstall(h)
	} else {
		var at time.Time
		at, err = rs.deadlineAfter(*p.Seconds)
		if err == nil {
			err = rs.sched.ReinstallAt(h, at)
		}
	}
	if err != nil {
		return nil, rpcError(err)
	}
	return &EmptyResult{}, nil
}

// alarmList returns the alarms of every thread, or the one alarm ID.
func (rs *RPCServer) alarmList(_ context.Context, p *common.ListParams) (*common.ListResult, error) {
	if rs.sched == nil {
		return &common.ListResult{Alarms: []*common.AlarmEntry{}}, nil
	}
	var f alarm.Filter
	if p.ID != "" {
		h, err := alarm.ParseHandle(p.ID)
		if err != nil {
			// an id that does not parse does not denote an alarm
			return nil, rpcError(&alarm.Error{Kind: alarm.KindDomain, Op: "query", Err: err})
		}
		f.Handle = h
	}
	entries, err := rs.sched.Query(f)
	if err != nil {
		return nil, rpcError(err)
	}
	alarms := make([]*common.AlarmEntry, 0, len(entries))
	for _, e := range entries {
		if p.Status != "" && p.Status != e.Status.String() {
			continue
		}
		alarms = append(alarms, common.NewAlarmEntry(e))
	}
	return &common.ListResult{Alarms: alarms}, nil
}

// rpcError maps alarm errors to JSON-RPC errors by kind.
func rpcError(err error) error {
	var je *jrpc2.Error
	if errors.As(err, &je) {
		return je
	}
	code := codeInternal
	switch alarm.KindOf(err) {
	case alarm.KindArgument:
		code = codeInvalidParams
	case alarm.KindDomain:
		code = codeNotAnAlarm
	case alarm.KindPermission:
		code = codeNotPermitted
	case alarm.KindResource:
		code = codeNoResources
	}
	return &jrpc2.Error{Code: code, Message: err.Error()}
}

// Close shuts down the jrpc2 bridge, releasing internal goroutines.
// It is safe to call more than once.
func (rs *RPCServer) Close() {
	rs.closeOnce.Do(func() { rs.bridge.Close() })
}

// firedCallback announces an RPC alarm to websocket clients when it fires.
type firedCallback struct {
	label    string
	handle   alarm.Handle
	notifier *RPCNotifier
	clock    interface{ Now() time.Time }
}

func (c *firedCallback) Invoke(_ context.Context) error {
	if c.notifier == nil {
		return nil
	}
	c.notifier.Broadcast(common.AlarmFiredMethod, &common.AlarmFiredNotification{
		ID:      c.handle.String(),
		Label:   c.label,
		FiredAt: common.Seconds(c.clock.Now()),
	})
	return nil
}

func (c *firedCallback) String() string {
	return c.label
}
