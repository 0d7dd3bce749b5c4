package alarmcli

import (
	"context"
	"errors"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/warpdl/warpalarm/common"
)

// Error codes returned by the daemon besides the standard JSON-RPC ones.
const (
	CodeInvalidParams = -32602
	CodeNotAnAlarm    = -32001
	CodeNotPermitted  = -32002
	CodeNoResources   = -32003
)

// ErrorCode returns the JSON-RPC error code carried by err, or 0 if err did
// not come from the daemon.
func ErrorCode(err error) int {
	var je *jrpc2.Error
	if errors.As(err, &je) {
		return int(je.Code)
	}
	return 0
}

func invoke[T any](ctx context.Context, c *Client, method string, params any) (*T, error) {
	var res T
	if err := c.rpc.CallResult(ctx, method, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Version returns the daemon's build information.
func (c *Client) Version(ctx context.Context) (*common.VersionResult, error) {
	return invoke[common.VersionResult](ctx, c, "system.getVersion", nil)
}

// ScheduleAfter schedules an alarm d from now and returns its id.
func (c *Client) ScheduleAfter(ctx context.Context, d time.Duration, opts *common.ScheduleOptions) (string, error) {
	p := &common.ScheduleAfterParams{Seconds: d.Seconds()}
	if opts != nil {
		p.ScheduleOptions = *opts
	}
	res, err := invoke[common.ScheduleResult](ctx, c, "alarm.scheduleAfter", p)
	if err != nil {
		return "", err
	}
	return res.ID, nil
}

// ScheduleAt schedules an alarm at t and returns its id.
func (c *Client) ScheduleAt(ctx context.Context, t time.Time, opts *common.ScheduleOptions) (string, error) {
	p := &common.ScheduleAtParams{At: common.Seconds(t)}
	if opts != nil {
		p.ScheduleOptions = *opts
	}
	res, err := invoke[common.ScheduleResult](ctx, c, "alarm.scheduleAt", p)
	if err != nil {
		return "", err
	}
	return res.ID, nil
}

// Cancel removes an alarm.
func (c *Client) Cancel(ctx context.Context, id string) error {
	_, err := invoke[struct{}](ctx, c, "alarm.cancel", &common.IDParam{ID: id})
	return err
}

// Uninstall unlinks an alarm from the schedule without removing it.
func (c *Client) Uninstall(ctx context.Context, id string) error {
	_, err := invoke[struct{}](ctx, c, "alarm.uninstall", &common.IDParam{ID: id})
	return err
}

// Install links an uninstalled alarm back into the schedule at its
// current deadline.
func (c *Client) Install(ctx context.Context, id string) error {
	_, err := invoke[struct{}](ctx, c, "alarm.install", &common.IDParam{ID: id})
	return err
}

// Reinstall moves an alarm to d from now and installs it.
func (c *Client) Reinstall(ctx context.Context, id string, d time.Duration) error {
	sec := d.Seconds()
	_, err := invoke[struct{}](ctx, c, "alarm.reinstall", &common.ReinstallParams{ID: id, Seconds: &sec})
	return err
}

// List returns alarms, optionally narrowed to one id or one status.
func (c *Client) List(ctx context.Context, p *common.ListParams) ([]*common.AlarmEntry, error) {
	if p == nil {
		p = &common.ListParams{}
	}
	res, err := invoke[common.ListResult](ctx, c, "alarm.list", p)
	if err != nil {
		return nil, err
	}
	return res.Alarms, nil
}

// CheckVersion reports a mismatch between the daemon's version and want.
// It returns the daemon version and whether it matches.
func (c *Client) CheckVersion(ctx context.Context, want string) (string, bool, error) {
	v, err := c.Version(ctx)
	if err != nil {
		return "", false, err
	}
	return v.Version, want == "" || v.Version == want, nil
}
