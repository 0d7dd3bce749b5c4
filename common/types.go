package common

import (
	"time"

	"github.com/warpdl/warpalarm/pkg/alarm"
)

// VersionResult is the response for system.getVersion.
type VersionResult struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildType string `json:"buildType,omitempty"`
}

// ScheduleOptions are shared by the schedule methods.
type ScheduleOptions struct {
	// Label describes the alarm in listings and fired notifications.
	Label      string `json:"label,omitempty"`
	AutoRemove bool   `json:"autoRemove,omitempty"`
	NoInstall  bool   `json:"noInstall,omitempty"`
}

// ScheduleAfterParams is the input for alarm.scheduleAfter.
type ScheduleAfterParams struct {
	Seconds float64 `json:"seconds"`
	ScheduleOptions
}

// ScheduleAtParams is the input for alarm.scheduleAt.
type ScheduleAtParams struct {
	// At is in seconds since the Unix epoch.
	At float64 `json:"at"`
	ScheduleOptions
}

// ScheduleResult is the response for the schedule methods.
type ScheduleResult struct {
	ID string `json:"id"`
}

// IDParam is a common input with just an alarm id.
type IDParam struct {
	ID string `json:"id"`
}

// ReinstallParams is the input for alarm.reinstall. Without Seconds the
// alarm keeps its deadline.
type ReinstallParams struct {
	ID      string   `json:"id"`
	Seconds *float64 `json:"seconds,omitempty"`
}

// ListParams is the input for alarm.list.
type ListParams struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status,omitempty"` // "scheduled", "next", "done" or "" for all
}

// AlarmEntry is a single entry in the alarm.list response.
type AlarmEntry struct {
	ID       string  `json:"id"`
	At       float64 `json:"at"`
	Callback string  `json:"callback"`
	Status   string  `json:"status"`
	Thread   int     `json:"thread"`
}

// NewAlarmEntry converts a query snapshot entry.
func NewAlarmEntry(e alarm.Entry) *AlarmEntry {
	return &AlarmEntry{
		ID:       e.Handle.String(),
		At:       e.Seconds(),
		Callback: e.Callback,
		Status:   e.Status.String(),
		Thread:   e.Thread,
	}
}

// Time returns the deadline as a time.Time.
func (e *AlarmEntry) Time() time.Time {
	return FromSeconds(e.At)
}

// ListResult is the response for alarm.list.
type ListResult struct {
	Alarms []*AlarmEntry `json:"alarms"`
}

// AlarmFiredNotification is pushed to websocket clients when an alarm
// scheduled over RPC fires.
type AlarmFiredNotification struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"`
	FiredAt float64 `json:"firedAt"`
}

// Seconds converts t to fractional seconds since the Unix epoch.
func Seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// FromSeconds converts fractional seconds since the Unix epoch.
func FromSeconds(sec float64) time.Time {
	return time.Unix(0, int64(sec*float64(time.Second)))
}
