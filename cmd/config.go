package cmd

import "time"

const (
	// DEF_RPC_TIMEOUT bounds a single call to the daemon.
	DEF_RPC_TIMEOUT = 10 * time.Second
	// DEF_WATCH_TICK is how often watch redraws its countdown bars.
	DEF_WATCH_TICK = 100 * time.Millisecond
)

const DESCRIPTION = `
warpalarm schedules alarms: callbacks that run once on the thread
that created them when their deadline passes. Alarms live in the
warpalarm daemon, which serves them over JSON-RPC, or in a local
JavaScript runtime started with "warpalarm run".
`

const (
	DaemonDescription = `The daemon command starts the alarm daemon and serves its
JSON-RPC surface until it is interrupted. Requests must carry
the secret set with --secret or WARPALARM_RPC_SECRET.

Example:
        warpalarm --secret s3cret daemon

`
	RunDescription = `The run command executes a JavaScript file with the alarm
functions in scope and returns once no alarm of the script
is armed.

Example:
        warpalarm run reminders.js

`
	AddDescription = `The add command schedules an alarm in the daemon and prints
its id. Pick the deadline with exactly one of --in, --at or
--cron; --cron schedules the next occurrence of the expression.

Example:
        warpalarm add --in 25m --label tea
        warpalarm add --at 2026-11-01T09:00:00Z
        warpalarm add --cron "0 9 * * 1-5" --auto-remove

`
	ListDescription = `The list command displays the daemon's installed alarms in
deadline order, with their status: next, scheduled or done.

Example:
        warpalarm list
        warpalarm list --status done

`
	CancelDescription = `The cancel command removes an alarm from the daemon.

Example:
        warpalarm cancel <alarm id>

`
	UninstallDescription = `The uninstall command takes an alarm out of the schedule
without removing it. "warpalarm install" puts it back.

Example:
        warpalarm uninstall <alarm id>

`
	InstallDescription = `The install command puts an uninstalled alarm back into
the schedule at its deadline.

Example:
        warpalarm install <alarm id>

`
	ReinstallDescription = `The reinstall command moves an alarm to a new deadline and
installs it.

Example:
        warpalarm reinstall --in 10m <alarm id>

`
	WatchDescription = `The watch command shows a countdown bar for every pending
alarm and prints each alarm as it fires.

Example:
        warpalarm watch

`
)
