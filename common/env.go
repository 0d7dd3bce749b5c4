// Package common provides shared types and constants used across the
// warpalarm daemon, its JSON-RPC surface and the CLI client.
package common

// Environment variable names for configuration.
const (
	// RPCAddrEnv is the environment variable for the daemon's listen address.
	RPCAddrEnv = "WARPALARM_RPC_ADDR"

	// RPCSecretEnv is the environment variable for the JSON-RPC bearer token.
	RPCSecretEnv = "WARPALARM_RPC_SECRET"

	// DebugEnv is the environment variable to enable debug logging.
	DebugEnv = "WARPALARM_DEBUG"

	// NotifierEnv selects the notifier strategy ("interrupt" or "poll").
	NotifierEnv = "WARPALARM_NOTIFIER"

	// MaxEventsEnv caps the number of live alarms in the daemon.
	MaxEventsEnv = "WARPALARM_MAX_EVENTS"
)
