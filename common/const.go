package common

// Version information, set at build time with -ldflags.
var (
	Version   = "dev"
	Commit    = ""
	BuildType = "source"
)

const (
	// DefaultRPCAddr is where the daemon serves JSON-RPC when no address is
	// configured. It binds to loopback only.
	DefaultRPCAddr = "127.0.0.1:6810"

	// RPCPath serves JSON-RPC over HTTP POST.
	RPCPath = "/jsonrpc"
	// RPCWebSocketPath serves JSON-RPC over a websocket, with pushes.
	RPCWebSocketPath = "/jsonrpc/ws"

	// AlarmFiredMethod is the push notification sent when an RPC alarm fires.
	AlarmFiredMethod = "alarm.fired"
)
