package config

// Runtime is the supervisor's own startup configuration: where its control
// socket lives and how many workers to launch at boot. Parsing the proxy's
// own static configuration file format is an external collaborator (spec
// §1 Non-goals); this only carries the handful of values `cmd/supervisord`
// itself needs before any control connection exists.
type Runtime struct {
	SocketPath   string
	WorkerCount  int
	MetricsNS    string
	InitialState string // optional SAVE_STATE-format path to LOAD_STATE at boot
}

// DefaultRuntime returns the supervisor's out-of-the-box defaults.
func DefaultRuntime() Runtime {
	return Runtime{
		SocketPath:  "/run/sozuctl/control.sock",
		WorkerCount: 1,
		MetricsNS:   "sozuctl",
	}
}
