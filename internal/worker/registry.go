package worker

import (
	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"
	"golang.org/x/sys/unix"

	"github.com/sozu-sh/sozuctl/internal/wire"
)

// ErrUnknownWorker is returned by any Registry method addressing a worker
// id that was never launched or has already been removed.
var ErrUnknownWorker = errors.New("unknown worker")

// ErrNoProcess is returned by Signal (and anything built on it) for a
// worker with no real PID recorded yet. A PID of 0 is not "no process" to
// kill(2): it addresses the caller's entire process group, so it must
// never reach unix.Kill.
var ErrNoProcess = errors.New("worker has no real process")

// Registry tracks every worker process supervised by this control plane,
// assigning ids and demultiplexing command replies back to callers
// (spec §4.3). go-deadlock guards the map the way internal/config.State
// guards its tables.
type Registry struct {
	mu      deadlock.RWMutex
	workers map[uint32]*Worker
	nextID  uint32
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{workers: make(map[uint32]*Worker)}
}

// Launch registers a new worker with the next free id. Spawning a real
// child process (and passing it listen sockets via scm_rights) is outside
// this control plane's scope — see DESIGN.md — so Launch only allocates
// the bookkeeping entry a real supervisor would populate once the child
// reports its pid.
func (r *Registry) Launch(pid int32) wire.WorkerInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.workers[id] = newWorker(id, pid)
	return r.workers[id].Info()
}

// Get returns the worker registered under id.
func (r *Registry) Get(id uint32) (*Worker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workers[id]
	return w, ok
}

// List returns a snapshot of every worker's WorkerInfo (LIST_WORKERS).
func (r *Registry) List() []wire.WorkerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]wire.WorkerInfo, 0, len(r.workers))
	for _, w := range r.workers {
		out = append(out, w.Info())
	}
	return out
}

// Live returns the workers eligible for the fan-out required-quorum set:
// Stopping and NotAnswering workers are excluded (spec §4.4).
func (r *Registry) Live() []*Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Worker
	for _, w := range r.workers {
		if w.Info().State == wire.RunStateRunning {
			out = append(out, w)
		}
	}
	return out
}

// ReturnListenSockets records the listen addresses a worker is bound to in
// its WorkerInfo (spec §3 supplement). The RETURN_LISTEN_SOCKETS handler
// does not call it, since that request carries no addresses, and
// LaunchWorker does not read the recorded addresses.
func (r *Registry) ReturnListenSockets(id uint32, addrs []string) error {
	w, ok := r.Get(id)
	if !ok {
		return errors.Wrapf(ErrUnknownWorker, "%d", id)
	}
	w.setListenSockets(addrs)
	return nil
}

// Signal sends a real OS signal to the worker's recorded PID — the one
// place the control plane touches the OS process boundary directly
// (spec §4.3). A non-positive PID never reaches unix.Kill: pid 0 targets
// the caller's whole process group and pid < 0 targets a process group by
// id, neither of which is "the worker's recorded PID".
func (r *Registry) Signal(id uint32, sig unix.Signal) error {
	w, ok := r.Get(id)
	if !ok {
		return errors.Wrapf(ErrUnknownWorker, "%d", id)
	}
	pid := w.Info().PID
	if pid <= 0 {
		return errors.Wrapf(ErrNoProcess, "worker %d", id)
	}
	return unix.Kill(int(pid), sig)
}

// SoftStop transitions a worker Running -> Stopping and signals SIGUSR1,
// matching the original implementation's soft-stop signal (spec §4.3).
func (r *Registry) SoftStop(id uint32) error {
	w, ok := r.Get(id)
	if !ok {
		return errors.Wrapf(ErrUnknownWorker, "%d", id)
	}
	w.setState(wire.RunStateStopping)
	return r.Signal(id, unix.SIGUSR1)
}

// HardStop transitions a worker straight to Stopped and signals SIGTERM.
func (r *Registry) HardStop(id uint32) error {
	w, ok := r.Get(id)
	if !ok {
		return errors.Wrapf(ErrUnknownWorker, "%d", id)
	}
	w.setState(wire.RunStateStopped)
	return r.Signal(id, unix.SIGTERM)
}

// Exited marks a Stopping worker Stopped once its process has actually
// exited (spec §4.3: "Stopping --worker-exit--> Stopped").
func (r *Registry) Exited(id uint32) {
	if w, ok := r.Get(id); ok {
		w.setState(wire.RunStateStopped)
	}
}

// Remove deletes a worker's registry entry entirely.
func (r *Registry) Remove(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.workers, id)
}
