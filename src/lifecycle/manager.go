package lifecycle

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/hassio-addons/build-env/src/arch"
	"github.com/hassio-addons/build-env/src/exitcode"
)

// Manager owns the build environment for one run. Start acquires it;
// Close releases it and is safe to call from any exit path, any number
// of times — teardown runs exactly once.
type Manager struct {
	DockerdBin string        // default "dockerd"
	DockerBin  string        // default "docker", used for readiness checks
	Budget     time.Duration // per-wait budget, default DefaultBudget
	Interval   time.Duration // poll interval, default DefaultInterval
	Out        io.Writer     // daemon log destination, default discard

	closeOnce  sync.Once
	closeErr   error
	dockerd    *exec.Cmd
	exited     chan error
	registered []string
	mounted    bool
}

// Start enables cross-architecture emulation for the given targets and
// brings up the docker daemon, waiting for it to answer within the
// wait budget. Daemon management needs root.
func (m *Manager) Start(ctx context.Context, archs []arch.Architecture) error {
	if os.Geteuid() != 0 {
		return exitcode.New(exitcode.Privilege, "daemon management requires root; rerun privileged or pass --external-daemon")
	}

	if err := m.enableEmulation(archs); err != nil {
		return exitcode.Wrap(exitcode.Privilege, err, "enabling cross-architecture emulation")
	}

	m.dockerd = exec.Command(m.dockerdBin())
	m.dockerd.Stdout = m.out()
	m.dockerd.Stderr = m.out()
	if err := m.dockerd.Start(); err != nil {
		return exitcode.Wrap(exitcode.DaemonTimeout, err, "starting %s", m.dockerdBin())
	}
	m.exited = make(chan error, 1)
	go func() { m.exited <- m.dockerd.Wait() }()

	ready := func() bool {
		return exec.Command(m.dockerBin(), "info").Run() == nil
	}
	if err := Poll(ctx, m.interval(), m.budget(), ready); err != nil {
		return exitcode.Wrap(exitcode.DaemonTimeout, err, "daemon did not become ready")
	}
	return nil
}

// Close tears the environment down: terminate the daemon, wait for it
// to exit within the budget, and reverse the emulation setup. Always
// runs the emulation teardown, even when the daemon refuses to die.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.closeErr = m.teardown()
	})
	return m.closeErr
}

func (m *Manager) teardown() error {
	var daemonErr error
	if m.dockerd != nil && m.dockerd.Process != nil {
		_ = m.dockerd.Process.Signal(syscall.SIGTERM)
		select {
		case <-m.exited:
		case <-time.After(m.budget()):
			_ = m.dockerd.Process.Kill()
			daemonErr = exitcode.New(exitcode.DaemonTimeout, "daemon did not stop within %s", m.budget())
		}
	}

	if err := m.disableEmulation(); err != nil && daemonErr == nil {
		daemonErr = err
	}
	return daemonErr
}

func (m *Manager) dockerdBin() string {
	if m.DockerdBin != "" {
		return m.DockerdBin
	}
	return "dockerd"
}

func (m *Manager) dockerBin() string {
	if m.DockerBin != "" {
		return m.DockerBin
	}
	return "docker"
}

func (m *Manager) budget() time.Duration {
	if m.Budget > 0 {
		return m.Budget
	}
	return DefaultBudget
}

func (m *Manager) interval() time.Duration {
	if m.Interval > 0 {
		return m.Interval
	}
	return DefaultInterval
}

func (m *Manager) out() io.Writer {
	if m.Out != nil {
		return m.Out
	}
	return io.Discard
}
