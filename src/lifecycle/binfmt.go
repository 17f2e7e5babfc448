package lifecycle

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/hassio-addons/build-env/src/arch"
)

const (
	binfmtDir    = "/proc/sys/fs/binfmt_misc"
	binfmtStatus = binfmtDir + "/status"
	qemuBinDir   = "/usr/bin"
)

// enableEmulation mounts the binfmt_misc filesystem when absent and
// registers a QEMU handler for every requested architecture that the
// host cannot execute natively. It records what it changed so
// disableEmulation can reverse exactly that.
func (m *Manager) enableEmulation(archs []arch.Architecture) error {
	if _, err := os.Stat(binfmtStatus); err != nil {
		if out, merr := exec.Command("mount", "-t", "binfmt_misc", "binfmt_misc", binfmtDir).CombinedOutput(); merr != nil {
			return fmt.Errorf("mounting binfmt_misc: %s: %w", string(out), merr)
		}
		m.mounted = true
	}

	for _, a := range archs {
		if a.Qemu == "" || a.NativeOn(runtime.GOARCH) {
			continue
		}
		handler := filepath.Join(binfmtDir, a.BinfmtName)
		if _, err := os.Stat(handler); err == nil {
			continue // already registered, leave it in place on teardown
		}

		interpreter := filepath.Join(qemuBinDir, a.Qemu)
		if _, err := os.Stat(interpreter); err != nil {
			return fmt.Errorf("emulator %s not found for architecture %s", interpreter, a.Name)
		}

		entry := a.RegisterString(interpreter)
		if err := os.WriteFile(filepath.Join(binfmtDir, "register"), []byte(entry), 0o200); err != nil {
			return fmt.Errorf("registering %s handler: %w", a.BinfmtName, err)
		}
		m.registered = append(m.registered, a.BinfmtName)
	}

	return nil
}

// disableEmulation unregisters the handlers this run registered and
// unmounts binfmt_misc if this run mounted it.
func (m *Manager) disableEmulation() error {
	var firstErr error
	for _, name := range m.registered {
		handler := filepath.Join(binfmtDir, name)
		if err := os.WriteFile(handler, []byte("-1"), 0o200); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("unregistering %s handler: %w", name, err)
		}
	}
	m.registered = nil

	if m.mounted {
		if out, err := exec.Command("umount", binfmtDir).CombinedOutput(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("unmounting binfmt_misc: %s: %w", string(out), err)
		}
		m.mounted = false
	}
	return firstErr
}
