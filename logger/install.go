package logger

import (
	"io"
	"os"
	"sync"

	"github.com/andrepuel/tapelog/codec"
	internallog "github.com/andrepuel/tapelog/internal/log"
	"github.com/andrepuel/tapelog/printer"
	"github.com/andrepuel/tapelog/rotate"
	"github.com/andrepuel/tapelog/stringcache"
	"github.com/andrepuel/tapelog/tape"
)

// Option configures an Install/InstallRotating call.
type Option func(*options)

type options struct {
	withStderr bool
}

// WithStderr, when enabled, mirrors every instruction through an uncolored
// printer.Printer writing to os.Stderr alongside the installed sink —
// mirroring the original's install_logger(..., with_stderr) parameter.
func WithStderr(enabled bool) Option {
	return func(o *options) { o.withStderr = enabled }
}

var (
	installMu sync.Mutex
	installed *Logger
)

// Install installs a non-rotating logger writing to w. A second call to
// Install or InstallRotating is a no-op: it logs a warning through whatever
// internal/log.Logger is currently active and returns the already-installed
// Logger, never replacing it.
func Install(w io.Writer, opts ...Option) (*Logger, error) {
	return doInstall(opts, func() (tape.Machine, io.Closer, error) {
		return stringcache.NewCache(codec.NewStore(w)), nil, nil
	})
}

// InstallRotating installs a logger writing to a rotating file at path,
// rolling over once it exceeds maxLen bytes.
func InstallRotating(path string, maxLen int64, opts ...Option) (*Logger, error) {
	return doInstall(opts, func() (tape.Machine, io.Closer, error) {
		rot, err := rotate.New(path, maxLen)
		if err != nil {
			return nil, nil, err
		}
		machine := stringcache.NewRestartable(stringcache.NewCache(rot))
		return machine, rot, nil
	})
}

func doInstall(opts []Option, build func() (tape.Machine, io.Closer, error)) (*Logger, error) {
	cfg := options{}
	for _, o := range opts {
		o(&cfg)
	}

	installMu.Lock()
	defer installMu.Unlock()

	if installed != nil {
		internallog.Warn("Trying to initialize logger twice")
		return installed, nil
	}

	machine, closer, err := build()
	if err != nil {
		return nil, err
	}

	if cfg.withStderr {
		machine = &teeMachine{primary: machine, mirror: printer.New(os.Stderr, false)}
	}

	l := New(machine)
	l.closer = closer
	installed = l
	return l, nil
}

// teeMachine forwards every instruction to both a primary downstream machine
// and a secondary mirror sink, used only to implement WithStderr. This is
// not part of the core tape machine chain (spec.md's pipeline is strictly
// linear); it exists one level up, at installation time, the same way the
// original wired a second tracing_subscriber layer alongside the tape
// logger layer.
type teeMachine struct {
	primary tape.Machine
	mirror  tape.Machine
}

func (t *teeMachine) NeedsRestart() bool { return t.primary.NeedsRestart() }

func (t *teeMachine) Handle(instr tape.Instruction) {
	t.primary.Handle(instr)
	t.mirror.Handle(instr)
}

// reset clears the process-wide installation. Test-only.
func reset() {
	installMu.Lock()
	defer installMu.Unlock()
	installed = nil
}
