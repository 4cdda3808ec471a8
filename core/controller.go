package core

import (
	"fmt"
	"sync"

	"github.com/crashlab/memscan/filter"
	"github.com/crashlab/memscan/internal/log"
	"github.com/crashlab/memscan/scanner"
	"github.com/crashlab/memscan/target"
	"github.com/crashlab/memscan/width"
)

// Controller is the façade any front-end uses. It owns a background
// worker goroutine that serializes every mutating operation on the
// Scanner; callers never touch the Scanner directly.
type Controller struct {
	statusMu     sync.Mutex
	attachStatus AttachStatus
	scanStatus   ScanStatus

	// coreMu guards target/scanner. The worker holds it for the duration
	// of a command's dispatch; FirstResults takes it briefly to read a
	// consistent snapshot without copying region buffers across the
	// worker/controller boundary.
	coreMu  sync.Mutex
	target  target.Target
	scanner *scanner.Scanner

	ctrlMu  sync.Mutex
	cmds    chan Command
	running bool
	wg      sync.WaitGroup
}

// NewController returns a Controller in the Detached/Ready state. Call
// Start before sending any commands.
func NewController() *Controller {
	return &Controller{
		attachStatus: AttachStatus{Kind: Detached},
		scanStatus:   ScanStatus{Kind: Ready},
	}
}

// Start spawns the worker goroutine and its command channel. It is
// idempotent after a Stop: calling Start again resumes normal operation.
func (c *Controller) Start() {
	c.ctrlMu.Lock()
	defer c.ctrlMu.Unlock()
	if c.running {
		return
	}
	c.cmds = make(chan Command, 64)
	c.running = true
	c.wg.Add(1)
	go c.loop(c.cmds)
}

func (c *Controller) loop(cmds chan Command) {
	defer c.wg.Done()
	for cmd := range cmds {
		if cmd.kind == cmdStop {
			return
		}
		c.safeDispatch(cmd)
	}
}

// safeDispatch runs one command, recovering from any panic the way a
// poisoned lock would be handled in a language with lock poisoning: the
// command is dropped, a line is logged, and status flips to Unknown
// rather than taking the whole worker down.
func (c *Controller) safeDispatch(cmd Command) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("core: command panicked, dropping", "cmd", cmd.id, "panic", r)
			c.setAttachStatus(AttachStatus{Kind: UnknownAttach})
			c.setScanStatus(ScanStatus{Kind: UnknownScan})
		}
	}()
	c.dispatch(cmd)
}

func (c *Controller) dispatch(cmd Command) {
	switch cmd.kind {
	case cmdAttach:
		c.handleAttach(cmd)
	case cmdDetach:
		c.handleDetach()
	case cmdNewScan:
		c.handleNewScan()
	case cmdScan:
		c.handleScan(cmd)
	}
}

func (c *Controller) handleAttach(cmd Command) {
	c.coreMu.Lock()
	defer c.coreMu.Unlock()

	if c.getAttachStatus().Kind == Attached {
		log.Warnw("core: attach refused", "cmd", cmd.id, "err", ErrAlreadyAttached)
		return
	}

	t, err := buildTarget(cmd.target)
	if err != nil {
		log.Warnw("core: attach failed", "cmd", cmd.id, "err", err)
		c.setAttachStatus(AttachStatus{Kind: Detached})
		return
	}

	c.target = t
	c.scanner = scanner.New(t)
	c.setAttachStatus(AttachStatus{Kind: Attached, Target: cmd.target})
}

func (c *Controller) handleDetach() {
	c.coreMu.Lock()
	defer c.coreMu.Unlock()

	if c.target != nil {
		if err := c.target.Close(); err != nil {
			log.Warnw("core: error closing target on detach", "err", err)
		}
	}
	c.target = nil
	c.scanner = nil
	c.setAttachStatus(AttachStatus{Kind: Detached})
	c.setScanStatus(ScanStatus{Kind: Ready})
}

func (c *Controller) handleNewScan() {
	c.coreMu.Lock()
	defer c.coreMu.Unlock()

	if c.scanner != nil {
		c.scanner.NewScan()
	}
	c.setScanStatus(ScanStatus{Kind: Ready})
}

func (c *Controller) handleScan(cmd Command) {
	c.coreMu.Lock()
	defer c.coreMu.Unlock()

	if c.scanner == nil {
		c.setScanStatus(ScanStatus{Kind: Failed, Err: ErrNotAttached.Error()})
		return
	}

	c.setScanStatus(ScanStatus{Kind: Scanning})
	if err := c.scanner.Scan(cmd.filter); err != nil {
		log.Warnw("core: scan failed", "cmd", cmd.id, "err", err)
		c.setScanStatus(ScanStatus{Kind: Failed, Err: err.Error()})
		return
	}
	count, _ := c.scanner.Count()
	c.setScanStatus(ScanStatus{Kind: Done, Count: uint64(count)})
}

func buildTarget(t AttachTarget) (target.Target, error) {
	switch t.Kind {
	case AttachProcess:
		return target.AttachProcess(t.PID)
	case AttachWindow:
		return nil, fmt.Errorf("core: attach by window title %q: %w", t.WindowTitle, target.ErrUnsupported)
	default:
		return nil, fmt.Errorf("core: attach target kind %v: %w", t.Kind, target.ErrUnsupported)
	}
}

// Send enqueues cmd. It never blocks on scan completion; if the worker
// isn't running the command is silently dropped.
func (c *Controller) Send(cmd Command) {
	c.ctrlMu.Lock()
	ch := c.cmds
	c.ctrlMu.Unlock()
	if ch == nil {
		return
	}
	ch <- cmd
}

// Stop enqueues a stop command and joins the worker goroutine.
func (c *Controller) Stop() {
	c.Send(StopCmd())
	c.wg.Wait()
	c.ctrlMu.Lock()
	c.running = false
	c.cmds = nil
	c.ctrlMu.Unlock()
}

func (c *Controller) getAttachStatus() AttachStatus {
	return c.attachStatus
}

func (c *Controller) setAttachStatus(s AttachStatus) {
	c.statusMu.Lock()
	c.attachStatus = s
	c.statusMu.Unlock()
}

func (c *Controller) setScanStatus(s ScanStatus) {
	c.statusMu.Lock()
	c.scanStatus = s
	c.statusMu.Unlock()
}

// AttachStatus returns a snapshot of the current attach state. Reads are
// not linearized with command completion: a Send(AttachCmd(...)) followed
// immediately by AttachStatus() may still observe Detached.
func (c *Controller) AttachStatus() AttachStatus {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	return c.attachStatus
}

// ScanStatus returns a snapshot of the most recent scan pass's state.
func (c *Controller) ScanStatus() ScanStatus {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	return c.scanStatus
}

// CheckAttached reports whether the Controller currently believes it is
// attached to a process.
func (c *Controller) CheckAttached() bool {
	return c.AttachStatus().Kind == Attached
}

// FormattedResult is one hit formatted for display: an absolute address
// and its value rendered as a string.
type FormattedResult struct {
	Addr  uint64
	Value string
}

// FirstResults reads up to n hits under a short critical section and
// formats their values to strings, for front-ends that don't want to link
// against the scanner package's generic API directly.
func (c *Controller) FirstResults(w width.Width, n int) []FormattedResult {
	c.coreMu.Lock()
	defer c.coreMu.Unlock()
	if c.scanner == nil {
		return nil
	}
	return formatFirstResults(c.scanner, w, n)
}

func formatFirstResults(s *scanner.Scanner, w width.Width, n int) []FormattedResult {
	switch w {
	case width.U8:
		return formatResults(scanner.FirstResults[uint8](s, n))
	case width.U16:
		return formatResults(scanner.FirstResults[uint16](s, n))
	case width.U32:
		return formatResults(scanner.FirstResults[uint32](s, n))
	case width.U64:
		return formatResults(scanner.FirstResults[uint64](s, n))
	case width.I8:
		return formatResults(scanner.FirstResults[int8](s, n))
	case width.I16:
		return formatResults(scanner.FirstResults[int16](s, n))
	case width.I32:
		return formatResults(scanner.FirstResults[int32](s, n))
	case width.I64:
		return formatResults(scanner.FirstResults[int64](s, n))
	case width.F32:
		return formatResults(scanner.FirstResults[float32](s, n))
	case width.F64:
		return formatResults(scanner.FirstResults[float64](s, n))
	default:
		return nil
	}
}

func formatResults[T filter.Numeric](rs []scanner.Result[T]) []FormattedResult {
	out := make([]FormattedResult, len(rs))
	for i, r := range rs {
		out[i] = FormattedResult{Addr: r.Addr, Value: fmt.Sprintf("%v", r.Value)}
	}
	return out
}
