// Package core provides the background worker and Controller façade any
// front-end uses to drive a Scanner: a single command channel, serialized
// mutation, and a pull-model status surface.
package core

import (
	"errors"

	"github.com/google/uuid"

	"github.com/crashlab/memscan/filter"
)

// Sentinel errors surfaced through log lines and ScanStatus.Err. Log lines
// carry the error value itself; ScanStatus.Err holds only its message, so
// callers branching on it compare against the sentinel's Error() string.
var (
	ErrAlreadyAttached = errors.New("core: already attached")
	ErrNotAttached     = errors.New("core: not attached")
)

// AttachKind tags which of the supported ways of identifying a process an
// AttachTarget names.
type AttachKind int

const (
	AttachProcess AttachKind = iota
	AttachWindow
	AttachOther
)

// AttachTarget names a process to attach to. Only AttachProcess and
// AttachWindow have defined attach semantics; AttachOther is reserved for
// future extension and always fails.
type AttachTarget struct {
	Kind        AttachKind
	PID         uint32
	WindowTitle string
	Tag         string
}

func Process(pid uint32) AttachTarget     { return AttachTarget{Kind: AttachProcess, PID: pid} }
func Window(title string) AttachTarget    { return AttachTarget{Kind: AttachWindow, WindowTitle: title} }
func OtherTarget(tag string) AttachTarget { return AttachTarget{Kind: AttachOther, Tag: tag} }

// AttachStatusKind tags the Controller's current attach state.
type AttachStatusKind int

const (
	Detached AttachStatusKind = iota
	Attached
	UnknownAttach
)

// AttachStatus is a point-in-time snapshot of whether the Controller is
// attached, and to what.
type AttachStatus struct {
	Kind   AttachStatusKind
	Target AttachTarget
}

// ScanStatusKind tags the Controller's current scan state.
type ScanStatusKind int

const (
	Ready ScanStatusKind = iota
	Scanning
	Done
	Failed
	UnknownScan
)

// ScanStatus is a point-in-time snapshot of the most recent scan pass.
type ScanStatus struct {
	Kind  ScanStatusKind
	Count uint64
	Err   string
}

// commandKind tags which worker operation a Command carries.
type commandKind int

const (
	cmdAttach commandKind = iota
	cmdDetach
	cmdNewScan
	cmdScan
	cmdStop
)

// Command is one entry in the worker's command queue. Build one with the
// constructor functions below (AttachCmd, DetachCmd, NewScanCmd, ScanCmd,
// StopCmd); the zero value is not a valid Command.
type Command struct {
	id     uuid.UUID
	kind   commandKind
	target AttachTarget
	filter filter.Typed
}

// ID returns the command's correlation ID, used to match a later log line
// (e.g. a Scan failure) back to the Send call that issued it.
func (c Command) ID() uuid.UUID { return c.id }

func AttachCmd(t AttachTarget) Command { return Command{id: uuid.New(), kind: cmdAttach, target: t} }
func DetachCmd() Command               { return Command{id: uuid.New(), kind: cmdDetach} }
func NewScanCmd() Command              { return Command{id: uuid.New(), kind: cmdNewScan} }
func ScanCmd(f filter.Typed) Command   { return Command{id: uuid.New(), kind: cmdScan, filter: f} }
func StopCmd() Command                 { return Command{id: uuid.New(), kind: cmdStop} }
