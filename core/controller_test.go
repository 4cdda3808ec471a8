package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crashlab/memscan/filter"
	"github.com/crashlab/memscan/width"
)

func waitFor(t *testing.T, pred func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if pred() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestAttachUnsupportedKindSetsDetached(t *testing.T) {
	c := NewController()
	c.Start()
	defer c.Stop()

	c.Send(AttachCmd(Window("Notepad")))
	waitFor(t, func() bool { return c.AttachStatus().Kind == Detached })

	assert.False(t, c.CheckAttached())
}

func TestDetachResetsStatus(t *testing.T) {
	c := NewController()
	c.Start()
	defer c.Stop()

	c.Send(DetachCmd())
	waitFor(t, func() bool { return c.ScanStatus().Kind == Ready })

	assert.Equal(t, Detached, c.AttachStatus().Kind)
	assert.Equal(t, Ready, c.ScanStatus().Kind)
}

func TestScanWithoutAttachFails(t *testing.T) {
	c := NewController()
	c.Start()
	defer c.Stop()

	f, err := filter.NewUnary(width.I32, filter.Unknown)
	require.NoError(t, err)

	c.Send(ScanCmd(f))
	waitFor(t, func() bool { return c.ScanStatus().Kind == Failed })

	assert.Equal(t, ErrNotAttached.Error(), c.ScanStatus().Err)
}

func TestStopDrainsQueueAndJoinsWorker(t *testing.T) {
	c := NewController()
	c.Start()

	c.Send(DetachCmd())
	c.Stop()

	// Sending after Stop with no Start is a silent no-op, not a panic.
	c.Send(DetachCmd())
}

func TestCommandIDsAreDistinct(t *testing.T) {
	a := DetachCmd()
	b := DetachCmd()
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestFirstResultsBeforeAttachIsEmpty(t *testing.T) {
	c := NewController()
	assert.Nil(t, c.FirstResults(width.I32, 10))
}
