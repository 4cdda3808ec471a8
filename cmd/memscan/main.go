// Command memscan is a thin, scriptable front-end over the core.Controller:
// attach to a running process, run one scan pass against it, and print the
// hits it found. Each invocation is a fresh session; it owns no scan logic
// of its own.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/crashlab/memscan/core"
	"github.com/crashlab/memscan/filter"
	"github.com/crashlab/memscan/internal/log"
	"github.com/crashlab/memscan/width"
)

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}

func main() {
	root := &cobra.Command{
		Use:   "memscan",
		Short: "Iteratively narrow candidate addresses in a running process's memory",
	}

	var pid uint32
	attachCmd := &cobra.Command{
		Use:   "attach",
		Short: "Attach to a process and run one scan pass against it",
		Run:   runAttach(&pid),
	}
	attachCmd.Flags().Uint32Var(&pid, "pid", 0, "pid of the process to attach to")
	attachCmd.Flags().String("kind", "exact", "filter kind: exact, approximate, increased, decreased, changed, unchanged, unknown, increasedby, decreasedby, changedbyatleast, changedbyatmost")
	attachCmd.Flags().String("width", "i32", "numeric width: u8,u16,u32,u64,i8,i16,i32,i64,f32,f64")
	attachCmd.Flags().String("value", "", "value operand, for the exact and approximate kinds")
	attachCmd.Flags().String("eps", "0", "epsilon operand, for the approximate kind")
	attachCmd.Flags().String("delta", "0", "delta operand, for the *by kinds")
	attachCmd.Flags().Int("limit", 20, "max number of results to print")

	root.AddCommand(attachCmd)

	if err := root.Execute(); err != nil {
		exitf("memscan: %v\n", err)
	}
	log.Sync()
}

func runAttach(pid *uint32) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		if *pid == 0 {
			exitf("memscan: --pid is required\n")
		}

		kindName, _ := cmd.Flags().GetString("kind")
		widthName, _ := cmd.Flags().GetString("width")
		valueStr, _ := cmd.Flags().GetString("value")
		epsStr, _ := cmd.Flags().GetString("eps")
		deltaStr, _ := cmd.Flags().GetString("delta")
		limit, _ := cmd.Flags().GetInt("limit")

		w, err := width.Parse(widthName)
		if err != nil {
			exitf("memscan: %v\n", err)
		}

		f, err := buildFilter(w, kindName, valueStr, epsStr, deltaStr)
		if err != nil {
			exitf("memscan: %v\n", err)
		}

		ctl := core.NewController()
		ctl.Start()
		defer ctl.Stop()

		ctl.Send(core.AttachCmd(core.Process(*pid)))
		waitUntil(func() bool { return ctl.AttachStatus().Kind != core.Detached })
		if !ctl.CheckAttached() {
			exitf("memscan: failed to attach to pid %d\n", *pid)
		}

		ctl.Send(core.ScanCmd(f))
		status := waitForScan(ctl)
		if status.Kind == core.Failed {
			exitf("memscan: scan failed: %s\n", status.Err)
		}

		fmt.Printf("%d hit(s)\n", status.Count)
		for _, r := range ctl.FirstResults(w, limit) {
			fmt.Printf("%#x\t%s\n", r.Addr, r.Value)
		}
	}
}

func buildFilter(w width.Width, kindName, valueStr, epsStr, deltaStr string) (filter.Typed, error) {
	switch kindName {
	case "exact":
		v, err := width.ParseValue(w, valueStr)
		if err != nil {
			return filter.Typed{}, fmt.Errorf("parsing --value: %w", err)
		}
		return filter.NewExact(w, v)
	case "approximate":
		v, err := width.ParseValue(w, valueStr)
		if err != nil {
			return filter.Typed{}, fmt.Errorf("parsing --value: %w", err)
		}
		eps, err := width.ParseValue(w, epsStr)
		if err != nil {
			return filter.Typed{}, fmt.Errorf("parsing --eps: %w", err)
		}
		return filter.NewApproximate(w, v, eps)
	case "increasedby", "decreasedby", "changedbyatleast", "changedbyatmost":
		d, err := width.ParseValue(w, deltaStr)
		if err != nil {
			return filter.Typed{}, fmt.Errorf("parsing --delta: %w", err)
		}
		return filter.NewBounded(w, kindFromName(kindName), d)
	case "increased":
		return filter.NewUnary(w, filter.Increased)
	case "decreased":
		return filter.NewUnary(w, filter.Decreased)
	case "changed":
		return filter.NewUnary(w, filter.Changed)
	case "unchanged":
		return filter.NewUnary(w, filter.Unchanged)
	case "unknown":
		return filter.NewUnary(w, filter.Unknown)
	default:
		return filter.Typed{}, fmt.Errorf("unrecognized filter kind %q", kindName)
	}
}

func kindFromName(name string) filter.Kind {
	switch name {
	case "increasedby":
		return filter.IncreasedBy
	case "decreasedby":
		return filter.DecreasedBy
	case "changedbyatleast":
		return filter.ChangedByAtLeast
	case "changedbyatmost":
		return filter.ChangedByAtMost
	default:
		return filter.Unknown
	}
}

// waitUntil polls pred at a short interval. The Controller exposes status
// as a pull-only snapshot, not a completion signal, so a CLI front-end has
// nothing better to block on than polling; a UI front-end would instead
// read status on its own refresh tick.
func waitUntil(pred func() bool) {
	for i := 0; i < 200; i++ {
		if pred() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitForScan(ctl *core.Controller) core.ScanStatus {
	for i := 0; i < 2000; i++ {
		s := ctl.ScanStatus()
		if s.Kind == core.Done || s.Kind == core.Failed || s.Kind == core.UnknownScan {
			return s
		}
		time.Sleep(5 * time.Millisecond)
	}
	return ctl.ScanStatus()
}
