package registry

import (
	"fmt"
	"io"
	"strings"

	"github.com/vk/taskgrid/internal/task"
)

// NotDonePlaceholder is printed in debug reports for tasks without a result yet.
const NotDonePlaceholder = "<not done yet>"

// Report writes a line-oriented diagnostic of every task in insertion order.
//
// In debug mode each task gets a block with its name, dependencies, done and
// cancelled flags and, unless cancelled, its result or NotDonePlaceholder.
// Otherwise each task gets one line with its outcome. Report only reads task
// snapshots; it never runs a task's work.
func (r *Registry) Report(w io.Writer, debug bool) error {
	for _, t := range r.Tasks() {
		snap := t.Snapshot()
		var err error
		if debug {
			err = writeDebug(w, snap)
		} else {
			_, err = fmt.Fprintf(w, "%s: %s\n", snap.Name, Outcome(snap))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func writeDebug(w io.Writer, snap task.Snapshot) error {
	var b strings.Builder
	fmt.Fprintf(&b, "task %s\n", snap.Name)
	fmt.Fprintf(&b, "  deps:      [%s]\n", strings.Join(snap.Deps, ", "))
	fmt.Fprintf(&b, "  status:    %s\n", snap.Status)
	fmt.Fprintf(&b, "  done:      %t\n", snap.Done)
	fmt.Fprintf(&b, "  cancelled: %t\n", snap.Cancelled)
	switch {
	case snap.Cancelled:
		if snap.Err != nil {
			fmt.Fprintf(&b, "  reason:    %v\n", snap.Err)
		}
	case !snap.Done:
		fmt.Fprintf(&b, "  result:    %s\n", NotDonePlaceholder)
	case snap.Status == task.Failed:
		fmt.Fprintf(&b, "  error:     %v\n", snap.Err)
	default:
		fmt.Fprintf(&b, "  result:    %v\n", snap.Result)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// Outcome renders the user-facing state of a task. "not started" and
// "failed" are never conflated.
func Outcome(snap task.Snapshot) string {
	switch {
	case snap.Done && snap.Cancelled:
		if snap.Err != nil {
			return fmt.Sprintf("cancelled: %v", snap.Err)
		}
		return "cancelled"
	case snap.Done && snap.Status == task.Failed:
		return fmt.Sprintf("failed: %v", snap.Err)
	case snap.Done:
		return fmt.Sprintf("succeeded: %v", snap.Result)
	case snap.Running:
		return "running"
	case snap.Status == task.WaitingForResources:
		return "waiting"
	case snap.Cancelled:
		return "cancel requested"
	}
	return "not started"
}
