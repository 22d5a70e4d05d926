package pipeline

import (
	"fmt"
	"io"
)

// FailureLog collects problems that did not stop the run, in the order they
// happened.
type FailureLog struct {
	entries []string
}

func (f *FailureLog) Add(entry string) {
	f.entries = append(f.entries, entry)
}

func (f *FailureLog) Addf(format string, args ...interface{}) {
	f.Add(fmt.Sprintf(format, args...))
}

func (f *FailureLog) Len() int { return len(f.entries) }

// Entries returns a copy of the recorded failures.
func (f *FailureLog) Entries() []string {
	return append([]string(nil), f.entries...)
}

// Report prints every failure, or "Finish." if there were none.
func (f *FailureLog) Report(w io.Writer) {
	if len(f.entries) == 0 {
		fmt.Fprintln(w, "Finish.")
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Error(s):")
	for _, entry := range f.entries {
		fmt.Fprintln(w, entry)
	}
	fmt.Fprintln(w)
}
