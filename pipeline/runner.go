package pipeline

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/carbocation/pfx"
)

// Command is one external tool invocation.
type Command struct {
	Name string
	Args []string

	// Stdout, if set, is a file that receives the command's standard output.
	Stdout string
}

func (c Command) String() string {
	s := strings.Join(append([]string{c.Name}, c.Args...), " ")
	if c.Stdout != "" {
		s += " > " + c.Stdout
	}
	return s
}

// Runner executes external tools and reports their exit status. err is
// non-nil only when the tool could not be run at all.
type Runner interface {
	Run(ctx context.Context, cmd Command) (status int, err error)
}

// ExecRunner runs commands as local subprocesses.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c Command) (int, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if c.Stdout != "" {
		f, err := os.Create(c.Stdout)
		if err != nil {
			return -1, pfx.Err(err)
		}
		defer f.Close()
		cmd.Stdout = f
	}

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	} else if err != nil {
		return -1, pfx.Err(err)
	}

	return 0, nil
}

// Failed reports whether an external tool's result counts as a failure. The
// helper signals failure with exit status 1; every other status is success.
func Failed(status int, err error) bool {
	return err != nil || status == 1
}

// Helper builds invocations of the intersect/merge helper script.
type Helper struct {
	// Shell runs Script; defaults to "sh".
	Shell  string
	Script string
}

func (h Helper) command(args ...string) Command {
	shell := h.Shell
	if shell == "" {
		shell = "sh"
	}
	return Command{Name: shell, Args: append([]string{h.Script}, args...)}
}

// Intersect restricts one bedgraph to the sorted ROI.
func (h Helper) Intersect(sortedROI, bedgraph, out string) Command {
	return h.command("-r", sortedROI, "-b", bedgraph, "-i", "-o", out)
}

// Merge combines all intersections into one file, one column per name.
func (h Helper) Merge(names, intersections []string, out string) Command {
	return h.command("-n", strings.Join(names, " "), "-b", strings.Join(intersections, " "), "-m", "-o", out)
}

// SortBED orders a BED file by chromosome, then numerically by start.
func SortBED(in, out string) Command {
	return Command{Name: "sort", Args: []string{"-k1,1", "-k2,2n", in}, Stdout: out}
}
