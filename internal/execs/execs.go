// Package execs contains external executables.
package execs

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// executables
var (
	ip       = IP
	iw       = Iw
	iwgetid  = Iwgetid
	iwconfig = Iwconfig
)

// Result is the result of a command that was started successfully
type Result struct {
	ExitCode int
	Output   []byte
	Stderr   []byte
}

// Success returns whether the command exited with status 0
func (r *Result) Success() bool {
	return r != nil && r.ExitCode == 0
}

// RunCmd runs the cmd with args and sets stdin to s. A command that
// exits with non-zero status is not an error, its exit code is returned in
// the result. An error is returned if the command could not be run.
var RunCmd = func(ctx context.Context, cmd string, s string, arg ...string) (*Result, error) {
	c := exec.CommandContext(ctx, cmd, arg...)
	if s != "" {
		c.Stdin = bytes.NewBufferString(s)
	}
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return &Result{
		ExitCode: c.ProcessState.ExitCode(),
		Output:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}, nil
}

// RunIPLinkShow runs the "ip link show" command
func RunIPLinkShow(ctx context.Context) (*Result, error) {
	return RunCmd(ctx, ip, "", "link", "show")
}

// RunIwDevInfo runs the "iw dev <device> info" command
func RunIwDevInfo(ctx context.Context, device string) (*Result, error) {
	return RunCmd(ctx, iw, "", "dev", device, "info")
}

// RunIwgetid runs the "iwgetid -r <device>" command
func RunIwgetid(ctx context.Context, device string) (*Result, error) {
	return RunCmd(ctx, iwgetid, "", "-r", device)
}

// RunIwconfig runs the "iwconfig <device>" command
func RunIwconfig(ctx context.Context, device string) (*Result, error) {
	return RunCmd(ctx, iwconfig, "", device)
}

// SetExecutables configures all executables from config
func SetExecutables(config *Config) {
	ip = config.IP
	iw = config.Iw
	iwgetid = config.Iwgetid
	iwconfig = config.Iwconfig
}
