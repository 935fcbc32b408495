package runner

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExecOutput(t *testing.T) {
	x := &Exec{}
	out, err := x.Output(context.Background(), Command("sh", "-c", "echo hello"))
	require.NoError(t, err)
	require.Equal(t, "hello\n", out)
}

func TestExecOutputEnvAndDir(t *testing.T) {
	dir := t.TempDir()
	x := &Exec{}
	out, err := x.Output(context.Background(), Cmd{
		Dir:  dir,
		Env:  []string{"RHCEPHPKG_TEST=bar"},
		Name: "sh",
		Args: []string{"-c", `echo "$RHCEPHPKG_TEST $(pwd -P)"`},
	})
	require.NoError(t, err)
	require.Contains(t, out, "bar ")
}

func TestExecFailure(t *testing.T) {
	x := &Exec{}
	_, err := x.Output(context.Background(), Command("sh", "-c", "echo oops >&2; exit 3"))
	var rerr *Error
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, 3, rerr.ExitCode())
	require.Equal(t, "oops\n", rerr.Stderr)
	require.Contains(t, err.Error(), "sh -c")
	require.Contains(t, err.Error(), "oops")
}

func TestExecRunPassesOutputThrough(t *testing.T) {
	var stdout bytes.Buffer
	x := &Exec{Stdout: &stdout, Stderr: &bytes.Buffer{}}
	require.NoError(t, x.Run(context.Background(), Command("sh", "-c", "echo passthrough")))
	require.Equal(t, "passthrough\n", stdout.String())

	err := x.Run(context.Background(), Command("sh", "-c", "exit 1"))
	var rerr *Error
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, 1, rerr.ExitCode())
}

func TestExecMissingBinary(t *testing.T) {
	x := &Exec{}
	err := x.Run(context.Background(), Command("rhcephpkg-no-such-tool"))
	var rerr *Error
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, -1, rerr.ExitCode())
}
