package grmpy_test

import (
	"os/exec"
	"testing"
	"time"

	"github.com/paragraph-tools/multigrm/internal/grmpy"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	t.Parallel()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skipf("skipped, binary sh not available: %v", err)
	}

	t.Run("combined output", func(t *testing.T) {
		res := grmpy.Run(t.Context(), grmpy.Command{
			Path: sh,
			Args: []string{"-c", "echo stdout; echo stderr 1>&2"},
		})
		require.NoError(t, res.Err)
		require.Equal(t, sh, res.Path)
		require.Equal(t, 0, res.ExitCode())
		require.Equal(t, "stdout\nstderr\n", res.Output.String())
		require.False(t, res.Stopped.Before(res.Started))
	})

	t.Run("env", func(t *testing.T) {
		res := grmpy.Run(t.Context(), grmpy.Command{
			Path: sh,
			Args: []string{"-c", `printf '%s' "$MULTIGRM_TEST"`},
			Env:  []string{"MULTIGRM_TEST=golang"},
		})
		require.NoError(t, res.Err)
		require.Equal(t, "golang", res.Output.String())
	})

	t.Run("exit code", func(t *testing.T) {
		res := grmpy.Run(t.Context(), grmpy.Command{
			Path: sh,
			Args: []string{"-c", "exit 7"},
		})
		var exitErr *exec.ExitError
		require.ErrorAs(t, res.Err, &exitErr)
		require.Equal(t, 7, res.ExitCode())
	})

	t.Run("exec error", func(t *testing.T) {
		res := grmpy.Run(t.Context(), grmpy.Command{Path: "does not exist"})
		var execErr *exec.Error
		require.ErrorAs(t, res.Err, &execErr)
		require.Equal(t, "does not exist", execErr.Name)
		require.Equal(t, -1, res.ExitCode())
	})

	t.Run("timeout", func(t *testing.T) {
		res := grmpy.Run(t.Context(), grmpy.Command{
			Path:    sh,
			Args:    []string{"-c", "exec sleep 5"},
			Timeout: 100 * time.Millisecond,
		})
		var terr *grmpy.TimeoutError
		require.ErrorAs(t, res.Err, &terr)
		require.GreaterOrEqual(t, res.Stopped.Sub(res.Started), 100*time.Millisecond)
	})
}
