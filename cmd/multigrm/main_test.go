package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogDestination(t *testing.T) {
	t.Parallel()
	require.Equal(t, "stderr", logDestination("-"))
	require.Equal(t, "stderr", logDestination(""))
	require.Equal(t, "out/GraphTyping.log", logDestination("out/GraphTyping.log"))
}
