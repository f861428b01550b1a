package logs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/nodeterm/pkg/logstore"
)

func TestParseLevel(t *testing.T) {
	for name, level := range map[string]logstore.Level{
		"info":    logstore.LevelInfo,
		"LOGIN":   logstore.LevelLogin,
		"Warning": logstore.LevelWarning,
		"debug":   logstore.LevelDebug,
	} {
		l, err := ParseLevel(name)
		require.NoError(t, err)
		require.Equal(t, level, l)
	}
	_, err := ParseLevel("fatal")
	require.Error(t, err)
}
