package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func restoreLogger(t *testing.T) {
	t.Helper()
	out, level, formatter := log.StandardLogger().Out, log.GetLevel(), log.StandardLogger().Formatter
	t.Cleanup(func() {
		log.SetOutput(out)
		log.SetLevel(level)
		log.SetFormatter(formatter)
	})
}

func TestInitLogLevels(t *testing.T) {
	restoreLogger(t)

	cases := []struct {
		level   string
		debugOn bool
		infoOn  bool
		warnOn  bool
	}{
		{level: "debug", debugOn: true, infoOn: true, warnOn: true},
		{level: "info", debugOn: false, infoOn: true, warnOn: true},
		{level: "warn", debugOn: false, infoOn: false, warnOn: true},
		{level: "error", debugOn: false, infoOn: false, warnOn: false},
	}

	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			require.NoError(t, InitLog(tc.level, LogConsole))
			require.Equal(t, tc.debugOn, log.IsLevelEnabled(log.DebugLevel))
			require.Equal(t, tc.infoOn, log.IsLevelEnabled(log.InfoLevel))
			require.Equal(t, tc.warnOn, log.IsLevelEnabled(log.WarnLevel))
		})
	}
}

func TestInitLogInvalidLevel(t *testing.T) {
	restoreLogger(t)
	require.Error(t, InitLog("loud", LogConsole))
}

func TestInitLogFile(t *testing.T) {
	restoreLogger(t)

	path := filepath.Join(t.TempDir(), "upkeep.log")
	require.NoError(t, InitLog("info", path))

	log.Info("written to file")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(content), "written to file"), "log file content: %s", content)
}
