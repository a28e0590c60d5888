package initcmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuzzall/fuzzall/internal/cmdutils"
	"github.com/fuzzall/fuzzall/internal/config"
	"github.com/fuzzall/fuzzall/internal/testutil"
	"github.com/fuzzall/fuzzall/pkg/log"
)

var testOut io.ReadWriter

func TestMain(m *testing.M) {
	// capture log output
	testOut = bytes.NewBuffer([]byte{})
	oldOut := log.Output
	log.Output = testOut
	viper.Set("verbose", true)

	m.Run()

	log.Output = oldOut
}

func TestInitCmd(t *testing.T) {
	testDir, cleanup := testutil.ChdirToTempDir("init-cmd-test")
	defer cleanup()

	_, err := cmdutils.ExecuteCommand(t, New(), os.Stdin)
	require.NoError(t, err)

	configpath := filepath.Join(testDir, config.ProjectConfigFile)
	require.FileExists(t, configpath)

	content, err := os.ReadFile(configpath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "#time: 10")
}

func TestInitCmd_Exists(t *testing.T) {
	testDir, cleanup := testutil.ChdirToTempDir("init-cmd-test")
	defer cleanup()

	configpath := filepath.Join(testDir, config.ProjectConfigFile)
	err := os.WriteFile(configpath, []byte("time: 42\n"), 0o644)
	require.NoError(t, err)

	// Not attached to a terminal, so the overwrite prompt is skipped
	// and the existing config is left alone.
	_, err = cmdutils.ExecuteCommand(t, New(), os.Stdin)
	require.Error(t, err)

	content, err := os.ReadFile(configpath)
	require.NoError(t, err)
	assert.Equal(t, "time: 42\n", string(content))

	output, err := io.ReadAll(testOut)
	require.NoError(t, err)
	assert.Contains(t, string(output), "Config already exists")
}
