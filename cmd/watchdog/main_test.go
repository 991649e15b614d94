package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"run", "serve"}, names)
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestRunCommand_RejectsBadNow(t *testing.T) {
	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"run", "--now", "tomorrow"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--now")
}

func TestRunCommand_MissingConfigFile(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"run", "--config", t.TempDir() + "/absent.yaml"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
