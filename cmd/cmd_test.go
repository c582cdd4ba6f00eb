package cmd

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignInput(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().AddFlagSet(projectAssignCmd.Flags())
	require.NoError(t, cmd.Flags().Parse([]string{
		"--company", "3",
		"--users", "1,3",
		"--links", "fr:mac_os_x",
		"--clear", "company",
		"--name", "macOS",
	}))

	in, err := assignInput(cmd)
	require.NoError(t, err)
	require.NotNil(t, in.Name)
	assert.Equal(t, "macOS", *in.Name)
	assert.Nil(t, in.Relations["company"], "clear wins over --company")
	assert.Equal(t, []any{int64(1), int64(3)}, in.Relations["users"])
	assert.Equal(t, []any{[]any{"fr", "mac_os_x"}}, in.Relations["links"])
}

func TestParseProjectID(t *testing.T) {
	id, err := parseProjectID("2")
	require.NoError(t, err)
	assert.Equal(t, uint(2), id)

	_, err = parseProjectID("0")
	assert.Error(t, err)
	_, err = parseProjectID("new")
	assert.Error(t, err)
}
