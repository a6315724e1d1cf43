package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTree() *cobra.Command {
	root := &cobra.Command{Use: "jeeinsight", Short: "root"}
	root.PersistentFlags().Bool("output", false, "Output as JSON")
	AddHelpJSONFlag(root)

	cohort := &cobra.Command{
		Use:     "cohort [student-id]...",
		Aliases: []string{"class"},
		Short:   "Summarize the whole cohort",
		RunE:    func(*cobra.Command, []string) error { return nil },
	}
	cohort.Flags().IntP("batch-size", "b", 2, "Units per leaf batch")
	cohort.Flags().String("prompt", "", "Prompt template")
	_ = cohort.MarkFlagRequired("prompt")
	root.AddCommand(cohort)

	hidden := &cobra.Command{Use: "secret", Hidden: true, Run: func(*cobra.Command, []string) {}}
	root.AddCommand(hidden)
	return root
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema(newTestTree())

	assert.Equal(t, "jeeinsight", schema.Name)
	assert.False(t, schema.Runnable)
	require.Len(t, schema.Flags, 1)
	assert.Equal(t, "output", schema.Flags[0].Name)
	assert.True(t, schema.Flags[0].Persistent)

	require.Len(t, schema.Subcommands, 1)
	cohort := schema.Subcommands[0]
	assert.Equal(t, "cohort", cohort.Name)
	assert.Equal(t, "jeeinsight cohort", cohort.Path)
	assert.Equal(t, []string{"[student-id]..."}, cohort.Args)
	assert.Equal(t, []string{"class"}, cohort.Aliases)
	assert.True(t, cohort.Runnable)
	require.Len(t, cohort.Flags, 2)
	assert.Equal(t, FlagSchema{
		Name:        "batch-size",
		Shorthand:   "b",
		Type:        "int",
		Default:     "2",
		Description: "Units per leaf batch",
	}, cohort.Flags[0])
	assert.True(t, cohort.Flags[1].Required)
}

func TestHandleHelpJSON(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantOK   bool
		wantName string
	}{
		{name: "no flag", args: []string{"cohort"}, wantOK: false},
		{name: "root", args: []string{"--help-json"}, wantOK: true, wantName: "jeeinsight"},
		{name: "subcommand", args: []string{"cohort", "--help-json"}, wantOK: true, wantName: "cohort"},
		{name: "skips positional args", args: []string{"cohort", "s1", "--help-json"}, wantOK: true, wantName: "cohort"},
		{name: "alias", args: []string{"class", "--help-json"}, wantOK: true, wantName: "cohort"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			ok, err := HandleHelpJSON(&buf, newTestTree(), tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Empty(t, buf.String())
				return
			}

			var schema CommandSchema
			require.NoError(t, json.Unmarshal(buf.Bytes(), &schema))
			assert.Equal(t, tt.wantName, schema.Name)
		})
	}
}
