package commands

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []string
		wantAll string
	}{
		{name: "release", args: nil, want: []string{"LeapDB v1.2.3", "Flat-file table storage", runtime.Version()}},
		{name: "short", args: []string{"--short"}, wantAll: "1.2.3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewVersionCommand("1.2.3")
			var buf bytes.Buffer
			cmd.SetOut(&buf)
			cmd.SetErr(&buf)
			cmd.SetArgs(tt.args)

			require.NoError(t, cmd.Execute())
			if tt.wantAll != "" {
				assert.Equal(t, tt.wantAll, buf.String())
			}
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
		})
	}
}

func TestVersionCommand_RejectsArgs(t *testing.T) {
	cmd := NewVersionCommand("dev")
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"extra"})
	assert.Error(t, cmd.Execute())
}
