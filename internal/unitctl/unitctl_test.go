package unitctl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Op
	}{
		{"", OpRestart},
		{"restart", OpRestart},
		{" START ", OpStart},
		{"stop", OpStop},
	}
	for _, tt := range tests {
		got, err := ParseOp(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseOp("reload")
	assert.Error(t, err)
}

func TestUnitName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "nginx.service", UnitName("nginx"))
	assert.Equal(t, "nginx.service", UnitName(" nginx.service "))
	assert.Equal(t, "backup.timer", UnitName("backup.timer"))
	assert.Equal(t, "app.v2.service", UnitName("app.v2"))
	assert.Equal(t, "", UnitName("  "))
}

func TestJobResult(t *testing.T) {
	t.Parallel()

	assert.NoError(t, jobResult(OpRestart, "a.service", "done"))
	err := jobResult(OpStart, "a.service", "failed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start a.service: job failed")
}
