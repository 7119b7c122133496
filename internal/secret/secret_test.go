package secret

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpec_Validate(t *testing.T) {
	assert.NoError(t, Spec{Env: "SOME_VAR"}.Validate())
	assert.NoError(t, Spec{Cmd: "echo hi"}.Validate())
	assert.ErrorIs(t, Spec{}.Validate(), ErrInvalidSpec)
	assert.ErrorIs(t, Spec{Env: "A", Cmd: "echo"}.Validate(), ErrInvalidSpec)
}

func TestSpec_Resolve_Env(t *testing.T) {
	t.Setenv("BEESYNC_TEST_SECRET", "hunter2")

	value, err := Spec{Env: "BEESYNC_TEST_SECRET"}.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hunter2", value)
}

func TestSpec_Resolve_EnvMissing(t *testing.T) {
	_, err := Spec{Env: "BEESYNC_DEFINITELY_UNSET_VAR"}.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrMissing)
}

func TestSpec_Resolve_Cmd(t *testing.T) {
	value, err := Spec{Cmd: "echo '  token-value  '"}.Resolve(context.Background())
	require.NoError(t, err)
	// Trailing whitespace and the newline from echo are trimmed; leading
	// spaces inside the output are preserved.
	assert.Equal(t, "  token-value", value)
}

func TestSpec_Resolve_CmdNonZeroExit(t *testing.T) {
	_, err := Spec{Cmd: "exit 3"}.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrCommandFailed)
}

func TestSpec_Resolve_CmdEmptyOutput(t *testing.T) {
	_, err := Spec{Cmd: "true"}.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrCommandFailed)
}

func TestResolveAll(t *testing.T) {
	t.Setenv("BEESYNC_TEST_A", "alpha")

	values, err := ResolveAll(context.Background(), map[string]Spec{
		"a": {Env: "BEESYNC_TEST_A"},
		"b": {Cmd: "echo beta"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "alpha", "b": "beta"}, values)
}

func TestResolveAll_FirstErrorWins(t *testing.T) {
	_, err := ResolveAll(context.Background(), map[string]Spec{
		"missing": {Env: "BEESYNC_DEFINITELY_UNSET_VAR"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissing)
	assert.Contains(t, err.Error(), `resolve secret "missing"`)
}
