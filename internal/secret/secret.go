// Package secret resolves declared secrets into usable string values.
// A secret is declared either as an environment variable lookup or as a
// shell command whose trimmed standard output becomes the value.
package secret

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

var (
	// ErrMissing indicates an env-backed secret whose variable is unset.
	ErrMissing = errors.New("secret environment variable not set")

	// ErrCommandFailed indicates a cmd-backed secret whose command exited
	// non-zero or produced no output.
	ErrCommandFailed = errors.New("secret command failed")

	// ErrInvalidSpec indicates a spec that declares both or neither strategy.
	ErrInvalidSpec = errors.New("secret spec must set exactly one of env or cmd")
)

// Spec declares how a secret is obtained. Exactly one field must be set.
type Spec struct {
	Env string `toml:"env"`
	Cmd string `toml:"cmd"`
}

// Validate checks that exactly one resolution strategy is declared.
func (s Spec) Validate() error {
	if (s.Env == "") == (s.Cmd == "") {
		return ErrInvalidSpec
	}
	return nil
}

// Resolve materializes the secret value. Env specs read the process
// environment; cmd specs run the command line through "sh -c" and take its
// standard output with trailing whitespace trimmed.
func (s Spec) Resolve(ctx context.Context) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}

	if s.Env != "" {
		value, ok := os.LookupEnv(s.Env)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrMissing, s.Env)
		}
		return value, nil
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", s.Cmd)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("%w: %q: %s", ErrCommandFailed, s.Cmd, msg)
	}

	value := strings.TrimRight(string(output), " \t\r\n")
	if value == "" {
		return "", fmt.Errorf("%w: %q produced no output", ErrCommandFailed, s.Cmd)
	}
	return value, nil
}

// ResolveAll resolves a set of named specs, failing on the first error.
// Values are never cached beyond the returned map; callers hold them for
// at most one run.
func ResolveAll(ctx context.Context, specs map[string]Spec) (map[string]string, error) {
	values := make(map[string]string, len(specs))
	for name, spec := range specs {
		value, err := spec.Resolve(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve secret %q: %w", name, err)
		}
		values[name] = value
	}
	return values, nil
}
