package packaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	kerrors "github.com/PolarWolf314/buildseal/internal/errors"
)

// Packager turns a single source file into an executable.
type Packager interface {
	Package(ctx context.Context, sourceFile string) error
}

// Command runs an external packaging tool as
//
//	<Tool> <Args...> <sourceFile>
//
// in Dir (the current directory when empty).
type Command struct {
	Tool string
	Args []string
	Dir  string
}

// Package runs the tool and waits for it. A tool that cannot be started or
// exits non-zero yields ErrPackagingFailed with the tail of its output.
func (c Command) Package(ctx context.Context, sourceFile string) error {
	if c.Tool == "" {
		return fmt.Errorf("%w: no packaging tool configured", kerrors.ErrPackagingFailed)
	}

	args := append(append([]string{}, c.Args...), sourceFile)
	// #nosec G204 -- tool and args come from the operator's config.
	cmd := exec.CommandContext(ctx, c.Tool, args...)
	cmd.Dir = c.Dir

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(fmt.Errorf("%w: %s", kerrors.ErrPackagingFailed, c.Tool), ctxErr)
		}
		if tail := lastLines(output.String(), 5); tail != "" {
			return fmt.Errorf("%w: %s: %v: %s", kerrors.ErrPackagingFailed, c.Tool, err, tail)
		}
		return fmt.Errorf("%w: %s: %v", kerrors.ErrPackagingFailed, c.Tool, err)
	}
	return nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
