package selector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"os/exec"
	"strings"

	"canvas-finder/internal/export"
)

// ErrNoSelection is returned when the selector exits without a choice
// (no match or aborted by the user).
var ErrNoSelection = errors.New("selector: nothing selected")

// Select pipes lines into command and returns the line it prints.
// The selector draws its UI on the terminal; only its stdout is captured.
func Select(ctx context.Context, command []string, lines iter.Seq[string]) (string, error) {
	if len(command) == 0 {
		return "", errors.New("selector: empty command")
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Stderr = os.Stderr
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", fmt.Errorf("selector: stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("selector: start %s: %w", command[0], err)
	}

	writeErr := make(chan error, 1)
	go func() {
		_, err := export.Emit(lines, stdin)
		stdin.Close()
		writeErr <- err
	}()

	waitErr := cmd.Wait()
	// the selector may exit before reading everything; a broken pipe is fine then
	if err := <-writeErr; err != nil && waitErr == nil && !isClosedPipe(err) {
		return "", fmt.Errorf("selector: write: %w", err)
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) && ctx.Err() == nil {
			// fzf: 1 = no match, 130 = interrupted
			switch exitErr.ExitCode() {
			case 1, 130:
				return "", ErrNoSelection
			}
		}
		return "", fmt.Errorf("selector: %s: %w", command[0], waitErr)
	}

	line := strings.TrimRight(stdout.String(), "\r\n")
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		// multi-select: keep the first choice
		line = line[:i]
	}
	if line == "" {
		return "", ErrNoSelection
	}
	return line, nil
}

// URLOf extracts the item URL from a selected listing line.
func URLOf(line string) (string, error) {
	rec, err := export.ParseLine(line)
	if err != nil {
		return "", err
	}
	if rec.ItemURL == "" {
		return "", fmt.Errorf("selector: %q has no url", rec.ItemTitle)
	}
	return rec.ItemURL, nil
}

func isClosedPipe(err error) bool {
	return errors.Is(err, os.ErrClosed) || errors.Is(err, io.ErrClosedPipe) ||
		strings.Contains(err.Error(), "broken pipe")
}
