package serialshell

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// markerPattern matches an embedded !(command) marker. The command text
// cannot contain ')'.
var markerPattern = regexp.MustCompile(`!\(([^)]+)\)`)

// Expander substitutes embedded !(command) markers in a payload with the
// standard output of each command.
type Expander struct {
	runner Runner
	logger *zap.Logger
}

// NewExpander creates an expander running subcommands with runner.
func NewExpander(runner Runner, logger *zap.Logger) *Expander {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Expander{runner: runner, logger: logger}
}

// HasMarkers reports whether payload contains at least one marker.
func HasMarkers(payload string) bool {
	return markerPattern.MatchString(payload)
}

// Expand replaces every marker in payload, left to right, with the captured
// stdout of its command. Output is inserted verbatim, trailing newline
// included. Markers are located in the original payload only, so a marker
// produced by a command's output is never expanded.
//
// Expansion stops at the first command that fails; the error is returned
// together with an empty string.
func (e *Expander) Expand(ctx context.Context, payload string) (string, error) {
	if !HasMarkers(payload) {
		return payload, nil
	}
	matches := markerPattern.FindAllStringSubmatchIndex(payload, -1)

	var b strings.Builder
	last := 0
	for _, m := range matches {
		command := payload[m[2]:m[3]]

		res, err := e.runner.Run(ctx, command)
		if err != nil {
			return "", err
		}
		if res.NotFound() {
			return "", newCommandNotFoundError(commandName(command), nil)
		}
		if !res.Success() {
			return "", newCommandFailedError(command, res)
		}

		e.logger.Debug("expanded subcommand",
			zap.String("command", command),
			zap.Int("output_bytes", len(res.Stdout)))

		b.WriteString(payload[last:m[0]])
		b.WriteString(res.Stdout)
		last = m[1]
	}
	b.WriteString(payload[last:])

	return b.String(), nil
}
