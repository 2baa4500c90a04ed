package serialshell

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrEmptyLine is returned by Parse for a line that is blank once its
// comment has been removed.
var ErrEmptyLine = errors.New("empty line")

var (
	countPattern     = regexp.MustCompile(`^\d+$`)
	delimiterPattern = regexp.MustCompile(`^\w+$`)
)

// CommandParser classifies input lines into Commands. Parsing has no side
// effects.
type CommandParser struct{}

// NewCommandParser creates a new command parser.
func NewCommandParser() *CommandParser {
	return &CommandParser{}
}

// Parse classifies a single input line. Rules are checked in order and the
// first match wins:
//
//  1. the trailing comment is removed
//  2. exit
//  3. clear
//  4. !command
//  5. read <digits>
//  6. read <word>
//  7. send|write <payload> [--wait]
//
// Anything else is an ErrKindUnknownCommand error.
func (p *CommandParser) Parse(line string) (Command, error) {
	text := strings.TrimSpace(StripComment(line))
	if text == "" {
		return Command{}, ErrEmptyLine
	}

	switch strings.ToLower(text) {
	case "exit":
		return NewExitCommand(), nil
	case "clear":
		return NewClearCommand(), nil
	}

	if strings.HasPrefix(text, ShellEscapePrefix) {
		command := strings.TrimSpace(text[len(ShellEscapePrefix):])
		if command == "" {
			return Command{}, newMalformedArgumentError(text, "missing shell command")
		}
		cmd := NewShellCommand(command)
		cmd.Line = text
		return cmd, nil
	}

	keyword, rest, found := strings.Cut(text, " ")
	var (
		cmd Command
		err error
	)
	switch strings.ToLower(keyword) {
	case "read":
		cmd, err = p.parseRead(rest)
	case "send", "write":
		if !found || strings.TrimSpace(rest) == "" {
			return Command{}, newUnknownCommandError(text)
		}
		cmd = p.parseSend(rest)
	default:
		return Command{}, newUnknownCommandError(text)
	}
	if err != nil {
		return Command{}, err
	}
	cmd.Line = text
	return cmd, nil
}

// IsBlank reports whether line holds nothing but whitespace and a comment.
func IsBlank(line string) bool {
	return strings.TrimSpace(StripComment(line)) == ""
}

func (p *CommandParser) parseRead(args string) (Command, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return Command{}, newMalformedArgumentError("", "read requires a byte count or a delimiter")
	}
	if len(fields) > 1 {
		return Command{}, newMalformedArgumentError(strings.TrimSpace(args), "read takes a single count or delimiter")
	}
	token := fields[0]

	if countPattern.MatchString(token) {
		count, err := strconv.Atoi(token)
		if err != nil {
			return Command{}, newMalformedArgumentError(token, "count out of range")
		}
		return NewReadCommand(count), nil
	}

	// A token such as "10x" is neither a count nor a delimiter.
	if token[0] >= '0' && token[0] <= '9' {
		return Command{}, newMalformedArgumentError(token, "count must contain only digits")
	}
	if !delimiterPattern.MatchString(token) {
		return Command{}, newMalformedArgumentError(token, "delimiter must contain only letters, digits or '_'")
	}
	return NewReadUntilCommand([]byte(token)), nil
}

func (p *CommandParser) parseSend(args string) Command {
	payload, wait := extractWaitFlag(args)
	return NewSendCommand(payload, wait)
}

// extractWaitFlag removes the first standalone --wait token from payload.
// The remaining payload is trimmed only when the flag was present.
func extractWaitFlag(payload string) (string, bool) {
	tokens := strings.Split(payload, " ")
	for i, tok := range tokens {
		if tok != WaitFlag {
			continue
		}
		rest := append(tokens[:i:i], tokens[i+1:]...)
		return strings.TrimSpace(strings.Join(rest, " ")), true
	}
	return payload, false
}

// StripComment removes everything from the first unescaped '#' to the end
// of line. An escaped "\#" is kept as a literal '#'. Quotes do not protect
// a '#'.
func StripComment(line string) string {
	if !strings.ContainsRune(line, CommentMarker) {
		return line
	}
	var b strings.Builder
	b.Grow(len(line))
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\\' && i+1 < len(line) && line[i+1] == CommentMarker {
			b.WriteByte(CommentMarker)
			i++
			continue
		}
		if c == CommentMarker {
			break
		}
		b.WriteByte(c)
	}
	return b.String()
}
