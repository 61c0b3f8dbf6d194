// Package terminal reads and parses the interactive session's input.
package terminal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// InputReader reads lines of user input
type InputReader struct {
	reader *bufio.Reader
}

// NewInputReader creates a reader over r
func NewInputReader(r io.Reader) *InputReader {
	return &InputReader{reader: bufio.NewReader(r)}
}

// ReadUserInput reads a line of input from the user. A final line without
// a newline is returned before io.EOF.
func (in *InputReader) ReadUserInput() (string, error) {
	input, err := in.reader.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || input == "") {
		return "", err
	}

	// Trim whitespace and newline
	return strings.TrimSpace(input), nil
}

// Command kinds
const (
	CommandNone       = ""
	CommandAsk        = "ask"
	CommandTime       = "time"
	CommandMode       = "mode"
	CommandHistory    = "history"
	CommandClear      = "clear"
	CommandStats      = "stats"
	CommandTranscript = "transcript"
	CommandHelp       = "help"
	CommandExit       = "exit"
)

// Command is one parsed input line
type Command struct {
	Kind string
	// Position is set by "@MM:SS question" and "/time MM:SS"
	Position    float64
	HasPosition bool
	// Text is the question for CommandAsk
	Text string
	// Arg is the argument of /mode
	Arg string
}

// ParseCommand interprets an input line.
//
//	@MM:SS question   ask at that playback position
//	question          ask at the current position
//	/time MM:SS       move the playback position
//	/mode <mode>      switch answer mode
//	/history /clear /stats /transcript /help /exit
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{Kind: CommandNone}, nil
	}

	if strings.HasPrefix(line, "/") {
		name, arg, _ := strings.Cut(line[1:], " ")
		arg = strings.TrimSpace(arg)

		switch strings.ToLower(name) {
		case "exit", "quit":
			return Command{Kind: CommandExit}, nil
		case "history":
			return Command{Kind: CommandHistory}, nil
		case "clear":
			return Command{Kind: CommandClear}, nil
		case "stats":
			return Command{Kind: CommandStats}, nil
		case "transcript":
			return Command{Kind: CommandTranscript}, nil
		case "help":
			return Command{Kind: CommandHelp}, nil
		case "mode":
			if arg == "" {
				return Command{}, fmt.Errorf("usage: /mode <mode>")
			}
			return Command{Kind: CommandMode, Arg: arg}, nil
		case "time":
			pos, err := ParseTimestamp(arg)
			if err != nil {
				return Command{}, err
			}
			return Command{Kind: CommandTime, Position: pos, HasPosition: true}, nil
		default:
			return Command{}, fmt.Errorf("unknown command: /%s", name)
		}
	}

	if strings.HasPrefix(line, "@") {
		stamp, question, _ := strings.Cut(line[1:], " ")
		pos, err := ParseTimestamp(stamp)
		if err != nil {
			return Command{}, err
		}
		question = strings.TrimSpace(question)
		if question == "" {
			return Command{}, fmt.Errorf("missing question after @%s", stamp)
		}
		return Command{Kind: CommandAsk, Position: pos, HasPosition: true, Text: question}, nil
	}

	if line == "exit" || line == "quit" {
		return Command{Kind: CommandExit}, nil
	}

	return Command{Kind: CommandAsk, Text: line}, nil
}

// ParseTimestamp converts "SS", "MM:SS" or "HH:MM:SS" to seconds
func ParseTimestamp(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("missing timestamp (expected MM:SS)")
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q (expected MM:SS)", s)
	}

	var seconds float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("invalid timestamp %q (expected MM:SS)", s)
		}
		// every field but the first must stay below 60
		if i > 0 && v >= 60 {
			return 0, fmt.Errorf("invalid timestamp %q: field %q out of range", s, part)
		}
		seconds = seconds*60 + v
	}
	return seconds, nil
}
