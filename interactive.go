package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"video-assistant/internal/assistant"
	"video-assistant/internal/terminal"
	"video-assistant/internal/ui"
	"video-assistant/internal/window"
)

// cliUserID identifies the terminal user in conversation memory
const cliUserID = "cli"

// session is the state of the interactive loop
type session struct {
	videoID  string
	model    string
	startAt  string
	position float64
	mode     string
}

func runInteractive(ctx context.Context, display *ui.Display, asst *assistant.Assistant, s session) error {
	start, err := terminal.ParseTimestamp(s.startAt)
	if err != nil {
		return err
	}
	s.position = start
	s.mode = asst.DefaultMode()

	info, err := asst.TranscriptInfo(ctx, s.videoID)
	if err != nil {
		return err
	}

	display.ClearScreen()
	display.PrintWelcome(s.videoID, s.model, s.mode)
	display.PrintInfo(fmt.Sprintf("Transcript loaded: %d segments, last at %s", info.SegmentsCount, window.FormatTimestamp(info.Duration)))

	// stdin reads cannot be interrupted, so a signal ends the session here
	go func() {
		<-ctx.Done()
		display.PrintInfo("Shutting down gracefully...")
		display.PrintGoodbye()
		os.Exit(0)
	}()

	input := terminal.NewInputReader(os.Stdin)
	for {
		display.PrintPrompt(s.position)
		line, err := input.ReadUserInput()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}

		cmd, err := terminal.ParseCommand(line)
		if err != nil {
			display.PrintWarning(err.Error())
			continue
		}
		if cmd.Kind == terminal.CommandExit {
			break
		}
		handleCommand(ctx, display, asst, &s, cmd)
	}

	display.PrintGoodbye()
	return nil
}

func handleCommand(ctx context.Context, display *ui.Display, asst *assistant.Assistant, s *session, cmd terminal.Command) {
	store := asst.Memory()

	switch cmd.Kind {
	case terminal.CommandNone:
	case terminal.CommandTime:
		s.position = cmd.Position
		display.PrintInfo("Playback position set to " + window.FormatTimestamp(s.position))
	case terminal.CommandMode:
		if !assistant.ValidMode(cmd.Arg) {
			display.PrintWarning(fmt.Sprintf("unknown mode %q", cmd.Arg))
			return
		}
		s.mode = cmd.Arg
		display.PrintSuccess("Mode: " + s.mode)
	case terminal.CommandHistory:
		display.PrintHistory(store.History(s.videoID, cliUserID))
	case terminal.CommandClear:
		store.Clear(s.videoID, cliUserID)
		display.ClearScreen()
		display.PrintWelcome(s.videoID, s.model, s.mode)
		display.PrintSuccess("Conversation cleared")
	case terminal.CommandStats:
		display.PrintStats(store.Stats())
	case terminal.CommandTranscript:
		info, err := asst.TranscriptInfo(ctx, s.videoID)
		if err != nil {
			display.PrintError(err)
			return
		}
		display.PrintInfo(fmt.Sprintf("%d segments, last at %s", info.SegmentsCount, window.FormatTimestamp(info.Duration)))
	case terminal.CommandHelp:
		display.PrintWelcome(s.videoID, s.model, s.mode)
	case terminal.CommandAsk:
		if cmd.HasPosition {
			s.position = cmd.Position
		}
		ask(ctx, display, asst, s, cmd.Text)
	}
}

func ask(ctx context.Context, display *ui.Display, asst *assistant.Assistant, s *session, question string) {
	display.PrintUserMessage(s.position, question, time.Now())
	if s.mode == assistant.ModeMultiAgent {
		display.PrintInfo("Analyzing question...")
	}

	start := time.Now()
	answer, err := asst.Ask(ctx, assistant.Question{
		VideoID:     s.videoID,
		UserID:      cliUserID,
		CurrentTime: s.position,
		Text:        question,
		Mode:        s.mode,
	})
	if err != nil {
		display.PrintError(err)
		if errors.Is(err, assistant.ErrCompletionFailed) {
			display.PrintInfo("Check that the completion backend is reachable and try again")
		}
		return
	}

	display.PrintAnswer(answer, time.Since(start))
}
