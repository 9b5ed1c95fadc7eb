package assistant

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/SoulPlaya/Llama-AIAgent/pkg/speech"
)

// Run is the listening loop. It returns nil after a shutdown word or when
// the listener is exhausted, and ctx.Err() when ctx is cancelled.
// Dispatched commands are not awaited.
func (a *Assistant) Run(ctx context.Context) error {
	a.logger.Info("listening", "wake_word", a.opts.WakeWord)

	for {
		utterance, err := a.listen(ctx)
		if err != nil {
			return stopErr(err)
		}
		if utterance == "" {
			continue
		}
		if !strings.Contains(utterance, a.opts.WakeWord) {
			a.logger.Debug("ignored", "text", utterance)
			continue
		}

		a.logger.Info("heard", "text", utterance)

		command := a.stripWake(utterance)
		if command == "" {
			a.say(a.logger, MsgFollowUp)

			followUp, err := a.listen(ctx)
			if err != nil {
				return stopErr(err)
			}
			if followUp == "" {
				continue
			}
			a.logger.Info("heard", "text", followUp)

			if command = a.stripWake(followUp); command == "" {
				continue
			}
		}

		if a.isShutdown(command) {
			a.logger.Info("shutdown requested", "text", command)
			a.say(a.logger, MsgFarewell)
			return nil
		}

		a.dispatch(ctx, command)
	}
}

// listen returns "" for anything that is not an utterance. Only ErrClosed
// and context errors are returned. Other errors are logged and followed by
// RetryDelay of quiet.
func (a *Assistant) listen(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text, err := a.deps.Listener.Listen(ctx)
	switch {
	case err == nil:
		return strings.TrimSpace(strings.ToLower(text)), nil
	case errors.Is(err, speech.ErrClosed):
		return "", err
	case ctx.Err() != nil:
		return "", ctx.Err()
	default:
		a.logger.Warn("listen failed", "error", err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(a.opts.RetryDelay):
		}
		return "", nil
	}
}

func stopErr(err error) error {
	if errors.Is(err, speech.ErrClosed) {
		return nil
	}
	return err
}

// stripWake removes every occurrence of the wake word, collapses spaces and
// trims punctuation left at either end ("llama, search ..." -> "search ...").
func (a *Assistant) stripWake(utterance string) string {
	command := strings.Join(strings.Fields(strings.ReplaceAll(utterance, a.opts.WakeWord, " ")), " ")
	return strings.Trim(command, " ,.!?;:")
}

// isShutdown reports whether command contains a shutdown word as a whole
// word or phrase, so "quite" does not match "quit".
func (a *Assistant) isShutdown(command string) bool {
	padded := " " + strings.Join(words(command), " ") + " "
	for _, w := range a.opts.ShutdownWords {
		phrase := strings.Join(words(w), " ")
		if phrase != "" && strings.Contains(padded, " "+phrase+" ") {
			return true
		}
	}
	return false
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
