package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/readalong/tts"
)

// runHeadless reads text aloud without the viewer. Each sentence is written
// to w as it starts. It returns when the session ends or ctx is done.
func runHeadless(ctx context.Context, controller *tts.Controller, text string, settings tts.Settings, w io.Writer) error {
	ended := make(chan tts.EndReason, 1)
	var lastErr string

	controller.SetCallbacks(tts.Callbacks{
		OnSentenceHighlight: func(start, end int) {
			_, _ = fmt.Fprintln(w, strings.TrimSpace(text[start:end]))
		},
		OnWordHighlight: func(start, end int) {
			log.Debug("Speaking", "word", text[start:end])
		},
		OnError: func(kind tts.ErrorKind, message string) {
			log.Warn("Read-along error", "kind", kind, "message", message)
			lastErr = message
		},
		OnSessionEnd: func(reason tts.EndReason) {
			select {
			case ended <- reason:
			default:
			}
		},
	})

	handle, err := controller.Play(text, settings)
	if err != nil {
		return fmt.Errorf("unable to start reading: %w", err)
	}
	log.Debug("Reading", "session", handle)

	var reason tts.EndReason
	select {
	case reason = <-ended:
	case <-ctx.Done():
		controller.Stop()
		reason = <-ended
	}

	if reason == tts.EndError {
		return fmt.Errorf("reading failed: %s", lastErr)
	}
	return nil
}
