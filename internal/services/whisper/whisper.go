// Package whisper adapts a whisper-style speech engine binary to the
// transcriber's Engine interface.
//
// The engine is expected to emit one JSON object per stdout line:
//
//	{"type":"segment","text":"hello world"}
//	{"type":"download","status":"progress","progress":42.5}
//	{"type":"error","message":"model load failed"}
//
// Lines that do not parse are ignored; engines print banners and progress
// bars to stderr, which is collected only for error reporting.
package whisper

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"ciderpress/internal/services"
	"ciderpress/internal/transcriber"
)

// Engine runs the configured speech engine binary as a subprocess.
type Engine struct {
	// Binary is the engine executable. Empty means "whisper-cli".
	Binary string
	// Language hints the spoken language; empty lets the engine detect.
	Language string
}

var _ transcriber.Engine = (*Engine)(nil)

func (e *Engine) binary() string {
	if b := strings.TrimSpace(e.Binary); b != "" {
		return b
	}
	return "whisper-cli"
}

type streamLine struct {
	Type     string  `json:"type"`
	Text     string  `json:"text"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Message  string  `json:"message"`
}

// Transcribe streams engine events for one audio file. A stream-level error
// event or a non-zero exit fails the run.
func (e *Engine) Transcribe(ctx context.Context, audioPath, model string, sink transcriber.EventSink) error {
	args := []string{
		"--model", model,
		"--file", audioPath,
		"--output-json-stream",
	}
	if lang := strings.TrimSpace(e.Language); lang != "" {
		args = append(args, "--language", lang)
	}

	cmd := exec.CommandContext(ctx, e.binary(), args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "transcribe", "engine", "open stdout", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrExternalTool, "transcribe", "engine", "start", err)
	}

	var streamErr error
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var parsed streamLine
		if err := json.Unmarshal(line, &parsed); err != nil {
			continue
		}
		event, ok := toEvent(parsed)
		if !ok {
			continue
		}
		if sink != nil {
			sink(event)
		}
		if event.Kind == transcriber.EventError {
			streamErr = fmt.Errorf("engine error: %s", event.Message)
		}
	}
	scanErr := scanner.Err()

	if err := cmd.Wait(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return services.Wrap(services.ErrExternalTool, "transcribe", "engine", "run", err)
	}
	if streamErr != nil {
		return services.Wrap(services.ErrExternalTool, "transcribe", "engine", "stream", streamErr)
	}
	if scanErr != nil {
		return services.Wrap(services.ErrExternalTool, "transcribe", "engine", "read stream", scanErr)
	}
	return nil
}

func toEvent(line streamLine) (transcriber.Event, bool) {
	switch line.Type {
	case "segment":
		return transcriber.Event{Kind: transcriber.EventSegment, Text: line.Text}, true
	case "download":
		return transcriber.Event{
			Kind:     transcriber.EventDownload,
			Status:   line.Status,
			Progress: line.Progress,
		}, true
	case "error":
		return transcriber.Event{Kind: transcriber.EventError, Message: line.Message}, true
	default:
		return transcriber.Event{}, false
	}
}
