// Package notebook shells out to the external nlm binary to push finished
// transcripts and audio into a notebook service. The binary talks to a
// remote API and can hang on auth problems, so every invocation runs under a
// hard 30-second timeout with a forced kill; a timeout is a normal failure
// mode, not a crash.
package notebook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ciderpress/internal/services"
)

// commandTimeout bounds every nlm invocation.
const commandTimeout = 30 * time.Second

// Client wraps the nlm binary.
type Client struct {
	// Binary is the nlm executable name or path. Empty means "nlm".
	Binary string
}

func (c *Client) binary() string {
	if b := strings.TrimSpace(c.Binary); b != "" {
		return b
	}
	return "nlm"
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.binary(), args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return "", services.Wrap(services.ErrTimeout, "notebook", args[0], "nlm did not finish within 30s", nil)
	}
	if err != nil {
		detail := strings.TrimSpace(string(output))
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return "", services.Wrap(services.ErrExternalTool, "notebook", args[0], "nlm failed", err)
	}
	return string(output), nil
}

// Notebook is one remote notebook the sync target list offers.
type Notebook struct {
	ID    string
	Title string
}

// ListNotebooks returns the notebooks available to the authenticated user.
func (c *Client) ListNotebooks(ctx context.Context) ([]Notebook, error) {
	output, err := c.run(ctx, "list")
	if err != nil {
		return nil, err
	}
	return parseNotebookList(output), nil
}

// AddText pushes transcript text into a notebook. The text travels through a
// temp file because nlm takes a path argument.
func (c *Client) AddText(ctx context.Context, notebookID, text string) error {
	path := filepath.Join(os.TempDir(), uuid.NewString()+".txt")
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write transcript temp file: %w", err)
	}
	defer os.Remove(path)

	_, err := c.run(ctx, "add", notebookID, path)
	return err
}

// AddAudio pushes an audio file into a notebook.
func (c *Client) AddAudio(ctx context.Context, notebookID, audioPath string) error {
	_, err := c.run(ctx, "add", notebookID, audioPath)
	return err
}

// parseNotebookList reads nlm's tabular "list" output: one notebook per
// line, id then title, whitespace separated.
func parseNotebookList(output string) []Notebook {
	var notebooks []Notebook
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "ID") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		notebooks = append(notebooks, Notebook{
			ID:    fields[0],
			Title: strings.Join(fields[1:], " "),
		})
	}
	return notebooks
}
