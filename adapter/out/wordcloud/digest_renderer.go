// Package wordcloud shells out to an external renderer to produce the
// per-message wordcloud images used by the batch flow.
package wordcloud

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"digest_server/core/port/out"

	"github.com/rs/zerolog"
)

var commandContext = exec.CommandContext

// Renderer implements out.CloudRenderer by invoking a renderer command
// (e.g. wordcloud_cli) with the summary on stdin.
type Renderer struct {
	command string
	dir     string
	log     zerolog.Logger
}

var _ out.CloudRenderer = (*Renderer)(nil)

// NewRenderer returns a renderer that writes images into dir.
func NewRenderer(command, dir string, log zerolog.Logger) *Renderer {
	return &Renderer{command: command, dir: dir, log: log}
}

// Render writes {id}_{sender}_{day}_wordcloud.png and returns its path.
func (r *Renderer) Render(ctx context.Context, summary, id, sender, day string) (string, error) {
	path := filepath.Join(r.dir, imageName(id, sender, day))

	cmd := commandContext(ctx, r.command, "--imagefile", path, "--width", "800", "--height", "400")
	cmd.Stdin = strings.NewReader(summary)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("wordcloud command failed: %w: %s", err, stderr.String())
	}

	r.log.Debug().Str("path", path).Msg("wordcloud image written")
	return path, nil
}

func imageName(id, sender, day string) string {
	return fmt.Sprintf("%s_%s_%s_wordcloud.png", id, sender, day)
}

// Disabled is the no-op renderer used when no command is configured.
type Disabled struct{}

var _ out.CloudRenderer = Disabled{}

func (Disabled) Render(ctx context.Context, summary, id, sender, day string) (string, error) {
	return "", nil
}
