// Package gallerydl adapts the gallery-dl command line tool to the download
// executor contract. gallery-dl prints one line per file it processes, the
// bare path for a fresh download and a "# "-prefixed path for a file that
// already exists; both count toward the gallery's item total.
package gallerydl

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/jonp69/DL-Homework-Garden/internal/download"
)

const defaultBin = "gallery-dl"

// Config locates the tool and its standing arguments.
type Config struct {
	Bin       string
	ExtraArgs []string
	// TargetDir becomes the tool's base directory when set.
	TargetDir string
	Logger    *zap.Logger
}

// Executor runs one gallery-dl process per download.
type Executor struct {
	bin      string
	baseArgs []string
	logger   *zap.Logger
}

// New builds an executor from cfg.
func New(cfg Config) *Executor {
	if cfg.Bin == "" {
		cfg.Bin = defaultBin
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	args := append([]string(nil), cfg.ExtraArgs...)
	if cfg.TargetDir != "" {
		args = append(args, "--directory", cfg.TargetDir)
	}
	return &Executor{bin: cfg.Bin, baseArgs: args, logger: cfg.Logger}
}

// Download runs the tool for url, streaming each reported file as a progress
// sample and sizing the files on disk for the outcome total. Cancelling ctx
// kills the process.
func (e *Executor) Download(ctx context.Context, url string, progress func(download.ProgressSample)) (download.Outcome, error) {
	args := append(append([]string(nil), e.baseArgs...), url)
	cmd := exec.CommandContext(ctx, e.bin, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return download.Outcome{}, fmt.Errorf("pipe gallery-dl output: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return download.Outcome{}, fmt.Errorf("start gallery-dl: %w", err)
	}
	e.logger.Sugar().Debugw("gallery-dl started", "url", url, "args", args)

	var out download.Outcome
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		path := strings.TrimSpace(strings.TrimPrefix(line, "#"))
		out.Items++
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			out.SizeMB += float64(info.Size()) / (1 << 20)
		}
		if progress != nil {
			progress(download.ProgressSample{Items: out.Items, SizeMB: out.SizeMB})
		}
	}
	scanErr := scanner.Err()

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return out, ctx.Err()
	}
	if waitErr != nil {
		if msg := lastLine(stderr.String()); msg != "" {
			return out, fmt.Errorf("gallery-dl: %s", msg)
		}
		return out, fmt.Errorf("gallery-dl: %w", waitErr)
	}
	if scanErr != nil {
		return out, fmt.Errorf("read gallery-dl output: %w", scanErr)
	}

	e.logger.Sugar().Debugw("gallery-dl finished", "url", url, "items", out.Items, "size_mb", out.SizeMB)
	return out, nil
}

// lastLine returns the final non-empty line of s; gallery-dl puts its error
// summary there.
func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
