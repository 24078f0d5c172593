package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/veritas/internal/model"
)

// Input is a response ready for ProcessResponse
type Input struct {
	Text   string
	Format string // model.FormatText or model.FormatHTML
	Origin string // file path, URL or "stdin"
}

// Loader resolves a CLI argument to an Input
type Loader struct {
	fetcher  *Fetcher
	stdin    io.Reader
	maxBytes int64
}

// NewLoader creates a loader; stdin defaults to os.Stdin
func NewLoader(cfg model.HTTPConfig, stdin io.Reader) *Loader {
	if stdin == nil {
		stdin = os.Stdin
	}
	f := NewFetcher(cfg)
	return &Loader{fetcher: f, stdin: stdin, maxBytes: f.maxBytes}
}

// Load reads "-" from stdin, http(s) URLs over the network and anything else from disk
func (l *Loader) Load(ctx context.Context, arg string) (Input, error) {
	switch {
	case arg == "-":
		data, err := l.readLimited(l.stdin)
		if err != nil {
			return Input{}, fmt.Errorf("read stdin: %w", err)
		}
		return Input{Text: string(data), Format: sniffFormat("", data), Origin: "stdin"}, nil

	case strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://"):
		res, err := l.fetcher.FetchWithRetry(ctx, arg)
		if err != nil {
			return Input{}, fmt.Errorf("fetch %s: %w", arg, err)
		}
		format := sniffFormat("", []byte(res.Body))
		if strings.Contains(strings.ToLower(res.ContentType), "html") {
			format = model.FormatHTML
		}
		return Input{Text: res.Body, Format: format, Origin: res.FinalURL}, nil

	default:
		f, err := os.Open(arg)
		if err != nil {
			return Input{}, fmt.Errorf("open input: %w", err)
		}
		defer func() { _ = f.Close() }()

		data, err := l.readLimited(f)
		if err != nil {
			return Input{}, fmt.Errorf("read %s: %w", arg, err)
		}
		return Input{Text: string(data), Format: sniffFormat(arg, data), Origin: arg}, nil
	}
}

func (l *Loader) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, l.maxBytes)
	}
	return data, nil
}

// sniffFormat guesses HTML from the file extension or a leading tag
func sniffFormat(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		return model.FormatHTML
	}
	head := bytes.ToLower(bytes.TrimSpace(data[:min(len(data), 512)]))
	if bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html")) {
		return model.FormatHTML
	}
	return model.FormatText
}
