package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/worklog-bot/worklog/internal/drive"
)

// Publisher stores a finished report and returns a link the user can open.
type Publisher interface {
	Publish(ctx context.Context, userID, filename string, data *bytes.Buffer) (string, error)
}

// ReportUploader is the Drive operation DrivePublisher needs.
type ReportUploader interface {
	UploadReport(ctx context.Context, userID, filename, mimeType string, r io.Reader) (*drive.File, error)
}

// DrivePublisher uploads reports into the user's Drive reports folder.
type DrivePublisher struct {
	drive ReportUploader
}

func NewDrivePublisher(d ReportUploader) *DrivePublisher {
	return &DrivePublisher{drive: d}
}

func (p *DrivePublisher) Publish(ctx context.Context, userID, filename string, data *bytes.Buffer) (string, error) {
	file, err := p.drive.UploadReport(ctx, userID, filename, MimeXLSX, data)
	if err != nil {
		return "", err
	}
	return file.Link, nil
}

// LocalPublisher writes reports below dir; the HTTP server exposes dir
// under /reports/.
type LocalPublisher struct {
	dir     string
	baseURL string
}

func NewLocalPublisher(dir, publicBaseURL string) *LocalPublisher {
	return &LocalPublisher{dir: dir, baseURL: strings.TrimRight(publicBaseURL, "/")}
}

// Dir is the directory reports are written to.
func (p *LocalPublisher) Dir() string { return p.dir }

// Handler serves published reports. Directory listings are refused.
func (p *LocalPublisher) Handler() http.Handler {
	files := http.FileServer(http.Dir(p.dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

func (p *LocalPublisher) Publish(_ context.Context, userID, filename string, data *bytes.Buffer) (string, error) {
	sub := safeName(userID)
	dir := filepath.Join(p.dir, sub)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating report dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, filename), data.Bytes(), 0o640); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return p.baseURL + "/reports/" + url.PathEscape(sub) + "/" + url.PathEscape(filename), nil
}

// safeName maps a chat address to a single path segment.
func safeName(s string) string {
	if s == "" || strings.Trim(s, ".") == "" {
		return "_" + s
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_', r == '@':
			return r
		}
		return '_'
	}, s)
}
