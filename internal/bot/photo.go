package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

const defaultMaxPhotoBytes = 20 << 20

var errPhotoTooLarge = errors.New("photo exceeds size limit")

// handlePhoto downloads the attachment, stores it in today's folder and links
// the folder from the daily log. The message text is the photo caption.
func (b *Bot) handlePhoto(ctx context.Context, req Request) (string, error) {
	if b.deps.Photos == nil {
		return msgPhotosDisabled, nil
	}

	if err := checkAttachmentURL(req.AttachmentURL, b.opts.UploadHosts); err != nil {
		slog.Warn("bot: attachment refused", "user", req.UserID, "error", err)
		return msgPhotoRefused, nil
	}
	data, err := b.download(ctx, req.AttachmentURL)
	switch {
	case errors.Is(err, errPhotoTooLarge):
		return msgPhotoTooLarge, nil
	case errors.Is(err, errAttachmentRefused):
		slog.Warn("bot: attachment refused", "user", req.UserID, "error", err)
		return msgPhotoRefused, nil
	}
	if err != nil {
		return "", err
	}

	today := b.deps.Log.Today()
	name := photoName(req.AttachmentURL, time.Now())
	file, folder, err := b.deps.Photos.UploadPhoto(ctx, req.UserID, today, name, req.Text, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("uploading photo: %w", err)
	}
	slog.Info("bot: photo stored", "user", req.UserID, "file", file.Name)

	if err := b.deps.Log.SetLink(ctx, req.UserID, today, folder.Link); err != nil {
		return "", err
	}
	if req.Text == "" {
		return msgPhotoNoCaption, nil
	}
	if err := b.deps.Log.AppendText(ctx, req.UserID, today, req.Text); err != nil {
		return "", err
	}
	return msgPhotoSaved, nil
}

func (b *Bot) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building download request: %w", err)
	}
	resp, err := b.deps.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading attachment: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading attachment: %s", resp.Status)
	}

	limit := b.opts.MaxPhotoBytes
	if limit <= 0 {
		limit = defaultMaxPhotoBytes
	}
	if resp.ContentLength > limit {
		return nil, errPhotoTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading attachment: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, errPhotoTooLarge
	}
	return data, nil
}

// photoName keeps the attachment's own file name when it has one.
func photoName(rawURL string, now time.Time) string {
	if u, err := url.Parse(rawURL); err == nil {
		base := path.Base(u.Path)
		if ext := strings.ToLower(path.Ext(base)); ext == ".jpg" || ext == ".jpeg" || ext == ".png" {
			return base
		}
	}
	return "photo_" + now.Format("150405") + ".jpg"
}
