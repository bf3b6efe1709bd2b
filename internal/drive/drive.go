// Package drive stores photos and exported reports in Google Drive under a
// per-user folder hierarchy.
package drive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	folderMimeType = "application/vnd.google-apps.folder"
	reportsFolder  = "reports"
	fileFields     = "id, name, webViewLink"
)

// File is a stored Drive file or folder.
type File struct {
	ID   string
	Name string
	Link string
}

// Store creates folders and uploads files below a parent folder.
type Store struct {
	svc      *drive.Service
	parentID string
}

// New creates a Store rooted at parentID ("root" when empty).
func New(ctx context.Context, parentID string, opts ...option.ClientOption) (*Store, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}
	if parentID == "" {
		parentID = "root"
	}
	return &Store{svc: svc, parentID: parentID}, nil
}

// UploadPhoto stores an image in <parent>/<user>/<day> and returns the file
// and the day folder.
func (s *Store) UploadPhoto(ctx context.Context, userID, day, filename, description string, r io.Reader) (*File, *File, error) {
	userFolder, err := s.folder(ctx, userID, s.parentID)
	if err != nil {
		return nil, nil, err
	}
	dayFolder, err := s.folder(ctx, day, userFolder.ID)
	if err != nil {
		return nil, nil, err
	}

	file, err := s.upload(ctx, dayFolder.ID, filename, description, "image/jpeg", r)
	if err != nil {
		return nil, nil, err
	}
	return file, dayFolder, nil
}

// UploadReport stores an exported report in <parent>/<user>/reports.
func (s *Store) UploadReport(ctx context.Context, userID, filename, mimeType string, r io.Reader) (*File, error) {
	userFolder, err := s.folder(ctx, userID, s.parentID)
	if err != nil {
		return nil, err
	}
	dir, err := s.folder(ctx, reportsFolder, userFolder.ID)
	if err != nil {
		return nil, err
	}
	return s.upload(ctx, dir.ID, filename, "", mimeType, r)
}

// folder returns the first child folder called name, creating it when missing.
func (s *Store) folder(ctx context.Context, name, parentID string) (*File, error) {
	q := fmt.Sprintf("mimeType='%s' and name='%s' and '%s' in parents and trashed=false",
		folderMimeType, escape(name), escape(parentID))
	list, err := s.svc.Files.List().Q(q).Spaces("drive").Fields("files(id, name, webViewLink)").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("looking up folder %q: %w", name, err)
	}
	if len(list.Files) > 0 {
		return toFile(list.Files[0]), nil
	}

	created, err := s.svc.Files.Create(&drive.File{
		Name:     name,
		MimeType: folderMimeType,
		Parents:  []string{parentID},
	}).Fields(fileFields).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("creating folder %q: %w", name, err)
	}
	slog.Info("drive folder created", "name", name, "id", created.Id)
	return toFile(created), nil
}

func (s *Store) upload(ctx context.Context, folderID, filename, description, mimeType string, r io.Reader) (*File, error) {
	name, err := s.uniqueName(ctx, filename, folderID)
	if err != nil {
		return nil, err
	}

	created, err := s.svc.Files.Create(&drive.File{
		Name:        name,
		Description: description,
		Parents:     []string{folderID},
	}).Media(r, googleapi.ContentType(mimeType)).Fields(fileFields).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("uploading %q: %w", name, err)
	}
	slog.Info("drive file uploaded", "name", created.Name, "id", created.Id)
	return toFile(created), nil
}

// uniqueName returns filename, or "name (n).ext" for the first n not taken.
func (s *Store) uniqueName(ctx context.Context, filename, folderID string) (string, error) {
	ext := path.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	candidate := filename
	for n := 1; ; n++ {
		q := fmt.Sprintf("name='%s' and '%s' in parents and trashed=false", escape(candidate), escape(folderID))
		list, err := s.svc.Files.List().Q(q).Spaces("drive").Fields("files(id)").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("checking name %q: %w", candidate, err)
		}
		if len(list.Files) == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s (%d)%s", base, n, ext)
	}
}

func toFile(f *drive.File) *File {
	return &File{ID: f.Id, Name: f.Name, Link: f.WebViewLink}
}

// escape quotes a value for a Drive query string literal.
func escape(v string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v)
}
