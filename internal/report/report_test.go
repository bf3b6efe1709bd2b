package report

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/worklog-bot/worklog/internal/daylog"
	"github.com/worklog-bot/worklog/internal/drive"
)

type fakeRows struct {
	rows []daylog.Row
	err  error
}

func (f fakeRows) UserRows(context.Context, string) ([]daylog.Row, error) {
	return f.rows, f.err
}

type capturePublisher struct {
	user, name string
	data       []byte
}

func (c *capturePublisher) Publish(_ context.Context, userID, filename string, data *bytes.Buffer) (string, error) {
	c.user, c.name, c.data = userID, filename, data.Bytes()
	return "https://example.org/" + filename, nil
}

func TestBuild_ColumnsAndHint(t *testing.T) {
	rows := []daylog.Row{
		{Date: "18-10-2026", Duration: "1:30:00", Description: "a\nb", FolderLink: "https://drive/x", AIResponse: "did a and b"},
		{Date: "19-10-2026", Duration: "=H3-G3", Description: "c", FolderLink: daylog.NoFolderYet, FirstSeen: "09:00:00", LastSeen: "10:15:30"},
	}

	buf, err := Build(rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"Date", "Duration", "Description", "Images", "AI summary"}, got[0])
	assert.Equal(t, []string{"18-10-2026", "1:30:00", "a\nb", "https://drive/x", "did a and b"}, got[1])
	assert.Equal(t, []string{"19-10-2026", "1:15:30", "c", daylog.NoFolderYet, NoSummaryHint}, got[2])
}

func TestExporter_Export(t *testing.T) {
	pub := &capturePublisher{}
	e := NewExporter(fakeRows{rows: []daylog.Row{{Date: "19-10-2026", Description: "x"}}}, pub)
	e.now = func() time.Time { return time.Date(2026, 10, 19, 15, 4, 5, 0, time.UTC) }
	e.token = func() string { return "tok" }

	link, err := e.Export(context.Background(), "ana@example.org")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/report_20261019_150405_tok.xlsx", link)
	assert.Equal(t, "ana@example.org", pub.user)
	assert.NotEmpty(t, pub.data)
}

func TestExporter_NamesAreUnguessable(t *testing.T) {
	pub := &capturePublisher{}
	e := NewExporter(fakeRows{rows: []daylog.Row{{Date: "19-10-2026", Description: "x"}}}, pub)
	fixed := time.Date(2026, 10, 19, 15, 4, 5, 0, time.UTC)
	e.now = func() time.Time { return fixed }

	first, err := e.Export(context.Background(), "ana@example.org")
	require.NoError(t, err)
	second, err := e.Export(context.Background(), "ana@example.org")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	timestampOnly := "https://example.org/report_20261019_150405.xlsx"
	for _, link := range []string{first, second} {
		assert.NotEqual(t, timestampOnly, link)
		suffix := strings.TrimSuffix(strings.TrimPrefix(link, "https://example.org/report_20261019_150405_"), ".xlsx")
		_, err := uuid.Parse(suffix)
		assert.NoError(t, err, link)
	}
}

func TestExporter_NoRows(t *testing.T) {
	e := NewExporter(fakeRows{}, &capturePublisher{})
	_, err := e.Export(context.Background(), "ana@example.org")
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestExporter_ReadError(t *testing.T) {
	boom := errors.New("sheets down")
	e := NewExporter(fakeRows{err: boom}, &capturePublisher{})
	_, err := e.Export(context.Background(), "ana@example.org")
	assert.ErrorIs(t, err, boom)
}

func TestLocalPublisher(t *testing.T) {
	dir := t.TempDir()
	p := NewLocalPublisher(dir, "https://bot.example.org/")

	link, err := p.Publish(context.Background(), "ana@example.org/phone", "r.xlsx", bytes.NewBufferString("data"))
	require.NoError(t, err)
	assert.Equal(t, "https://bot.example.org/reports/ana@example.org_phone/r.xlsx", link)

	b, err := os.ReadFile(filepath.Join(dir, "ana@example.org_phone", "r.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(b))
}

func TestLocalPublisher_Handler(t *testing.T) {
	dir := t.TempDir()
	p := NewLocalPublisher(dir, "")
	_, err := p.Publish(context.Background(), "ana@example.org", "r.xlsx", bytes.NewBufferString("data"))
	require.NoError(t, err)

	h := p.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/ana@example.org/r.xlsx", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "data", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/ana@example.org/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "_..", safeName(".."))
	assert.Equal(t, "_", safeName(""))
	assert.Equal(t, "a_b", safeName("a/b"))
}

type fakeUploader struct{ mime string }

func (f *fakeUploader) UploadReport(_ context.Context, _, filename, mimeType string, _ io.Reader) (*drive.File, error) {
	f.mime = mimeType
	return &drive.File{ID: "1", Name: filename, Link: "https://drive.google.com/file/d/1"}, nil
}

func TestDrivePublisher(t *testing.T) {
	up := &fakeUploader{}
	link, err := NewDrivePublisher(up).Publish(context.Background(), "u", "r.xlsx", bytes.NewBufferString("x"))
	require.NoError(t, err)
	assert.Equal(t, "https://drive.google.com/file/d/1", link)
	assert.Equal(t, MimeXLSX, up.mime)
}
