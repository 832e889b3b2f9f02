package upload

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/NishantPriyadarshi063/shopify-frontend/internal/client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	gifBytes = []byte("GIF89a")
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

type fakeUploadAPI struct {
	tickets   int
	uploaded  map[string][]byte
	ticketErr error
	putErr    error
}

func (f *fakeUploadAPI) CreateUploadURL(ctx context.Context, requestID string, meta client.FileMeta) (*client.UploadTicket, error) {
	if f.ticketErr != nil {
		return nil, f.ticketErr
	}
	f.tickets++
	return &client.UploadTicket{
		AttachmentID: "att-1",
		UploadURL:    "https://blob.example/container/" + meta.FileName,
		BlobPath:     "container/" + meta.FileName,
	}, nil
}

func (f *fakeUploadAPI) UploadFile(ctx context.Context, uploadURL, contentType string, body io.Reader) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if f.uploaded == nil {
		f.uploaded = map[string][]byte{}
	}
	f.uploaded[uploadURL] = data
	return nil
}

func TestPolicy_SniffsContentType(t *testing.T) {
	p := DefaultPolicy()

	png := writeTemp(t, "shot.png", pngBytes)
	ct, err := p.CheckFile(png, int64(len(pngBytes)))
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)

	// Extension lies; the bytes decide.
	disguised := writeTemp(t, "shot.png", []byte("plain text, not an image"))
	_, err = p.CheckFile(disguised, 24)
	assert.ErrorIs(t, err, ErrBadFileType)
}

func TestPolicy_SizeAndCountLimits(t *testing.T) {
	p := DefaultPolicy()

	gif := writeTemp(t, "clip.gif", gifBytes)
	_, err := p.CheckFile(gif, p.MaxFileBytes+1)
	assert.ErrorIs(t, err, ErrFileTooLarge)

	assert.NoError(t, p.CheckCount(5))
	assert.ErrorIs(t, p.CheckCount(6), ErrTooManyFiles)
}

func TestUploader_TwoStepFlow(t *testing.T) {
	api := &fakeUploadAPI{}
	u := New(api, DefaultPolicy(), zap.NewNop())

	gif := writeTemp(t, "clip.gif", gifBytes)
	results, err := u.UploadAll(context.Background(), "hr-1", []string{gif})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "att-1", results[0].AttachmentID)
	assert.Equal(t, "image/gif", results[0].ContentType)
	assert.True(t, bytes.Equal(gifBytes, api.uploaded["https://blob.example/container/clip.gif"]))
}

func TestUploader_KeepsGoingPastBadFiles(t *testing.T) {
	api := &fakeUploadAPI{}
	u := New(api, DefaultPolicy(), zap.NewNop())

	text := writeTemp(t, "notes.txt", []byte("just words"))
	gif := writeTemp(t, "clip.gif", gifBytes)
	missing := filepath.Join(t.TempDir(), "nope.png")

	results, err := u.UploadAll(context.Background(), "hr-1", []string{text, gif, missing})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.ErrorIs(t, results[0].Err, ErrBadFileType)
	assert.NoError(t, results[1].Err)
	assert.Error(t, results[2].Err)
	assert.Equal(t, 1, api.tickets)
}

func TestUploader_BatchOverLimitFailsWhole(t *testing.T) {
	api := &fakeUploadAPI{}
	u := New(api, DefaultPolicy(), zap.NewNop())

	paths := make([]string, 6)
	for i := range paths {
		paths[i] = writeTemp(t, "clip.gif", gifBytes)
	}
	_, err := u.UploadAll(context.Background(), "hr-1", paths)
	assert.ErrorIs(t, err, ErrTooManyFiles)
	assert.Zero(t, api.tickets)
}
