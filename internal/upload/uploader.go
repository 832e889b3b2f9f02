package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/NishantPriyadarshi063/shopify-frontend/internal/client"

	"go.uber.org/zap"
)

// API is the slice of the backend client the uploader needs.
type API interface {
	CreateUploadURL(ctx context.Context, requestID string, meta client.FileMeta) (*client.UploadTicket, error)
	UploadFile(ctx context.Context, uploadURL, contentType string, body io.Reader) error
}

// Result records the outcome for one file in a batch. A batch keeps going
// past individual failures so the caller can report per file.
type Result struct {
	Path         string
	AttachmentID string
	BlobPath     string
	ContentType  string
	Err          error
}

// Uploader attaches local files to a help request via the two-step
// ticket-then-PUT flow.
type Uploader struct {
	api    API
	policy Policy
	log    *zap.Logger
}

func New(api API, policy Policy, log *zap.Logger) *Uploader {
	return &Uploader{api: api, policy: policy, log: log}
}

// UploadAll validates and uploads the batch, returning one Result per
// input path in order. The batch-level count check fails the whole call;
// everything per file is reported in the Result.
func (u *Uploader) UploadAll(ctx context.Context, requestID string, paths []string) ([]Result, error) {
	if err := u.policy.CheckCount(len(paths)); err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(paths))
	for _, p := range paths {
		results = append(results, u.uploadOne(ctx, requestID, p))
	}
	return results, nil
}

func (u *Uploader) uploadOne(ctx context.Context, requestID, path string) Result {
	res := Result{Path: path}

	info, err := os.Stat(path)
	if err != nil {
		res.Err = fmt.Errorf("could not read %s: %w", path, err)
		return res
	}
	contentType, err := u.policy.CheckFile(path, info.Size())
	if err != nil {
		res.Err = err
		return res
	}
	res.ContentType = contentType

	ticket, err := u.api.CreateUploadURL(ctx, requestID, client.FileMeta{
		FileName:      filepath.Base(path),
		ContentType:   contentType,
		FileSizeBytes: info.Size(),
	})
	if err != nil {
		res.Err = fmt.Errorf("could not get upload location for %s: %w", path, err)
		return res
	}

	f, err := os.Open(path)
	if err != nil {
		res.Err = fmt.Errorf("could not open %s: %w", path, err)
		return res
	}
	defer f.Close()

	if err := u.api.UploadFile(ctx, ticket.UploadURL, contentType, f); err != nil {
		res.Err = fmt.Errorf("upload of %s failed: %w", path, err)
		return res
	}

	res.AttachmentID = ticket.AttachmentID
	res.BlobPath = ticket.BlobPath
	u.log.Info("Uploaded attachment",
		zap.String("request_id", requestID),
		zap.String("file", filepath.Base(path)),
		zap.String("content_type", contentType),
		zap.Int64("size", info.Size()))
	return res
}
