// Package upload validates attachment files against the help-desk policy
// and pushes them to pre-signed blob locations. File bytes go straight to
// blob storage; only metadata passes through the API.
package upload

import (
	"errors"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrTooManyFiles = errors.New("too many files")
	ErrFileTooLarge = errors.New("file too large")
	ErrBadFileType  = errors.New("file type not allowed")
)

// Policy constrains an attachment batch: how many files, how large each
// may be and which content types are accepted. Content type is decided by
// sniffing the bytes, never by the file extension.
type Policy struct {
	MaxFiles     int
	MaxFileBytes int64
	MimeTypes    []string
}

// DefaultPolicy matches what the backend enforces for help-request
// attachments.
func DefaultPolicy() Policy {
	return Policy{
		MaxFiles:     5,
		MaxFileBytes: 10 << 20,
		MimeTypes: []string{
			"image/jpeg", "image/png", "image/webp", "image/gif",
			"video/mp4", "video/webm",
		},
	}
}

// CheckCount rejects batches over the file limit.
func (p Policy) CheckCount(n int) error {
	if p.MaxFiles > 0 && n > p.MaxFiles {
		return fmt.Errorf("%w: %d files, limit is %d", ErrTooManyFiles, n, p.MaxFiles)
	}
	return nil
}

// CheckFile validates one file's size and sniffed content type, returning
// the detected MIME type on success.
func (p Policy) CheckFile(path string, size int64) (string, error) {
	if p.MaxFileBytes > 0 && size > p.MaxFileBytes {
		return "", fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrFileTooLarge, path, size, p.MaxFileBytes)
	}
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", fmt.Errorf("could not sniff %s: %w", path, err)
	}
	for _, allowed := range p.MimeTypes {
		if mtype.Is(allowed) {
			return mtype.String(), nil
		}
	}
	return "", fmt.Errorf("%w: %s detected as %s", ErrBadFileType, path, mtype.String())
}
