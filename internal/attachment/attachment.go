// Package attachment stores uploaded files as opaque handles and removes the
// ones nothing references anymore.
package attachment

import (
	"context"
	"mime"
	"strings"

	"github.com/rpggio/teamwork/internal/domain/shared"
)

var (
	// ErrBlobNotFound indicates the handle does not name a stored blob.
	ErrBlobNotFound = shared.New("attachment", shared.ErrNotFound, "blob not found")
	// ErrInvalidHandle indicates a handle that is not a plain file name.
	ErrInvalidHandle = shared.New("attachment", shared.ErrValidation, "invalid attachment handle")
	// ErrContentTypeNotAllowed indicates a file rejected by a Policy.
	ErrContentTypeNotAllowed = shared.New("attachment", shared.ErrValidation, "content type not allowed")
	// ErrEmptyFile indicates a file without data.
	ErrEmptyFile = shared.New("attachment", shared.ErrValidation, "file is empty")
	// ErrStoreFailed indicates an I/O failure in the blob store.
	ErrStoreFailed = shared.New("attachment", shared.ErrStorage, "attachment storage failed")
)

// File is one uploaded file.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Store is the blob store contract.
type Store interface {
	// Put stores data and returns its handle.
	Put(ctx context.Context, data []byte, contentType string) (string, error)
	// Delete removes a blob. A missing handle yields ErrBlobNotFound.
	Delete(ctx context.Context, handle string) error
}

// Policy is a content-type allow-list. Entries may end in "/*".
type Policy struct {
	Name    string
	Allowed []string
}

var (
	// ResultsPolicy admits project result uploads.
	ResultsPolicy = Policy{Name: "results", Allowed: []string{"image/*"}}
	// LogbookPolicy admits logbook attachments.
	LogbookPolicy = Policy{Name: "logbook", Allowed: []string{"image/*", "application/pdf"}}
)

// Allows reports whether contentType matches the allow-list. Parameters such
// as charset are ignored.
func (p Policy) Allows(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	for _, allowed := range p.Allowed {
		if prefix, ok := strings.CutSuffix(allowed, "/*"); ok {
			if strings.HasPrefix(mediaType, prefix+"/") {
				return true
			}
			continue
		}
		if mediaType == allowed {
			return true
		}
	}
	return false
}

// Check validates every file against the policy before anything is stored.
func (p Policy) Check(files []File) error {
	for _, f := range files {
		if len(f.Data) == 0 {
			return shared.Detail(ErrEmptyFile, "%s", f.Name)
		}
		if !p.Allows(f.ContentType) {
			return shared.Detail(ErrContentTypeNotAllowed, "%s (%s) for %s", f.Name, f.ContentType, p.Name)
		}
	}
	return nil
}
