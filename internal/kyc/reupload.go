package kyc

import (
	"context"
	"errors"
	"fmt"

	"evergreen/internal/core"
	"evergreen/internal/log"
	"evergreen/internal/validation"
)

// Messages shown around a document replacement.
const (
	ReuploadSuccessMessage = "Document updated successfully! It will be reviewed shortly."
	ReuploadFailedMessage  = "Failed to update document. Please try again."
	UploadFailedMessage    = "Upload failed. Please try again."
)

var ErrDocumentNotFound = errors.New("kyc: document not found")

// DocumentUpdater replaces one submitted document.
type DocumentUpdater interface {
	UpdateKYCDocument(ctx context.Context, id int64, docType core.DocumentType, file core.Upload) (*core.KYCDocument, error)
}

type Reuploader struct {
	backend DocumentUpdater
	logger  *log.Logger
}

func NewReuploader(backend DocumentUpdater, logger *log.Logger) *Reuploader {
	if logger == nil {
		logger = log.Discard()
	}
	return &Reuploader{backend: backend, logger: logger.WithComponent(log.ComponentKYC)}
}

// Reupload replaces document docID of record. The returned record is a copy
// in which only that document changed; it is back under review (PENDING)
// whatever its previous status.
func (r *Reuploader) Reupload(ctx context.Context, record *core.KYCRecord, docID int64, file core.Upload) (*core.KYCRecord, error) {
	doc, ok := record.Document(docID)
	if !ok {
		return nil, ErrDocumentNotFound
	}
	checked, err := ReuploadPolicy.Check(file)
	if err != nil {
		return nil, validation.FieldErrors{"document_upload": err.Error()}
	}

	updated, err := r.backend.UpdateKYCDocument(ctx, docID, doc.DocumentType, checked)
	if err != nil {
		r.logger.WarnContext(ctx, "Document replacement failed",
			log.NewFields().WithDocument(docID, string(doc.DocumentType)).WithError(err).ToSlice()...)
		return nil, fmt.Errorf("replace document %d: %w", docID, err)
	}

	out := *record
	out.Documents = make([]core.KYCDocument, len(record.Documents))
	copy(out.Documents, record.Documents)
	for i := range out.Documents {
		if out.Documents[i].ID != docID {
			continue
		}
		next := out.Documents[i]
		if updated != nil {
			next = *updated
			next.ID = docID
			if next.DocumentType == "" {
				next.DocumentType = doc.DocumentType
			}
		}
		if next.FileName == "" {
			next.FileName = checked.FileName
			next.FileSize = checked.Size()
		}
		next.Status = core.DocumentPending
		next.RejectionReason = ""
		next.ReviewedAt = nil
		out.Documents[i] = next
	}

	r.logger.InfoContext(ctx, "Document replaced",
		log.FieldDocumentID, docID,
		log.FieldDocumentType, doc.DocumentType)
	return &out, nil
}
