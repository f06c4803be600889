package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"evergreen/internal/core"
)

// GetKYC returns the caller's KYC record. ErrNotFound means nothing has been
// submitted yet.
func (c *Client) GetKYC(ctx context.Context) (*core.KYCRecord, error) {
	var rec core.KYCRecord
	err := c.do(ctx, request{
		op:     "get_kyc",
		method: http.MethodGet,
		path:   "auth/kyc/",
		expect: []int{http.StatusOK},
	}, &rec)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SubmitKYC uploads personal details and documents as one multipart form.
// document_types and documents are repeated fields paired by position.
func (c *Client) SubmitKYC(ctx context.Context, sub core.KYCSubmission) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"id_no", sub.IDNumber},
		{"kin_name", sub.KinName},
		{"kin_contact", sub.KinContact},
		{"occupation", sub.Occupation},
		{"dob", sub.DateOfBirth},
		{"address", sub.Address},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return fmt.Errorf("api submit_kyc: write field %s: %w", f.name, err)
		}
	}
	for _, doc := range sub.Documents {
		if err := mw.WriteField("document_types", string(doc.Type)); err != nil {
			return fmt.Errorf("api submit_kyc: write document type: %w", err)
		}
		if err := writeFile(mw, "documents", doc.File); err != nil {
			return fmt.Errorf("api submit_kyc: write document %s: %w", doc.Type, err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("api submit_kyc: close form: %w", err)
	}

	return c.do(ctx, request{
		op:          "submit_kyc",
		method:      http.MethodPost,
		path:        "auth/kyc/",
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, nil)
}

// UpdateKYCDocument replaces the file of one document.
func (c *Client) UpdateKYCDocument(ctx context.Context, id int64, docType core.DocumentType, file core.Upload) (*core.KYCDocument, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := writeFile(mw, "document_upload", file); err != nil {
		return nil, fmt.Errorf("api update_kyc_document: write file: %w", err)
	}
	if err := mw.WriteField("document_type", string(docType)); err != nil {
		return nil, fmt.Errorf("api update_kyc_document: write type: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("api update_kyc_document: close form: %w", err)
	}

	var doc core.KYCDocument
	err := c.do(ctx, request{
		op:          "update_kyc_document",
		method:      http.MethodPatch,
		path:        "auth/kyc/documents/" + strconv.FormatInt(id, 10) + "/",
		body:        &buf,
		contentType: mw.FormDataContentType(),
		expect:      []int{http.StatusOK},
	}, &doc)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFile(mw *multipart.Writer, field string, file core.Upload) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(file.FileName)))
	ct := file.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(file.Data)
	return err
}
