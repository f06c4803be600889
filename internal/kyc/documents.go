package kyc

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"evergreen/internal/core"
)

// Requirement describes one document slot of the onboarding form.
type Requirement struct {
	Type     core.DocumentType
	Label    string
	Required bool
}

// Requirements lists the onboarding slots in submission order.
var Requirements = []Requirement{
	{Type: core.DocNationalID, Label: "National ID", Required: true},
	{Type: core.DocPassport, Label: "Passport Photo", Required: true},
	{Type: core.DocProofOfResidence, Label: "Proof of Residence"},
	{Type: core.DocEmploymentLetter, Label: "Employment Letter"},
}

// RequirementFor looks up the slot for a document type.
func RequirementFor(t core.DocumentType) (Requirement, bool) {
	for _, r := range Requirements {
		if r.Type == t {
			return r, true
		}
	}
	return Requirement{}, false
}

// FilePolicy bounds what a user may attach.
type FilePolicy struct {
	MaxSize     int64
	MIMETypes   []string
	Extensions  []string
	SizeMessage string
	TypeMessage string
}

const mib = 1 << 20

// OnboardingPolicy applies to files picked during onboarding.
var OnboardingPolicy = FilePolicy{
	MaxSize: 5 * mib,
	MIMETypes: []string{
		"application/pdf",
		"image/jpeg",
		"image/png",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	},
	Extensions:  []string{".pdf", ".jpg", ".jpeg", ".png", ".doc", ".docx"},
	SizeMessage: "File size exceeds 5MB limit",
	TypeMessage: "Invalid file type. Use PDF, JPG, PNG, DOC, or DOCX",
}

// ReuploadPolicy applies to replacing a single submitted document.
var ReuploadPolicy = FilePolicy{
	MaxSize:     10 * mib,
	MIMETypes:   []string{"application/pdf", "image/jpeg", "image/png"},
	Extensions:  []string{".pdf", ".jpg", ".jpeg", ".png"},
	SizeMessage: "File size must be less than 10MB",
	TypeMessage: "Invalid file type. Use PDF, JPG or PNG",
}

// Check validates up against the policy and returns it with ContentType set
// to the sniffed type. Content that cannot be identified falls back to the
// extension.
func (p FilePolicy) Check(up core.Upload) (core.Upload, error) {
	if up.Size() == 0 {
		return up, errors.New("Please select a file")
	}
	if up.Size() > p.MaxSize {
		return up, errors.New(p.SizeMessage)
	}
	ext := strings.ToLower(filepath.Ext(up.FileName))
	if !contains(p.Extensions, ext) {
		return up, errors.New(p.TypeMessage)
	}

	detected := mimetype.Detect(up.Data)
	for m := detected; m != nil; m = m.Parent() {
		if p.allows(m) {
			up.ContentType = m.String()
			return up, nil
		}
	}
	if detected.Is("application/octet-stream") {
		if byExt := mimetype.Lookup(extensionMIME[ext]); byExt != nil && p.allows(byExt) {
			up.ContentType = byExt.String()
			return up, nil
		}
	}
	return up, errors.New(p.TypeMessage)
}

func (p FilePolicy) allows(m *mimetype.MIME) bool {
	for _, t := range p.MIMETypes {
		if m.Is(t) {
			return true
		}
	}
	return false
}

var extensionMIME = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
