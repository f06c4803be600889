package core

import "time"

type (
	VerificationStatus string
	DocumentStatus     string
	DocumentType       string
)

const (
	VerificationApproved VerificationStatus = "APPROVED"
	VerificationPending  VerificationStatus = "PENDING"
	VerificationRejected VerificationStatus = "REJECTED"
)

const (
	DocumentApproved DocumentStatus = "APPROVED"
	DocumentPending  DocumentStatus = "PENDING"
	DocumentRejected DocumentStatus = "REJECTED"
	DocumentExpired  DocumentStatus = "EXPIRED"
)

const (
	DocNationalID       DocumentType = "NATIONAL_ID"
	DocPassport         DocumentType = "PASSPORT"
	DocProofOfResidence DocumentType = "PROOF_OF_RESIDENCE"
	DocEmploymentLetter DocumentType = "EMPLOYMENT_LETTER"
)

func (s VerificationStatus) Label() string {
	if s == VerificationPending {
		return "Pending Review"
	}
	return humanize(string(s))
}

func (s DocumentStatus) Label() string {
	if s == DocumentPending {
		return "Pending Review"
	}
	return humanize(string(s))
}

func (t DocumentType) Label() string { return humanize(string(t)) }

type KYCDocument struct {
	ID              int64          `json:"id"`
	DocumentType    DocumentType   `json:"document_type"`
	Status          DocumentStatus `json:"status"`
	FileName        string         `json:"file_name"`
	FileSize        int64          `json:"file_size"`
	DownloadURL     string         `json:"document_upload"`
	RejectionReason string         `json:"rejection_reason"`
	CreatedAt       time.Time      `json:"created_at"`
	ReviewedAt      *time.Time     `json:"reviewed_at"`
}

type KYCRecord struct {
	VerificationStatus VerificationStatus `json:"verification_status"`
	UserFullName       string             `json:"user_full_name"`
	Documents          []KYCDocument      `json:"documents"`
	ReviewNotes        string             `json:"review_notes"`
	CreatedAt          time.Time          `json:"created_at"`
	VerifiedAt         *time.Time         `json:"verified_at"`
}

// Document returns the document with the given id.
func (r *KYCRecord) Document(id int64) (*KYCDocument, bool) {
	for i := range r.Documents {
		if r.Documents[i].ID == id {
			return &r.Documents[i], true
		}
	}
	return nil, false
}

// Upload is a file picked by the user, held in memory until submission.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

func (u Upload) Size() int64 { return int64(len(u.Data)) }

type DocumentUpload struct {
	Type DocumentType
	File Upload
}

// KYCSubmission is the onboarding payload: personal details plus documents.
// Documents are paired by index when encoded.
type KYCSubmission struct {
	IDNumber    string
	KinName     string
	KinContact  string
	Occupation  string
	DateOfBirth string
	Address     string
	Documents   []DocumentUpload
}
