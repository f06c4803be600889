// Package kyc drives the two-step identity verification onboarding and the
// replacement of individual submitted documents.
package kyc

import (
	"context"
	"errors"
	"strings"
	"sync"

	"evergreen/internal/api"
	"evergreen/internal/core"
	"evergreen/internal/validation"
)

type Step int

const (
	StepPersonalInfo Step = iota + 1
	StepDocuments
	StepSubmitted
)

func (s Step) String() string {
	switch s {
	case StepPersonalInfo:
		return "personal_info"
	case StepDocuments:
		return "documents"
	case StepSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

var (
	ErrStepLocked       = errors.New("kyc: action not allowed at this step")
	ErrNoPreviousStep   = errors.New("kyc: already at the first step")
	ErrSubmitInProgress = errors.New("kyc: submission already in progress")
)

// SubmitFailedMessage is shown when the backend rejected a submission
// without a message of its own.
const SubmitFailedMessage = "Submission failed"

// PersonalInfo is step one of onboarding.
type PersonalInfo struct {
	IDNumber    string `form:"id_no" validate:"required"`
	KinName     string `form:"kin_name" validate:"required"`
	KinContact  string `form:"kin_contact" validate:"required"`
	Occupation  string `form:"occupation" validate:"required"`
	DateOfBirth string `form:"dob" validate:"required,datetime=2006-01-02"`
	Address     string `form:"address" validate:"required"`
}

var personalMessages = validation.Messages{
	"id_no":        "National ID is required",
	"kin_name":     "Next of kin name is required",
	"kin_contact":  "Next of kin contact is required",
	"occupation":   "Occupation is required",
	"dob.required": "Date of birth is required",
	"dob.datetime": "Enter a valid date of birth",
	"address":      "Address is required",
}

func (p PersonalInfo) normalize() PersonalInfo {
	p.IDNumber = strings.TrimSpace(p.IDNumber)
	p.KinName = strings.TrimSpace(p.KinName)
	p.KinContact = strings.TrimSpace(p.KinContact)
	p.Occupation = strings.TrimSpace(p.Occupation)
	p.DateOfBirth = strings.TrimSpace(p.DateOfBirth)
	p.Address = strings.TrimSpace(p.Address)
	return p
}

// Submitter sends the assembled onboarding payload.
type Submitter interface {
	SubmitKYC(ctx context.Context, sub core.KYCSubmission) error
}

// Flow is one user's onboarding draft. It is safe for concurrent use.
type Flow struct {
	mu         sync.Mutex
	step       Step
	info       PersonalInfo
	docs       map[core.DocumentType]core.Upload
	errors     validation.FieldErrors
	submitErr  string
	submitting bool
}

func NewFlow() *Flow {
	return &Flow{
		step: StepPersonalInfo,
		docs: make(map[core.DocumentType]core.Upload),
	}
}

// SubmitPersonalInfo validates step one and moves to the documents step.
func (f *Flow) SubmitPersonalInfo(info PersonalInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step == StepSubmitted {
		return ErrStepLocked
	}
	info = info.normalize()
	f.info = info
	if errs := validation.Struct(info, personalMessages); errs != nil {
		f.errors = errs
		f.step = StepPersonalInfo
		return errs
	}
	f.errors = nil
	f.step = StepDocuments
	return nil
}

// Back returns from the documents step to personal info, keeping all data.
func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.step {
	case StepDocuments:
		f.step = StepPersonalInfo
		f.errors = nil
		f.submitErr = ""
		return nil
	case StepPersonalInfo:
		return ErrNoPreviousStep
	default:
		return ErrStepLocked
	}
}

// Attach validates a picked file and holds it for submission. A rejected
// file is reported under its document type and replaces nothing.
func (f *Flow) Attach(docType core.DocumentType, up core.Upload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepDocuments {
		return ErrStepLocked
	}
	if f.errors == nil {
		f.errors = validation.FieldErrors{}
	}
	field := string(docType)
	if _, ok := RequirementFor(docType); !ok {
		return validation.FieldErrors{field: "Unknown document type"}
	}
	checked, err := OnboardingPolicy.Check(up)
	if err != nil {
		f.errors[field] = err.Error()
		return validation.FieldErrors{field: err.Error()}
	}
	f.docs[docType] = checked
	delete(f.errors, field)
	return nil
}

// Remove detaches the file for docType.
func (f *Flow) Remove(docType core.DocumentType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepDocuments {
		return ErrStepLocked
	}
	delete(f.docs, docType)
	delete(f.errors, string(docType))
	return nil
}

func (f *Flow) missing() validation.FieldErrors {
	errs := validation.FieldErrors{}
	for _, r := range Requirements {
		if _, ok := f.docs[r.Type]; r.Required && !ok {
			errs[string(r.Type)] = r.Label + " is required"
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Submit sends personal info and attached documents. On failure the flow
// stays on the documents step with its files; on success it is finished.
func (f *Flow) Submit(ctx context.Context, s Submitter) error {
	f.mu.Lock()
	if f.step != StepDocuments {
		f.mu.Unlock()
		return ErrStepLocked
	}
	if f.submitting {
		f.mu.Unlock()
		return ErrSubmitInProgress
	}
	if errs := f.missing(); errs != nil {
		f.errors = errs
		f.mu.Unlock()
		return errs
	}
	sub := f.submissionLocked()
	f.submitting = true
	f.submitErr = ""
	f.mu.Unlock()

	err := s.SubmitKYC(ctx, sub)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	if err != nil {
		f.submitErr = api.UserMessage(err, SubmitFailedMessage)
		return err
	}
	f.step = StepSubmitted
	f.docs = make(map[core.DocumentType]core.Upload)
	f.errors = nil
	return nil
}

func (f *Flow) submissionLocked() core.KYCSubmission {
	sub := core.KYCSubmission{
		IDNumber:    f.info.IDNumber,
		KinName:     f.info.KinName,
		KinContact:  f.info.KinContact,
		Occupation:  f.info.Occupation,
		DateOfBirth: f.info.DateOfBirth,
		Address:     f.info.Address,
	}
	for _, r := range Requirements {
		if up, ok := f.docs[r.Type]; ok {
			sub.Documents = append(sub.Documents, core.DocumentUpload{Type: r.Type, File: up})
		}
	}
	return sub
}

// Slot is a document requirement with its attached file, if any.
type Slot struct {
	Requirement
	Attached bool
	FileName string
	Size     int64
	Error    string
}

// View is a point-in-time copy of the flow for rendering.
type View struct {
	Step        Step
	Info        PersonalInfo
	Slots       []Slot
	Errors      validation.FieldErrors
	SubmitError string
	Submitting  bool
}

func (v View) CanSubmit() bool {
	if v.Submitting {
		return false
	}
	for _, s := range v.Slots {
		if s.Required && !s.Attached {
			return false
		}
	}
	return true
}

func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := View{
		Step:        f.step,
		Info:        f.info,
		Errors:      validation.FieldErrors{},
		SubmitError: f.submitErr,
		Submitting:  f.submitting,
	}
	for k, msg := range f.errors {
		v.Errors[k] = msg
	}
	for _, r := range Requirements {
		slot := Slot{Requirement: r, Error: f.errors[string(r.Type)]}
		if up, ok := f.docs[r.Type]; ok {
			slot.Attached = true
			slot.FileName = up.FileName
			slot.Size = up.Size()
		}
		v.Slots = append(v.Slots, slot)
	}
	return v
}

func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}
