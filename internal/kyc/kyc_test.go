package kyc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"evergreen/internal/api"
	"evergreen/internal/core"
	"evergreen/internal/validation"
)

var (
	pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")
	pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	jpgBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
)

func upload(name string, data []byte) core.Upload {
	return core.Upload{FileName: name, Data: data}
}

func validInfo() PersonalInfo {
	return PersonalInfo{
		IDNumber:    "12345678",
		KinName:     "Jane Doe",
		KinContact:  "+254700000000",
		Occupation:  "Engineer",
		DateOfBirth: "1990-04-12",
		Address:     "12 Riverside Drive, Nairobi",
	}
}

type fakeSubmitter struct {
	mu    sync.Mutex
	calls []core.KYCSubmission
	err   error
	block chan struct{}
}

func (f *fakeSubmitter) SubmitKYC(ctx context.Context, sub core.KYCSubmission) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, sub)
	return f.err
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestFilePolicy_Check(t *testing.T) {
	big := make([]byte, 5*mib+1)
	copy(big, pdfBytes)

	tests := []struct {
		name    string
		up      core.Upload
		wantErr string
		wantCT  string
	}{
		{"pdf", upload("id.pdf", pdfBytes), "", "application/pdf"},
		{"png", upload("photo.PNG", pngBytes), "", "image/png"},
		{"jpeg", upload("photo.jpg", jpgBytes), "", "image/jpeg"},
		{"oversize", upload("id.pdf", big), "File size exceeds 5MB limit", ""},
		{"disallowed extension", upload("id.exe", pdfBytes), "Invalid file type. Use PDF, JPG, PNG, DOC, or DOCX", ""},
		{"content does not match", upload("id.pdf", []byte("just some text")), "Invalid file type. Use PDF, JPG, PNG, DOC, or DOCX", ""},
		{"unidentified content uses extension", upload("id.pdf", []byte{0x13, 0x37, 0x00, 0xfe, 0x99}), "", "application/pdf"},
		{"empty", upload("id.pdf", nil), "Please select a file", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OnboardingPolicy.Check(tt.up)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ContentType != tt.wantCT {
				t.Errorf("content type = %q, want %q", got.ContentType, tt.wantCT)
			}
		})
	}
}

func TestReuploadPolicy_RejectsWordAndLargeFiles(t *testing.T) {
	if _, err := ReuploadPolicy.Check(upload("letter.docx", pdfBytes)); err == nil {
		t.Error("docx should not be accepted for re-upload")
	}
	big := make([]byte, 10*mib+1)
	copy(big, pdfBytes)
	_, err := ReuploadPolicy.Check(upload("id.pdf", big))
	if err == nil || err.Error() != "File size must be less than 10MB" {
		t.Errorf("err = %v", err)
	}
	okSize := make([]byte, 6*mib)
	copy(okSize, pdfBytes)
	if _, err := ReuploadPolicy.Check(upload("id.pdf", okSize)); err != nil {
		t.Errorf("6MB pdf should be accepted for re-upload: %v", err)
	}
}

func TestFlow_PersonalInfoGate(t *testing.T) {
	f := NewFlow()
	if err := f.Attach(core.DocNationalID, upload("id.pdf", pdfBytes)); !errors.Is(err, ErrStepLocked) {
		t.Errorf("attach before step 2: err = %v", err)
	}
	if err := f.Back(); !errors.Is(err, ErrNoPreviousStep) {
		t.Errorf("back from step 1: err = %v", err)
	}

	info := validInfo()
	info.KinName = "   "
	info.DateOfBirth = ""
	err := f.SubmitPersonalInfo(info)
	var fe validation.FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want FieldErrors", err)
	}
	if fe.Get("kin_name") != "Next of kin name is required" {
		t.Errorf("kin_name = %q", fe.Get("kin_name"))
	}
	if fe.Get("dob") != "Date of birth is required" {
		t.Errorf("dob = %q", fe.Get("dob"))
	}
	if f.Step() != StepPersonalInfo {
		t.Errorf("step = %s, want personal_info", f.Step())
	}

	info.DateOfBirth = "12/04/1990"
	info.KinName = "Jane"
	err = f.SubmitPersonalInfo(info)
	if !errors.As(err, &fe) || fe.Get("dob") != "Enter a valid date of birth" {
		t.Errorf("bad dob: err = %v", err)
	}

	if err := f.SubmitPersonalInfo(validInfo()); err != nil {
		t.Fatalf("valid info rejected: %v", err)
	}
	if f.Step() != StepDocuments {
		t.Errorf("step = %s, want documents", f.Step())
	}
}

func TestFlow_BackKeepsData(t *testing.T) {
	f := NewFlow()
	if err := f.SubmitPersonalInfo(validInfo()); err != nil {
		t.Fatal(err)
	}
	if err := f.Attach(core.DocNationalID, upload("id.pdf", pdfBytes)); err != nil {
		t.Fatal(err)
	}
	if err := f.Back(); err != nil {
		t.Fatal(err)
	}
	v := f.View()
	if v.Step != StepPersonalInfo || v.Info.IDNumber != "12345678" {
		t.Errorf("view after back = %+v", v)
	}
	if !v.Slots[0].Attached {
		t.Error("attached file should survive going back")
	}
}

func TestFlow_RejectedFileIssuesNoRequest(t *testing.T) {
	f := NewFlow()
	sub := &fakeSubmitter{}
	if err := f.SubmitPersonalInfo(validInfo()); err != nil {
		t.Fatal(err)
	}

	big := make([]byte, 5*mib+1)
	copy(big, pdfBytes)
	err := f.Attach(core.DocNationalID, upload("id.pdf", big))
	var fe validation.FieldErrors
	if !errors.As(err, &fe) || fe.Get("NATIONAL_ID") != "File size exceeds 5MB limit" {
		t.Fatalf("err = %v", err)
	}
	if err := f.Attach(core.DocPassport, upload("photo.gif", []byte("GIF89a"))); err == nil {
		t.Fatal("gif should be rejected")
	}

	v := f.View()
	if v.Slots[0].Attached || v.Slots[1].Attached {
		t.Error("rejected files must not be attached")
	}
	if v.Slots[0].Error == "" {
		t.Error("rejection should be shown on the slot")
	}
	if sub.count() != 0 {
		t.Error("no request may be issued for rejected files")
	}

	err = f.Submit(context.Background(), sub)
	if !errors.As(err, &fe) || fe.Get("NATIONAL_ID") != "National ID is required" || fe.Get("PASSPORT") != "Passport Photo is required" {
		t.Errorf("submit without required docs: err = %v", err)
	}
	if sub.count() != 0 {
		t.Error("submit must be blocked without required documents")
	}
}

func TestFlow_SubmitFailureKeepsFiles(t *testing.T) {
	f := NewFlow()
	sub := &fakeSubmitter{err: &api.APIError{Op: "submit_kyc", Status: 400, Message: "ID number already registered"}}
	if err := f.SubmitPersonalInfo(validInfo()); err != nil {
		t.Fatal(err)
	}
	for _, a := range []struct {
		t  core.DocumentType
		up core.Upload
	}{
		{core.DocEmploymentLetter, upload("letter.pdf", pdfBytes)},
		{core.DocPassport, upload("me.png", pngBytes)},
		{core.DocNationalID, upload("id.jpg", jpgBytes)},
	} {
		if err := f.Attach(a.t, a.up); err != nil {
			t.Fatalf("attach %s: %v", a.t, err)
		}
	}

	if err := f.Submit(context.Background(), sub); err == nil {
		t.Fatal("expected submit error")
	}
	v := f.View()
	if v.Step != StepDocuments {
		t.Errorf("step = %s, want documents", v.Step)
	}
	if v.SubmitError != "ID number already registered" {
		t.Errorf("submit error = %q", v.SubmitError)
	}
	if !v.Slots[0].Attached || !v.Slots[1].Attached || !v.Slots[3].Attached {
		t.Error("files must be kept after a failed submit")
	}

	got := sub.calls[0]
	wantOrder := []core.DocumentType{core.DocNationalID, core.DocPassport, core.DocEmploymentLetter}
	if len(got.Documents) != len(wantOrder) {
		t.Fatalf("documents = %d", len(got.Documents))
	}
	for i, d := range got.Documents {
		if d.Type != wantOrder[i] {
			t.Errorf("document %d = %s, want %s", i, d.Type, wantOrder[i])
		}
	}
	if got.IDNumber != "12345678" || got.DateOfBirth != "1990-04-12" {
		t.Errorf("personal fields = %+v", got)
	}

	sub.err = &api.NetworkError{Op: "submit_kyc", Err: errors.New("refused")}
	_ = f.Submit(context.Background(), sub)
	if v := f.View(); v.SubmitError != api.NetworkErrorMessage {
		t.Errorf("network failure message = %q", v.SubmitError)
	}

	sub.err = nil
	if err := f.Submit(context.Background(), sub); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if f.Step() != StepSubmitted {
		t.Errorf("step = %s, want submitted", f.Step())
	}
	if err := f.Attach(core.DocNationalID, upload("id.pdf", pdfBytes)); !errors.Is(err, ErrStepLocked) {
		t.Errorf("attach after submit: err = %v", err)
	}
}

func TestFlow_DuplicateSubmitRejected(t *testing.T) {
	f := NewFlow()
	sub := &fakeSubmitter{block: make(chan struct{})}
	if err := f.SubmitPersonalInfo(validInfo()); err != nil {
		t.Fatal(err)
	}
	_ = f.Attach(core.DocNationalID, upload("id.pdf", pdfBytes))
	_ = f.Attach(core.DocPassport, upload("me.png", pngBytes))

	done := make(chan error, 1)
	go func() { done <- f.Submit(context.Background(), sub) }()

	deadline := time.Now().Add(2 * time.Second)
	for !f.View().Submitting {
		if time.Now().After(deadline) {
			t.Fatal("first submit never started")
		}
		time.Sleep(time.Millisecond)
	}
	if v := f.View(); v.CanSubmit() {
		t.Error("submit must be disabled while in flight")
	}
	if err := f.Submit(context.Background(), sub); !errors.Is(err, ErrSubmitInProgress) {
		t.Errorf("second submit: err = %v", err)
	}

	close(sub.block)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if sub.count() != 1 {
		t.Errorf("submit calls = %d, want 1", sub.count())
	}
}

func TestFlow_Remove(t *testing.T) {
	f := NewFlow()
	_ = f.SubmitPersonalInfo(validInfo())
	_ = f.Attach(core.DocPassport, upload("me.png", pngBytes))
	if err := f.Remove(core.DocPassport); err != nil {
		t.Fatal(err)
	}
	if f.View().Slots[1].Attached {
		t.Error("passport should be detached")
	}
}

func TestDraftStore(t *testing.T) {
	d := NewDraftStore(10, time.Minute)
	f := d.Flow("s1")
	if f != d.Flow("s1") {
		t.Error("same session should get the same draft")
	}
	if f == d.Flow("s2") {
		t.Error("sessions must not share drafts")
	}
	d.Discard("s1")
	if _, ok := d.Peek("s1"); ok {
		t.Error("discarded draft still present")
	}
}

type fakeUpdater struct {
	calls int
	doc   *core.KYCDocument
	err   error
}

func (f *fakeUpdater) UpdateKYCDocument(ctx context.Context, id int64, docType core.DocumentType, file core.Upload) (*core.KYCDocument, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

func record() *core.KYCRecord {
	reviewed := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	return &core.KYCRecord{
		VerificationStatus: core.VerificationRejected,
		Documents: []core.KYCDocument{
			{ID: 1, DocumentType: core.DocNationalID, Status: core.DocumentApproved, ReviewedAt: &reviewed},
			{ID: 2, DocumentType: core.DocPassport, Status: core.DocumentRejected, RejectionReason: "Blurry", ReviewedAt: &reviewed},
			{ID: 3, DocumentType: core.DocProofOfResidence, Status: core.DocumentExpired},
		},
	}
}

func TestReuploader_SetsPendingAndLeavesSiblings(t *testing.T) {
	for _, id := range []int64{1, 2, 3} {
		rec := record()
		before := record()
		// the server echo omits the status
		backend := &fakeUpdater{doc: &core.KYCDocument{ID: id, FileName: "new.pdf"}}
		r := NewReuploader(backend, nil)

		out, err := r.Reupload(context.Background(), rec, id, upload("new.pdf", pdfBytes))
		if err != nil {
			t.Fatalf("doc %d: %v", id, err)
		}
		for i, d := range out.Documents {
			if d.ID == id {
				if d.Status != core.DocumentPending {
					t.Errorf("doc %d status = %s, want PENDING", id, d.Status)
				}
				if d.RejectionReason != "" || d.ReviewedAt != nil {
					t.Errorf("doc %d review data should be cleared", id)
				}
				if d.DocumentType != before.Documents[i].DocumentType {
					t.Errorf("doc %d type changed to %s", id, d.DocumentType)
				}
				continue
			}
			if d.Status != before.Documents[i].Status {
				t.Errorf("sibling %d status changed: %s -> %s", d.ID, before.Documents[i].Status, d.Status)
			}
		}
		if rec.Documents[id-1].Status != before.Documents[id-1].Status {
			t.Error("input record must not be mutated")
		}
	}
}

func TestReuploader_Errors(t *testing.T) {
	backend := &fakeUpdater{}
	r := NewReuploader(backend, nil)
	ctx := context.Background()

	if _, err := r.Reupload(ctx, record(), 99, upload("a.pdf", pdfBytes)); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("unknown doc: err = %v", err)
	}
	_, err := r.Reupload(ctx, record(), 1, upload("a.docx", pdfBytes))
	var fe validation.FieldErrors
	if !errors.As(err, &fe) {
		t.Errorf("invalid file: err = %v", err)
	}
	if backend.calls != 0 {
		t.Error("no request for an invalid file")
	}

	backend.err = &api.APIError{Op: "update_kyc_document", Status: 500}
	_, err = r.Reupload(ctx, record(), 1, upload("a.pdf", pdfBytes))
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		t.Errorf("backend failure should wrap the api error, got %v", err)
	}
}
