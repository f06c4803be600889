package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"evergreen/internal/api"
	"evergreen/internal/core"
	"evergreen/internal/kyc"
	"evergreen/internal/log"
	"evergreen/internal/validation"
	"evergreen/internal/viewstate"
)

type kycDocumentsView struct {
	PageData
	Record viewstate.State[*core.KYCRecord]
	// Missing means onboarding was never submitted.
	Missing bool
	// Target is the document the last upload was for.
	Target int64
	Errors validation.FieldErrors
}

func (s *Server) handleKYCDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view := kycDocumentsView{PageData: s.page(r, "KYC Profile", "kyc")}

	record, err := s.backend.GetKYC(ctx)
	switch {
	case err == nil:
		view.Record = viewstate.Ready(record)
	case s.handleUnauthenticated(w, r, err):
		return
	case errors.Is(err, api.ErrNotFound):
		view.Missing = true
		view.Record = viewstate.Ready[*core.KYCRecord](nil)
	default:
		s.logPanelError(ctx, log.ComponentKYC, log.OpRead, err)
		view.Record = viewstate.Error[*core.KYCRecord](api.UserMessage(err, "Failed to load KYC profile"))
	}

	if isPartialRequest(r) {
		s.render.Fragment(w, r, "kyc_documents", "kyc_panel", http.StatusOK, view)
		return
	}
	s.render.Page(w, r, "kyc_documents", http.StatusOK, view)
}

// handleReuploadDocument replaces one submitted document and re-renders the
// document list with that entry back under review.
func (s *Server) handleReuploadDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	docID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || docID <= 0 {
		NotFoundError("Document not found").Write(w)
		return
	}

	limitBody(w, r)
	if err := parseForm(r); err != nil {
		ErrorResponse(http.StatusRequestEntityTooLarge, "File size exceeds 10MB limit").Write(w)
		return
	}

	view := kycDocumentsView{PageData: s.page(r, "KYC Profile", "kyc"), Target: docID}

	upload, err := readUpload(r, "document_upload", kyc.ReuploadPolicy.MaxSize)
	if err != nil {
		msg := kyc.UploadFailedMessage
		if errors.Is(err, ErrNoFile) {
			msg = "Please choose a file to upload"
		}
		view.Errors = validation.FieldErrors{"document_upload": msg}
		s.renderKYCAfterUpload(w, r, &view, http.StatusUnprocessableEntity)
		return
	}

	record, err := s.backend.GetKYC(ctx)
	if err != nil {
		if s.handleUnauthenticated(w, r, err) {
			return
		}
		s.logPanelError(ctx, log.ComponentKYC, log.OpRead, err)
		ErrorResponse(http.StatusBadGateway, api.UserMessage(err, kyc.ReuploadFailedMessage)).Write(w)
		return
	}
	view.Record = viewstate.Ready(record)

	updated, err := s.reuploader.Reupload(ctx, record, docID, upload)
	if err != nil {
		if s.handleUnauthenticated(w, r, err) {
			return
		}
		var fieldErrs validation.FieldErrors
		switch {
		case errors.As(err, &fieldErrs):
			view.Errors = fieldErrs
			s.render.Fragment(w, r, "kyc_documents", "kyc_panel", http.StatusUnprocessableEntity, view)
		case errors.Is(err, kyc.ErrDocumentNotFound):
			NotFoundError("Document not found").Write(w)
		default:
			view.Errors = validation.FieldErrors{"document_upload": api.UserMessage(err, kyc.ReuploadFailedMessage)}
			NewHTMXResponse().TriggerErrorNotification(kyc.ReuploadFailedMessage).Headers(w)
			s.render.Fragment(w, r, "kyc_documents", "kyc_panel", http.StatusBadGateway, view)
		}
		return
	}

	doc, _ := updated.Document(docID)
	s.record(ctx, sess, core.ActivityDocumentReupload, doc.DocumentType.Label())
	view.Record = viewstate.Ready(updated)
	view.Flash = successFlash(kyc.ReuploadSuccessMessage)
	NewHTMXResponse().
		TriggerKYCUpdated().
		TriggerSuccessNotification(kyc.ReuploadSuccessMessage).
		Headers(w)
	s.render.Fragment(w, r, "kyc_documents", "kyc_panel", http.StatusOK, view)
}

// renderKYCAfterUpload re-renders the panel for a rejected file, loading the
// record when possible so the list stays visible.
func (s *Server) renderKYCAfterUpload(w http.ResponseWriter, r *http.Request, view *kycDocumentsView, status int) {
	if record, err := s.backend.GetKYC(r.Context()); err == nil {
		view.Record = viewstate.Ready(record)
	} else if s.handleUnauthenticated(w, r, err) {
		return
	} else {
		view.Record = viewstate.Error[*core.KYCRecord](api.UserMessage(err, "Failed to load KYC profile"))
	}
	s.render.Fragment(w, r, "kyc_documents", "kyc_panel", status, *view)
}

type onboardingView struct {
	PageData
	kyc.View
}

// Steps lists the progress indicator entries.
func (v onboardingView) Steps() []kyc.Step {
	return []kyc.Step{kyc.StepPersonalInfo, kyc.StepDocuments}
}

func (s *Server) newOnboardingView(r *http.Request, flow *kyc.Flow) onboardingView {
	return onboardingView{PageData: s.page(r, "Complete your KYC", "kyc"), View: flow.View()}
}

func (s *Server) renderOnboarding(w http.ResponseWriter, r *http.Request, status int, view onboardingView) {
	if isPartialRequest(r) {
		s.render.Fragment(w, r, "kyc_onboarding", "onboarding_panel", status, view)
		return
	}
	s.render.Page(w, r, "kyc_onboarding", status, view)
}

func (s *Server) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	flow := s.drafts.Flow(sess.ID)
	if flow.Step() == kyc.StepSubmitted {
		s.drafts.Discard(sess.ID)
		flow = s.drafts.Flow(sess.ID)
	}
	s.renderOnboarding(w, r, http.StatusOK, s.newOnboardingView(r, flow))
}

func (s *Server) handleOnboardingPersonal(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	if err := parseForm(r); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}
	var info kyc.PersonalInfo
	_ = bindForm(r.PostForm, &info)

	flow := s.drafts.Flow(sess.ID)
	status := http.StatusOK
	if err := flow.SubmitPersonalInfo(info); err != nil {
		status = onboardingStatus(err)
	}
	s.renderOnboarding(w, r, status, s.newOnboardingView(r, flow))
}

func (s *Server) handleOnboardingBack(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	flow := s.drafts.Flow(sess.ID)
	status := http.StatusOK
	if err := flow.Back(); err != nil && !errors.Is(err, kyc.ErrNoPreviousStep) {
		status = onboardingStatus(err)
	}
	s.renderOnboarding(w, r, status, s.newOnboardingView(r, flow))
}

// handleOnboardingAttach validates a picked file locally. Nothing is sent to
// the backend until submit.
func (s *Server) handleOnboardingAttach(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	docType := core.DocumentType(chi.URLParam(r, "type"))
	flow := s.drafts.Flow(sess.ID)

	limitBody(w, r)
	if err := parseForm(r); err != nil {
		ErrorResponse(http.StatusRequestEntityTooLarge, kyc.OnboardingPolicy.SizeMessage).Write(w)
		return
	}
	upload, err := readUpload(r, "document", kyc.OnboardingPolicy.MaxSize)
	if err != nil {
		if errors.Is(err, ErrNoFile) {
			view := s.newOnboardingView(r, flow)
			for i := range view.Slots {
				if view.Slots[i].Type == docType {
					view.Slots[i].Error = "Please choose a file to upload"
				}
			}
			s.renderOnboarding(w, r, http.StatusUnprocessableEntity, view)
			return
		}
		ErrorResponse(http.StatusBadRequest, kyc.UploadFailedMessage).Write(w)
		return
	}

	status := http.StatusOK
	if err := flow.Attach(docType, upload); err != nil {
		status = onboardingStatus(err)
	} else {
		log.FromContext(r.Context()).WithComponent(log.ComponentKYC).DebugContext(r.Context(), "Document attached",
			log.FieldDocumentType, docType,
			"size", upload.Size())
	}
	s.renderOnboarding(w, r, status, s.newOnboardingView(r, flow))
}

func (s *Server) handleOnboardingRemove(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	flow := s.drafts.Flow(sess.ID)
	status := http.StatusOK
	if err := flow.Remove(core.DocumentType(chi.URLParam(r, "type"))); err != nil {
		status = onboardingStatus(err)
	}
	s.renderOnboarding(w, r, status, s.newOnboardingView(r, flow))
}

func (s *Server) handleOnboardingSubmit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.currentSession(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	flow := s.drafts.Flow(sess.ID)

	err := flow.Submit(ctx, s.backend)
	if err == nil {
		log.FromContext(ctx).WithComponent(log.ComponentKYC).InfoContext(ctx, "KYC submitted",
			log.FieldUserID, sess.User.ID)
		s.drafts.Discard(sess.ID)
		s.record(ctx, sess, core.ActivityKYCSubmitted, "")
		redirect(w, r, dashboardPath)
		return
	}
	if s.handleUnauthenticated(w, r, err) {
		return
	}

	var fieldErrs validation.FieldErrors
	if !errors.As(err, &fieldErrs) && !errors.Is(err, kyc.ErrStepLocked) && !errors.Is(err, kyc.ErrSubmitInProgress) {
		s.logPanelError(ctx, log.ComponentKYC, log.OpUpload, err)
	}
	s.renderOnboarding(w, r, onboardingStatus(err), s.newOnboardingView(r, flow))
}

func onboardingStatus(err error) int {
	var fieldErrs validation.FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		return http.StatusUnprocessableEntity
	case errors.Is(err, kyc.ErrSubmitInProgress), errors.Is(err, kyc.ErrStepLocked):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}
