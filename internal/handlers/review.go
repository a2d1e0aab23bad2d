package handlers

import (
	"context"
	"errors"
	"html/template"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/text/language"

	"listening-review/internal/datasource"
	"listening-review/internal/format"
	"listening-review/internal/middleware"
	"listening-review/internal/render"
	"listening-review/internal/review"
	"listening-review/internal/validate"
)

var (
	answerFields = []validate.Field{
		validate.MustField("answer", `{"required":true,"pattern":"^[A-D]$"}`),
	}
	startFields = []validate.Field{
		validate.MustField("question_id", `{"required":true,"maxLength":18,"pattern":"^[1-9][0-9]*$"}`),
	}
)

type ReviewHandler struct {
	controller    *review.Controller
	renderer      *render.Renderer
	auth          *middleware.JWTAuth
	defaultLocale language.Tag
}

func NewReviewHandler(controller *review.Controller, renderer *render.Renderer, auth *middleware.JWTAuth, defaultLocale language.Tag) *ReviewHandler {
	return &ReviewHandler{
		controller:    controller,
		renderer:      renderer,
		auth:          auth,
		defaultLocale: defaultLocale,
	}
}

// backendContext carries the learner's session cookie to backend calls.
func backendContext(r *http.Request) context.Context {
	return datasource.WithCookies(r.Context(), r.Header.Get("Cookie"))
}

func (h *ReviewHandler) requestLocale(r *http.Request) render.Locale {
	return h.renderer.Locale(format.Negotiate(r.Header.Get("Accept-Language"), h.defaultLocale))
}

// Page serves the review screen. With ?live=1 the sections arrive over the
// WebSocket; otherwise every section is loaded before the page is written.
func (h *ReviewHandler) Page(w http.ResponseWriter, r *http.Request) {
	tag := format.Negotiate(r.Header.Get("Accept-Language"), h.defaultLocale)
	live := r.URL.Query().Get("live") == "1"

	screen, err := h.controller.NewScreen(r.Context(), tag)
	if err != nil {
		log.Printf("Failed to create review screen: %v", err)
		h.Fail(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred. Please reload the page.")
		return
	}

	token, err := h.auth.GenerateScreenToken(screen.ID)
	if err != nil {
		log.Printf("Failed to sign screen token: %v", err)
		h.Fail(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred. Please reload the page.")
		return
	}

	if !live {
		if err := h.controller.Activate(backendContext(r), screen, nil); err != nil {
			if r.Context().Err() != nil {
				return
			}
			log.Printf("Failed to load review screen %s: %v", screen.ID, err)
			h.Fail(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred. Please reload the page.")
			return
		}
	}

	html, err := h.renderer.Page(render.PageView{Screen: screen, Token: token, Live: live})
	if err != nil {
		log.Printf("Failed to render review page: %v", err)
		h.Fail(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred. Please reload the page.")
		return
	}
	writeHTML(w, http.StatusOK, string(html))
}

// ScoreTrend returns the chart series of a loaded screen.
func (h *ReviewHandler) ScoreTrend(w http.ResponseWriter, r *http.Request) {
	screen, err := h.controller.Screen(r.Context(), middleware.GetScreenID(r.Context()))
	if err != nil {
		h.handleError(w, r, err, "An unexpected error occurred. Please reload the page.")
		return
	}
	if !screen.Loaded() {
		writeJSON(w, http.StatusConflict, errorResp("NOT_READY", "Review data is still loading", r))
		return
	}
	writeJSON(w, http.StatusOK, screen.Trend)
}

// OpenQuestion loads a question and returns the re-attempt modal body.
func (h *ReviewHandler) OpenQuestion(w http.ResponseWriter, r *http.Request) {
	questionID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.Fail(w, r, http.StatusBadRequest, "INVALID_ID", "Could not load the question.")
		return
	}

	screen, err := h.controller.OpenQuestion(backendContext(r), middleware.GetScreenID(r.Context()), questionID)
	if err != nil {
		h.handleError(w, r, err, "Could not load the question.")
		return
	}

	html, err := h.renderer.QuestionModal(h.renderer.ScreenLocale(screen), screen.OpenQuestion, middleware.TokenFromRequest(r))
	if err != nil {
		log.Printf("Failed to render question modal: %v", err)
		h.Fail(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Could not load the question.")
		return
	}
	writeHTML(w, http.StatusOK, string(html))
}

func (h *ReviewHandler) CloseQuestion(w http.ResponseWriter, r *http.Request) {
	if _, err := h.controller.CloseQuestion(r.Context(), middleware.GetScreenID(r.Context())); err != nil {
		h.handleError(w, r, err, "An unexpected error occurred. Please reload the page.")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Start registers a review for the open question and sends the learner to it.
func (h *ReviewHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		h.Fail(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Please check your input.")
		return
	}
	if err := validate.Form(r.PostForm, startFields...); err != nil {
		h.failValidation(w, r, err)
		return
	}

	screenID := middleware.GetScreenID(r.Context())
	if _, ok := h.openScreen(w, r, screenID, r.PostForm.Get("question_id")); !ok {
		return
	}

	target, err := h.controller.StartReview(backendContext(r), screenID)
	if err != nil {
		h.handleError(w, r, err, "Could not start the review.")
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]string{"redirect": target})
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Answer records the learner's choice for the open question.
func (h *ReviewHandler) Answer(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		h.Fail(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Please check your input.")
		return
	}
	if err := validate.Form(r.PostForm, answerFields...); err != nil {
		h.failValidation(w, r, err)
		return
	}

	screenID := middleware.GetScreenID(r.Context())
	screen, ok := h.openScreen(w, r, screenID, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	correct, err := h.controller.SubmitAnswer(backendContext(r), screenID, r.PostForm.Get("answer"))
	if err != nil {
		h.handleError(w, r, err, "Could not save your answer.")
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]bool{"is_correct": correct})
		return
	}

	l := h.renderer.ScreenLocale(screen)
	var html template.HTML
	if correct {
		html, err = h.renderer.Toast(l, render.ToastSuccess, "Correct! Nice work.")
	} else {
		html, err = h.renderer.Toast(l, render.ToastInfo, "Not quite. The correct answer is %s.", screen.OpenQuestion.CorrectAnswer)
	}
	if err != nil {
		log.Printf("Failed to render answer toast: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeHTML(w, http.StatusOK, string(html))
}

// Leave discards the screen once the learner navigates away.
func (h *ReviewHandler) Leave(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Leave(r.Context(), middleware.GetScreenID(r.Context())); err != nil {
		log.Printf("Failed to discard review screen: %v", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// openScreen loads the screen and checks that rawID names the question
// open in its modal. It writes the failure response itself.
func (h *ReviewHandler) openScreen(w http.ResponseWriter, r *http.Request, screenID uuid.UUID, rawID string) (*review.Screen, bool) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		h.Fail(w, r, http.StatusBadRequest, "INVALID_ID", "Please check your input.")
		return nil, false
	}
	screen, err := h.controller.Screen(r.Context(), screenID)
	if err != nil {
		h.handleError(w, r, err, "An unexpected error occurred. Please reload the page.")
		return nil, false
	}
	if screen.State != review.StateQuestionModalOpen || screen.OpenQuestion == nil || screen.OpenQuestion.ID != id {
		log.Printf("Review screen %s: question %d is not open", screenID, id)
		h.Fail(w, r, http.StatusConflict, "INVALID_STATE", "This page has expired. Please reload.")
		return nil, false
	}
	return screen, true
}

func (h *ReviewHandler) failValidation(w http.ResponseWriter, r *http.Request, err error) {
	var errs validate.Errors
	if errors.As(err, &errs) {
		log.Printf("Form validation failed: %v", errs)
		if wantsJSON(r) {
			writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", h.requestLocale(r).T("Please check your input."), errs.Fields(), r))
			return
		}
	}
	h.Fail(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Please check your input.")
}

// handleError maps controller and backend errors to a response. message is
// shown for backend failures.
func (h *ReviewHandler) handleError(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, context.Canceled):
		return
	case errors.Is(err, review.ErrScreenNotFound):
		h.Fail(w, r, http.StatusGone, "SCREEN_EXPIRED", "This page has expired. Please reload.")
	case errors.Is(err, review.ErrInvalidTransition):
		h.Fail(w, r, http.StatusConflict, "INVALID_STATE", "This page has expired. Please reload.")
	case errors.Is(err, review.ErrInvalidAnswer):
		h.Fail(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Please check your input.")
	case errors.Is(err, datasource.ErrInvalidID):
		h.Fail(w, r, http.StatusBadRequest, "INVALID_ID", message)
	case errors.Is(err, datasource.ErrFetchFailed):
		log.Printf("Backend call failed (%s): %v", datasource.KindOf(err), err)
		h.Fail(w, r, http.StatusBadGateway, "BACKEND_ERROR", message)
	default:
		log.Printf("Unexpected review error: %v", err)
		h.Fail(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred. Please reload the page.")
	}
}

// Fail answers with a translated toast fragment, or the JSON error envelope
// for JSON callers. It is also the error writer for the screen middleware.
func (h *ReviewHandler) Fail(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	l := h.requestLocale(r)
	if wantsJSON(r) {
		writeJSON(w, status, errorResp(code, l.T(message), r))
		return
	}
	html, err := h.renderer.Toast(l, render.ToastDanger, message)
	if err != nil {
		log.Printf("Failed to render error toast: %v", err)
		writeJSON(w, status, errorResp(code, l.T(message), r))
		return
	}
	writeHTML(w, status, string(html))
}
