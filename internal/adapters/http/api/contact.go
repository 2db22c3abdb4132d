package api

import (
	"errors"
	"mime"
	"net/http"

	"github.com/goccy/go-json"

	service "github.com/okian/portfolio/internal/app"
	"github.com/okian/portfolio/internal/domain/contact"
	"github.com/okian/portfolio/pkg/logger"
)

const maxContactBody = 64 << 10

// ContactHandler accepts contact form posts.
type ContactHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewContactHandler creates a new contact handler.
func NewContactHandler(deps Dependencies, l logger.Logger) *ContactHandler {
	return &ContactHandler{deps: deps, logger: l}
}

// HandlePostContact handles POST /contact requests. The body is JSON or a
// url-encoded/multipart form with name, email and message fields.
func (h *ContactHandler) HandlePostContact(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxContactBody)
	sub, err := decodeSubmission(r)
	if err != nil {
		h.logger.Warn(r.Context(), "unreadable contact submission",
			logger.String("request_id", RequestIDFromContext(r.Context())),
			logger.Error(err),
		)
		writeJSON(w, http.StatusBadRequest, contact.State{Message: contact.MsgValidationFailed})
		return
	}

	state, err := h.deps.SubmitContact(r.Context(), sub)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, state)
	case errors.Is(err, service.ErrInvalidSubmission):
		writeJSON(w, http.StatusBadRequest, state)
	default:
		writeJSON(w, http.StatusInternalServerError, state)
	}
}

func decodeSubmission(r *http.Request) (contact.Submission, error) {
	var sub contact.Submission

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return sub, WrapKind("api.contact", ErrUnsupportedMediaType, err)
	}

	switch mediaType {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			return sub, WrapKind("api.contact", ErrBadRequest, err)
		}
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return sub, WrapKind("api.contact", ErrBadRequest, err)
		}
		sub = submissionFromForm(r)
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxContactBody); err != nil {
			return sub, WrapKind("api.contact", ErrBadRequest, err)
		}
		sub = submissionFromForm(r)
	default:
		return sub, NewKind("api.contact", ErrUnsupportedMediaType)
	}
	return sub, nil
}

func submissionFromForm(r *http.Request) contact.Submission {
	return contact.Submission{
		Name:    r.PostFormValue("name"),
		Email:   r.PostFormValue("email"),
		Message: r.PostFormValue("message"),
	}
}
