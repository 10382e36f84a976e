package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	domain "github.com/turtacn/leadscore/internal/domain/scoring"
	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/leadscore/pkg/errors"
)

// AcceptedMessage is returned with 201 once a batch is queued.
const AcceptedMessage = "Request accepted for processing"

// BatchSubmitter accepts a batch document location for background scoring.
type BatchSubmitter interface {
	SubmitAsync(ctx context.Context, loc domain.BlobLocation) error
}

// SubmitHandler serves POST /submitAsyncActionService.
type SubmitHandler struct {
	submitter   BatchSubmitter
	maxBodySize int64
	logger      logging.Logger
}

// NewSubmitHandler creates a SubmitHandler. A non-positive maxBodySize
// leaves the request body unbounded.
func NewSubmitHandler(submitter BatchSubmitter, maxBodySize int64, logger logging.Logger) *SubmitHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SubmitHandler{submitter: submitter, maxBodySize: maxBodySize, logger: logger}
}

// AcceptedResponse is the 201 body.
type AcceptedResponse struct {
	Message string `json:"message"`
}

// Submit decodes {bucketName, filename} and hands the location to the
// submitter. The batch completes asynchronously.
func (h *SubmitHandler) Submit(w http.ResponseWriter, r *http.Request) {
	body := r.Body
	if h.maxBodySize > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	}

	var loc domain.BlobLocation
	dec := json.NewDecoder(body)
	if err := dec.Decode(&loc); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, errors.ErrCodeBadRequest, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, errors.ErrCodeBadRequest, "request body must be a JSON object with bucketName and filename")
		return
	}

	if err := h.submitter.SubmitAsync(r.Context(), loc); err != nil {
		h.logger.Warn("submission rejected",
			logging.String("bucket", loc.Bucket),
			logging.String("filename", loc.Filename),
			logging.Err(err),
		)
		writeAppError(w, err)
		return
	}

	h.logger.Info("submission accepted",
		logging.String("bucket", loc.Bucket),
		logging.String("filename", loc.Filename),
	)
	writeJSON(w, http.StatusCreated, AcceptedResponse{Message: AcceptedMessage})
}

//Personal.AI order the ending
