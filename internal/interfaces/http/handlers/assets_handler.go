package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/turtacn/leadscore/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/leadscore/pkg/errors"
)

const (
	serviceDefinitionFile = "service-definition.json"
	iconFile              = "logo.png"
)

// AssetsHandler serves the static integration endpoints: the service
// definition, the icons and the status probe.
type AssetsHandler struct {
	dir    string
	logger logging.Logger
}

// NewAssetsHandler creates an AssetsHandler reading files from dir.
func NewAssetsHandler(dir string, logger logging.Logger) *AssetsHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &AssetsHandler{dir: dir, logger: logger}
}

// Status handles GET /status.
func (h *AssetsHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ServiceDefinition handles GET /getServiceDefinition and
// GET /service-definition.json.
func (h *AssetsHandler) ServiceDefinition(w http.ResponseWriter, r *http.Request) {
	data, ok := h.read(w, serviceDefinitionFile)
	if !ok {
		return
	}
	var def json.RawMessage
	if err := json.Unmarshal(data, &def); err != nil {
		h.logger.Error("service definition is not valid JSON",
			logging.String("file", serviceDefinitionFile), logging.Err(err))
		writeError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "service definition unavailable")
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// Icon handles GET /brandIcon and GET /serviceIcon.
func (h *AssetsHandler) Icon(w http.ResponseWriter, r *http.Request) {
	data, ok := h.read(w, iconFile)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *AssetsHandler) read(w http.ResponseWriter, name string) ([]byte, bool) {
	data, err := os.ReadFile(filepath.Join(h.dir, name))
	if err != nil {
		h.logger.Error("asset unavailable", logging.String("file", name), logging.Err(err))
		writeError(w, http.StatusNotFound, errors.ErrCodeNotFound, name+" not found")
		return nil, false
	}
	return data, true
}

//Personal.AI order the ending
