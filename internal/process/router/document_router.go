package router

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/OpenTramite/tramite/internal/process/model"
)

// maxUploadBytes caps multipart memory buffering for document uploads.
const maxUploadBytes = 32 << 20

// DocumentAPI is the slice of the document service the router needs.
type DocumentAPI interface {
	Attach(ctx context.Context, executionID uuid.UUID, actor *model.User, name string, kind model.DocumentKind, content io.Reader, contentType string, clientIP string) (*model.Document, error)
	ListByExecution(ctx context.Context, executionID uuid.UUID) ([]model.Document, error)
}

type DocumentRouter struct {
	ds DocumentAPI
}

func NewDocumentRouter(ds DocumentAPI) *DocumentRouter {
	return &DocumentRouter{ds: ds}
}

// HandleAttachDocument handles POST /api/executions/{id}/documents
// Multipart form: file (required), kind (optional, inferred when absent)
// Response: Document
func (d *DocumentRouter) HandleAttachDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	executionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid execution ID format: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	kind := model.DocumentKind(r.FormValue("kind"))
	contentType := header.Header.Get("Content-Type")

	document, err := d.ds.Attach(r.Context(), executionID, user, header.Filename, kind, file, contentType, clientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, document)
}

// HandleListDocuments handles GET /api/executions/{id}/documents
// Response: array of Document
func (d *DocumentRouter) HandleListDocuments(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	executionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid execution ID format: "+err.Error(), http.StatusBadRequest)
		return
	}

	documents, err := d.ds.ListByExecution(r.Context(), executionID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, documents)
}
