package router

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/OpenTramite/tramite/internal/process/model"
)

// TemplateAPI is the slice of the template service the router needs.
type TemplateAPI interface {
	CreateTemplate(ctx context.Context, actor *model.User, req *model.CreateTemplateDTO) (*model.Template, error)
	AddStep(ctx context.Context, actor *model.User, templateID uuid.UUID, req *model.CreateStepDTO) (*model.Step, error)
	AddTransition(ctx context.Context, actor *model.User, req *model.CreateTransitionDTO) (*model.Transition, error)
	GetTemplate(ctx context.Context, templateID uuid.UUID) (*model.Template, error)
	ListTemplates(ctx context.Context, viewer *model.User) ([]model.Template, error)
	Validate(ctx context.Context, templateID uuid.UUID) error
	Deactivate(ctx context.Context, actor *model.User, templateID uuid.UUID) (*model.Template, error)
}

type TemplateRouter struct {
	ts TemplateAPI
}

func NewTemplateRouter(ts TemplateAPI) *TemplateRouter {
	return &TemplateRouter{ts: ts}
}

// HandleCreateTemplate handles POST /api/templates
// Request body: CreateTemplateDTO
// Response: Template
func (t *TemplateRouter) HandleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreateTemplateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	template, err := t.ts.CreateTemplate(r.Context(), user, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, template)
}

// HandleListTemplates handles GET /api/templates
// Response: array of Template
func (t *TemplateRouter) HandleListTemplates(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	templates, err := t.ts.ListTemplates(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, templates)
}

// HandleGetTemplate handles GET /api/templates/{id}
// Path param: id (required)
// Response: Template with its ordered steps
func (t *TemplateRouter) HandleGetTemplate(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	templateID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid template ID format: "+err.Error(), http.StatusBadRequest)
		return
	}

	template, err := t.ts.GetTemplate(r.Context(), templateID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, template)
}

// HandleAddStep handles POST /api/templates/{id}/steps
// Request body: CreateStepDTO
// Response: Step
func (t *TemplateRouter) HandleAddStep(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	templateID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid template ID format: "+err.Error(), http.StatusBadRequest)
		return
	}

	var req model.CreateStepDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	step, err := t.ts.AddStep(r.Context(), user, templateID, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, step)
}

// HandleAddTransition handles POST /api/transitions
// Request body: CreateTransitionDTO
// Response: Transition
func (t *TemplateRouter) HandleAddTransition(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreateTransitionDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	transition, err := t.ts.AddTransition(r.Context(), user, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, transition)
}

// HandleValidateTemplate handles POST /api/templates/{id}/validate
// Response: 204 when the template's step sequence is well formed
func (t *TemplateRouter) HandleValidateTemplate(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}

	templateID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid template ID format: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := t.ts.Validate(r.Context(), templateID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDeactivateTemplate handles POST /api/templates/{id}/deactivate
// Response: Template
func (t *TemplateRouter) HandleDeactivateTemplate(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	templateID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid template ID format: "+err.Error(), http.StatusBadRequest)
		return
	}

	template, err := t.ts.Deactivate(r.Context(), user, templateID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, template)
}
