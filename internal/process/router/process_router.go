package router

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/OpenTramite/tramite/internal/process/model"
)

// ProcessAPI is the slice of the process service the router needs.
type ProcessAPI interface {
	Create(ctx context.Context, creator *model.User, req *model.CreateProcessDTO) (*model.ProcessInstance, error)
	Start(ctx context.Context, processID uuid.UUID, user *model.User, clientIP string) (*model.ProcessInstance, error)
	ExecuteStep(ctx context.Context, processID uuid.UUID, executor *model.User, req *model.ExecuteStepDTO, clientIP string) (*model.ProcessInstance, error)
	Forward(ctx context.Context, processID uuid.UUID, actor *model.User, req *model.ForwardProcessDTO, clientIP string) (*model.ProcessInstance, error)
	Cancel(ctx context.Context, processID uuid.UUID, actor *model.User, clientIP string) (*model.ProcessInstance, error)
	Detail(ctx context.Context, processID uuid.UUID, viewer *model.User) (*model.ProcessDetailDTO, error)
	ListVisible(ctx context.Context, user *model.User, filter model.ProcessFilter) ([]model.ProcessInstance, error)
	Dashboard(ctx context.Context, user *model.User) (*model.DashboardDTO, error)
}

type ProcessRouter struct {
	ps ProcessAPI
}

func NewProcessRouter(ps ProcessAPI) *ProcessRouter {
	return &ProcessRouter{ps: ps}
}

// HandleCreateProcess handles POST /api/processes
// Request body: CreateProcessDTO
// Response: ProcessInstance
func (p *ProcessRouter) HandleCreateProcess(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req model.CreateProcessDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	process, err := p.ps.Create(r.Context(), user, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, process)
}

// HandleListProcesses handles GET /api/processes
// Query params: number, templateId, status, createdBy, assignee, from, to,
// offset, limit (all optional)
// Response: array of ProcessInstance visible to the caller
func (p *ProcessRouter) HandleListProcesses(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	filter, err := parseProcessFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	processes, err := p.ps.ListVisible(r.Context(), user, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, processes)
}

// HandleGetProcess handles GET /api/processes/{id}
// Path param: id (required)
// Response: ProcessDetailDTO
func (p *ProcessRouter) HandleGetProcess(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	processID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid process ID format: "+err.Error(), http.StatusBadRequest)
		return
	}

	detail, err := p.ps.Detail(r.Context(), processID, user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// HandleStartProcess handles POST /api/processes/{id}/start
// Response: ProcessInstance positioned on the first step
func (p *ProcessRouter) HandleStartProcess(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	processID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid process ID format: "+err.Error(), http.StatusBadRequest)
		return
	}

	process, err := p.ps.Start(r.Context(), processID, user, clientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, process)
}

// HandleExecuteStep handles POST /api/processes/{id}/execute
// Request body: ExecuteStepDTO
// Response: ProcessInstance after the execution is recorded
func (p *ProcessRouter) HandleExecuteStep(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	processID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid process ID format: "+err.Error(), http.StatusBadRequest)
		return
	}

	var req model.ExecuteStepDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	process, err := p.ps.ExecuteStep(r.Context(), processID, user, &req, clientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, process)
}

// HandleForwardProcess handles POST /api/processes/{id}/forward
// Request body: ForwardProcessDTO
// Response: ProcessInstance positioned on the target step
func (p *ProcessRouter) HandleForwardProcess(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	processID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid process ID format: "+err.Error(), http.StatusBadRequest)
		return
	}

	var req model.ForwardProcessDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	process, err := p.ps.Forward(r.Context(), processID, user, &req, clientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, process)
}

// HandleCancelProcess handles POST /api/processes/{id}/cancel
// Response: ProcessInstance in its terminal state
func (p *ProcessRouter) HandleCancelProcess(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	processID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid process ID format: "+err.Error(), http.StatusBadRequest)
		return
	}

	process, err := p.ps.Cancel(r.Context(), processID, user, clientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, process)
}

// HandleDashboard handles GET /api/dashboard
// Response: DashboardDTO with counters and recent activity for the caller
func (p *ProcessRouter) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	dashboard, err := p.ps.Dashboard(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dashboard)
}

// parseProcessFilter builds a ProcessFilter from list query parameters.
func parseProcessFilter(r *http.Request) (model.ProcessFilter, error) {
	q := r.URL.Query()
	filter := model.ProcessFilter{
		NumberContains: q.Get("number"),
		Status:         model.ProcessStatus(q.Get("status")),
	}

	for param, dst := range map[string]**uuid.UUID{
		"templateId": &filter.TemplateID,
		"createdBy":  &filter.CreatedByID,
		"assignee":   &filter.AssigneeID,
	} {
		if raw := q.Get(param); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return model.ProcessFilter{}, &badParamError{param: param, err: err}
			}
			*dst = &id
		}
	}

	for param, dst := range map[string]**time.Time{
		"from": &filter.CreatedFrom,
		"to":   &filter.CreatedTo,
	} {
		if raw := q.Get(param); raw != "" {
			at, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return model.ProcessFilter{}, &badParamError{param: param, err: err}
			}
			*dst = &at
		}
	}

	for param, dst := range map[string]**int{
		"offset": &filter.Offset,
		"limit":  &filter.Limit,
	} {
		if raw := q.Get(param); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return model.ProcessFilter{}, &badParamError{param: param, err: err}
			}
			*dst = &n
		}
	}

	return filter, nil
}

type badParamError struct {
	param string
	err   error
}

func (e *badParamError) Error() string {
	return "invalid " + e.param + " parameter: " + e.err.Error()
}
