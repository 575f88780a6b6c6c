package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lanefuse/internal/domain"
	"github.com/kailas-cloud/lanefuse/internal/domain/recipe"
	domrun "github.com/kailas-cloud/lanefuse/internal/domain/run"
	logpkg "github.com/kailas-cloud/lanefuse/internal/logger"
	fusionuc "github.com/kailas-cloud/lanefuse/internal/usecase/fusion"
	healthuc "github.com/kailas-cloud/lanefuse/internal/usecase/health"
	laneuc "github.com/kailas-cloud/lanefuse/internal/usecase/lane"
	runuc "github.com/kailas-cloud/lanefuse/internal/usecase/run"
)

const (
	maxBatchSize = 100
	maxBodyBytes = 16 << 20
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the lanefuse HTTP API.
type Server struct {
	lanes         *laneuc.Service
	fusion        *fusionuc.Service
	runs          *runuc.Service
	health        *healthuc.Service
	defaults      recipe.Recipe
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. defaults is the recipe POST /runs
// starts from before applying the request's recipe fields.
func NewServer(
	lanes *laneuc.Service,
	fusion *fusionuc.Service,
	runs *runuc.Service,
	health *healthuc.Service,
	defaults recipe.Recipe,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		lanes:    lanes,
		fusion:   fusion,
		runs:     runs,
		health:   health,
		defaults: defaults.Clone(),
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		notFoundHandler,
		recipeErrorHandler,
		sentinelHandler(domain.ErrEmptyLaneSet, http.StatusBadRequest, ErrorCodeEmptyLaneSet, false),
		sentinelHandler(domain.ErrInvalidLane, http.StatusBadRequest, ErrorCodeInvalidLane, true),
		sentinelHandler(domain.ErrInvalidRepresentative,
			http.StatusBadRequest, ErrorCodeInvalidRepresentative, true),
		sentinelHandler(domain.ErrDuplicateRegistration,
			http.StatusConflict, ErrorCodeDuplicateRegistration, false),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Post("/lanes", s.IngestLane)
	r.Post("/lanes/batch", s.IngestLanes)

	r.Route("/runs", func(r chi.Router) {
		r.Post("/", s.Fuse)
		r.Get("/{id}", s.GetRun)
		r.Get("/{id}/history", s.History)
		r.Post("/{id}/mutate", s.Mutate)
		r.Post("/{id}/representatives", s.RegisterRepresentatives)
		r.Get("/{id}/representatives", s.Representatives)
	})
}

// IngestLane handles POST /lanes.
func (s *Server) IngestLane(w http.ResponseWriter, r *http.Request) {
	var req LaneRequest
	if !s.decode(w, r, &req) {
		return
	}

	in := laneFromRequest(&req)
	id, err := s.lanes.Ingest(r.Context(), &in)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, LaneResponse{LaneID: id})
}

// IngestLanes handles POST /lanes/batch.
func (s *Server) IngestLanes(w http.ResponseWriter, r *http.Request) {
	var req LaneBatchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if len(req.Lanes) == 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "lanes must not be empty")
		return
	}
	if len(req.Lanes) > maxBatchSize {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest,
			fmt.Sprintf("batch size %d exceeds maximum %d", len(req.Lanes), maxBatchSize))
		return
	}

	in := make([]laneuc.IngestRequest, len(req.Lanes))
	for i := range req.Lanes {
		in[i] = laneFromRequest(&req.Lanes[i])
	}
	ids, err := s.lanes.IngestBatch(r.Context(), in)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, LaneBatchResponse{LaneIDs: ids})
}

// Fuse handles POST /runs.
func (s *Server) Fuse(w http.ResponseWriter, r *http.Request) {
	var req FuseRequest
	if !s.decode(w, r, &req) {
		return
	}

	rcp := req.Recipe.Apply(s.defaults)
	if src := req.TargetProfileFrom; src != nil {
		if req.Recipe != nil && req.Recipe.TargetProfile != nil {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest,
				"recipe.target_profile and target_profile_from_lane are mutually exclusive")
			return
		}
		profile, err := s.fusion.ProfileFromLane(r.Context(), src.LaneID, src.TopN)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		rcp.TargetProfile = profile
	}

	run, err := s.fusion.Fuse(r.Context(), req.LaneIDs, rcp)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, runToResponse([]domrun.Run{run}))
}

// GetRun handles GET /runs/{id}.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	r, id := withRunID(r)
	chain, err := s.runs.History(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, runToResponse(chain))
}

// History handles GET /runs/{id}/history.
func (s *Server) History(w http.ResponseWriter, r *http.Request) {
	r, id := withRunID(r)
	chain, err := s.runs.History(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	resp := HistoryResponse{Runs: make([]RunSummary, len(chain))}
	for i := range chain {
		resp.Runs[i] = runToSummary(&chain[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// Mutate handles POST /runs/{id}/mutate.
func (s *Server) Mutate(w http.ResponseWriter, r *http.Request) {
	var ov recipe.Override
	if !s.decode(w, r, &ov) {
		return
	}
	r, id := withRunID(r)
	run, err := s.runs.Mutate(r.Context(), id, &ov)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	chain, err := s.runs.History(r.Context(), run.ID())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, runToResponse(chain))
}

// RegisterRepresentatives handles POST /runs/{id}/representatives.
func (s *Server) RegisterRepresentatives(w http.ResponseWriter, r *http.Request) {
	var req RepresentativesRequest
	if !s.decode(w, r, &req) {
		return
	}
	r, runID := withRunID(r)
	if err := s.runs.RegisterRepresentatives(r.Context(), runID, req.Entries); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, RepresentativesResponse{RunID: runID, Entries: req.Entries})
}

// Representatives handles GET /runs/{id}/representatives.
func (s *Server) Representatives(w http.ResponseWriter, r *http.Request) {
	r, runID := withRunID(r)
	entries, err := s.runs.Representatives(r.Context(), runID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RepresentativesResponse{RunID: runID, Entries: nonNil(entries)})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decode reads a JSON body, rejecting unknown fields and trailing data.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if dec.More() {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: trailing data")
		return false
	}
	return true
}

// withRunID reads the {id} URL parameter and tags the request logger with it.
func withRunID(r *http.Request) (*http.Request, string) {
	id := chi.URLParam(r, "id")
	return r.WithContext(logpkg.WithFields(r.Context(), zap.String("run_id", id))), id
}

func laneFromRequest(req *LaneRequest) laneuc.IngestRequest {
	return laneuc.IngestRequest{
		Type:        req.LaneType,
		Weight:      req.Weight,
		Docs:        req.Docs,
		CodeSummary: req.CodeSummary,
		Documents:   req.Documents,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// notFoundHandler reports which kind of record is missing.
func notFoundHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrRunNotFound) {
		return false
	}
	code := ErrorCodeRunNotFound
	msg := domain.ErrRunNotFound.Error()
	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		msg = nf.Error()
		if nf.Kind == domain.KindLane {
			code = ErrorCodeLaneNotFound
		}
	}
	writeError(w, http.StatusNotFound, code, msg)
	return true
}

// recipeErrorHandler reports the offending recipe field.
func recipeErrorHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrInvalidRecipe) {
		return false
	}
	resp := ErrorResponse{Code: ErrorCodeInvalidRecipe, Message: domain.ErrInvalidRecipe.Error()}
	var re *domain.RecipeError
	if errors.As(err, &re) {
		resp.Message = re.Error()
		resp.Field = re.Field
	}
	writeJSON(w, http.StatusBadRequest, resp)
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// With detail the wrapped validation message is returned; it only ever
// describes the caller's own input.
func sentinelHandler(sentinel error, status int, code ErrorCode, detail bool) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		if detail {
			msg = err.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
