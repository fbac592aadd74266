package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/backlogd/backlogd/internal/domain"
	"github.com/backlogd/backlogd/internal/engine"
	"github.com/backlogd/backlogd/internal/reconcile"
)

// ─── Tasks ──────────────────────────────────────────────────────────────────

type createTaskRequest struct {
	Title     string   `json:"title"`
	Priority  int      `json:"priority,omitempty"`
	Category  string   `json:"category,omitempty"`
	BlockedBy []int64  `json:"blocked_by,omitempty"`
	Footprint []string `json:"footprint,omitempty"`
	Criteria  []string `json:"criteria,omitempty"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, warnings, err := s.engine.Create(engine.CreateParams{
		Title:     req.Title,
		Priority:  domain.Priority(req.Priority),
		Category:  req.Category,
		BlockedBy: req.BlockedBy,
		Footprint: req.Footprint,
		Criteria:  req.Criteria,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"task":     task,
		"warnings": warnings,
	})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	status := domain.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status "+string(status))
		return
	}

	tasks, err := s.engine.Tasks(status)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": tasks,
	})
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad limit "+q)
			return
		}
		limit = n
	}

	tasks, err := s.engine.Archive(limit)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": tasks,
	})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	task, err := s.engine.Get(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	unblocks, err := s.engine.Unblocks(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"task":     task,
		"unblocks": unblocks,
	})
}

// ─── Transitions ────────────────────────────────────────────────────────────

type transitionRequest struct {
	Target    string `json:"target"`
	Note      string `json:"note,omitempty"`
	Override  bool   `json:"override,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := s.engine.Transition(id, domain.Status(req.Target), engine.TransitionContext{
		Note:      req.Note,
		Override:  req.Override,
		SessionID: req.SessionID,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"task": task,
	})
}

type reopenRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleReopen(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req reopenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Reason == "" {
		writeError(w, http.StatusBadRequest, "reason is required")
		return
	}

	task, err := s.engine.Reopen(id, req.Reason)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"task": task,
	})
}

// ─── Dependencies, Notes, Criteria ──────────────────────────────────────────

type addBlockerRequest struct {
	BlockerID int64 `json:"blocker_id"`
}

func (s *Server) handleAddBlocker(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req addBlockerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.engine.AddBlocker(id, req.BlockerID); err != nil {
		writeEngineError(w, err)
		return
	}
	task, err := s.engine.Get(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"task": task,
	})
}

type noteRequest struct {
	Note string `json:"note"`
}

func (s *Server) handleNote(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Note == "" {
		writeError(w, http.StatusBadRequest, "note is required")
		return
	}

	if err := s.engine.Note(id, req.Note); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type checkCriterionRequest struct {
	Checked bool `json:"checked"`
}

func (s *Server) handleCheckCriterion(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	position, err := strconv.Atoi(chi.URLParam(r, "position"))
	if err != nil || position < 0 {
		writeError(w, http.StatusBadRequest, "bad criterion position")
		return
	}
	var req checkCriterionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := s.engine.CheckCriterion(id, position, req.Checked)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"task": task,
	})
}

// ─── Reconcile ──────────────────────────────────────────────────────────────

type reconcileRequest struct {
	Evidence map[string]bool `json:"evidence"`
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	var req reconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := s.engine.Reconcile(id, reconcile.Evidence(req.Evidence))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"classification": string(c),
	})
}

// ─── Ranking and Summary ────────────────────────────────────────────────────

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.engine.Next()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": tasks,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.engine.Summary()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ─── Learning Ledger ────────────────────────────────────────────────────────

type learnRequest struct {
	TaskID        int64  `json:"task_id,omitempty"`
	Context       string `json:"context,omitempty"`
	Insight       string `json:"insight"`
	AppliedAction string `json:"applied_action,omitempty"`
}

func (s *Server) handleLearn(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Insight == "" {
		writeError(w, http.StatusBadRequest, "insight is required")
		return
	}

	id, err := s.engine.Learn(domain.LearningEntry{
		TaskID:        req.TaskID,
		Context:       req.Context,
		Insight:       req.Insight,
		AppliedAction: req.AppliedAction,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) handleListLearnings(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad limit "+q)
			return
		}
		limit = n
	}

	entries, err := s.engine.RecentLearnings(limit)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"learnings": entries,
	})
}

func (s *Server) handleTaskLearnings(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(w, r)
	if !ok {
		return
	}
	if _, err := s.engine.Get(id); err != nil {
		writeEngineError(w, err)
		return
	}

	entries, err := s.engine.Learnings(id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"learnings": entries,
	})
}

// ─── Sessions ───────────────────────────────────────────────────────────────

type openSessionRequest struct {
	TaskIDs []int64 `json:"task_ids"`
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, warnings, err := s.engine.OpenSession(req.TaskIDs)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"session":  session,
		"warnings": warnings,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.engine.Session(chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": session,
	})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.CloseSession(chi.URLParam(r, "id")); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "closed"})
}

// urlID parses the {id} route parameter.
func urlID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, "bad task id")
		return 0, false
	}
	return id, true
}
