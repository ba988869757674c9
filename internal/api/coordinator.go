package api

import (
	"net/http"

	"github.com/pobal-network/pobal/internal/domain"
)

// ─── Coordinator Operations (/v1/*) ─────────────────────────────────────────
// Each handler runs exactly one engine operation as the authenticated caller.
// A failed operation commits nothing, so handlers only translate errors.

// --- membership ---

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r.Context())
	if err := s.engine.Register(caller); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"member": caller})
}

func (s *Server) handleDeregister(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r.Context())
	if err := s.engine.Deregister(caller); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"member": caller})
}

func (s *Server) handleClearMembers(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ClearMembers(callerFrom(r.Context())); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cleared": "members"})
}

// --- tasks ---

type addTaskRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var req addTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.AddTask(callerFrom(r.Context()), req.Name); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"task": req.Name})
}

func (s *Server) handleRemoveTask(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	if err := s.engine.RemoveTask(callerFrom(r.Context()), name); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"task": name})
}

func (s *Server) handleClearTasks(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ClearTasks(callerFrom(r.Context())); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cleared": "tasks"})
}

type fundTaskRequest struct {
	Amount domain.Balance `json:"amount"`
}

func (s *Server) handleFundTask(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	var req fundTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.FundTask(callerFrom(r.Context()), name, req.Amount); err != nil {
		writeDomainError(w, err)
		return
	}
	info, err := s.engine.Task(name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"task": name, "info": info})
}

// --- eras ---

type setIntervalRequest struct {
	Interval domain.BlockHeight `json:"interval"`
}

func (s *Server) handleSetInterval(w http.ResponseWriter, r *http.Request) {
	var req setIntervalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.SetSelectionInterval(callerFrom(r.Context()), req.Interval); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"interval": req.Interval})
}

func (s *Server) handleStartEra(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.StartNewEra(callerFrom(r.Context())); err != nil {
		writeDomainError(w, err)
		return
	}
	snap := s.engine.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"era":          snap.LastSelection,
		"participants": snap.ActiveParticipants,
		"task":         snap.ActiveTask,
	})
}

type submitProofRequest struct {
	Proof domain.Hash `json:"proof"`
}

func (s *Server) handleSubmitProof(w http.ResponseWriter, r *http.Request) {
	var req submitProofRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.engine.SubmitProof(callerFrom(r.Context()), req.Proof); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"proof": req.Proof})
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	payout, err := s.engine.CompleteTask(callerFrom(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"payout": payout})
}
