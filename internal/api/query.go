package api

import (
	"net/http"
	"strconv"

	"github.com/pobal-network/pobal/internal/domain"
)

// ─── Read Side ──────────────────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	status, code := "ok", http.StatusOK
	if !s.health.IsHealthy() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": s.health.Statuses(),
	})
}

type statusResponse struct {
	Height       domain.BlockHeight `json:"height"`
	Phase        domain.EraPhase    `json:"phase"`
	NextEraBlock domain.BlockHeight `json:"next_era_block"`
	Pool         domain.Balance     `json:"pool"`
	State        domain.Snapshot    `json:"state"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	pool, err := s.store.PoolBalance()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Height:       s.engine.Height(),
		Phase:        snap.Phase(),
		NextEraBlock: snap.NextEraBlock(),
		Pool:         pool,
		State:        snap,
	})
}

func (s *Server) handleMember(w http.ResponseWriter, r *http.Request) {
	p, err := domain.ParsePrincipal(pathParam(r, "principal"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !s.engine.IsMember(p) {
		writeDomainError(w, domain.ErrMemberNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"member": p})
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	info, err := s.engine.Task(name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"task": name, "info": info})
}

func (s *Server) handleProof(w http.ResponseWriter, r *http.Request) {
	task := pathParam(r, "task")
	h, ok := s.engine.Proof(task)
	if !ok {
		writeError(w, http.StatusNotFound, "no proof for task "+task)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"task": task, "proof": h})
}

// handleEvents lists committed events: ?after=SEQ&kind=KIND&limit=N.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	after, err := queryInt(q.Get("after"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "after: "+err.Error())
		return
	}
	limit, err := queryInt(q.Get("limit"), 100)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit: "+err.Error())
		return
	}
	events, err := s.store.ListEvents(after, domain.EventKind(q.Get("kind")), int(limit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	p := domain.Principal(pathParam(r, "principal"))
	if p != domain.SystemPool {
		if _, err := domain.ParsePrincipal(string(p)); err != nil {
			writeDomainError(w, err)
			return
		}
	}

	bal, err := s.store.BalanceOf(p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	entries, err := s.store.LedgerEntries(p, 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []domain.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"principal": p,
		"balance":   bal,
		"entries":   entries,
	})
}

type faucetRequest struct {
	Amount domain.Balance `json:"amount"`
}

// handleFaucet credits the caller on local networks.
func (s *Server) handleFaucet(w http.ResponseWriter, r *http.Request) {
	if !s.faucetEnabled {
		writeDomainError(w, domain.ErrFaucetDisabled)
		return
	}
	var req faucetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	caller := callerFrom(r.Context())
	if err := s.store.Mint(caller, req.Amount, "faucet"); err != nil {
		writeDomainError(w, err)
		return
	}
	bal, _ := s.store.BalanceOf(caller)
	writeJSON(w, http.StatusOK, map[string]interface{}{"principal": caller, "balance": bal})
}

func queryInt(s string, fallback int64) (int64, error) {
	if s == "" {
		return fallback, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
