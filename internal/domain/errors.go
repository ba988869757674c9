package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.
// Every one of them aborts the whole operation; nothing is committed.

var (
	// Authorization
	ErrNotOwner  = errors.New("only the owner can call")
	ErrNotMember = errors.New("must be a member to call")

	// Existence conflicts
	ErrAlreadyMember  = errors.New("member already exists")
	ErrMemberNotFound = errors.New("member does not exist")
	ErrTaskExists     = errors.New("task already exists")
	ErrTaskNotFound   = errors.New("task does not exist")

	// State gating
	ErrEraNotReached        = errors.New("selection era not reached")
	ErrTaskIncomplete       = errors.New("active task must be completed")
	ErrTaskAlreadyComplete  = errors.New("task already completed")
	ErrNoMembers            = errors.New("must have at least one member")
	ErrNoTasks              = errors.New("must have at least one task")
	ErrNotActiveParticipant = errors.New("caller must be an active participant")

	// Arithmetic
	ErrBalanceOverflow = errors.New("balance overflow")

	// Resource
	ErrInsufficientFunds = errors.New("insufficient funds")

	// Treasury: a single transfer refused by the recipient side.
	// Recovered locally during disbursement.
	ErrTransferRejected = errors.New("transfer rejected")

	// Input validation
	ErrInvalidPrincipal = errors.New("invalid principal")
	ErrInvalidTaskName  = errors.New("invalid task name")
	ErrInvalidProof     = errors.New("invalid proof hash")
	ErrNotInitialized   = errors.New("coordinator not initialized, run 'pobal init'")
	ErrFaucetDisabled   = errors.New("faucet is disabled")
)
