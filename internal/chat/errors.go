package chat

import "errors"

var (
	// ErrBusy indicates the session is already processing a submission.
	ErrBusy = errors.New("session busy")
	// ErrQuotaExceeded indicates the free message allowance for the
	// session is used up. Nothing is appended to the conversation.
	ErrQuotaExceeded = errors.New("message quota exceeded")
	// ErrValidation indicates the submission was rejected before any
	// state changed.
	ErrValidation = errors.New("invalid submission")
	// ErrNoPriorUserTurn indicates a rerun target has no user turn at or
	// before it. The conversation is left unmodified.
	ErrNoPriorUserTurn = errors.New("no prior user turn")
	// ErrConfiguration indicates a required credential or setting is
	// absent. Distinct from execution failures, which are reported inside
	// the conversation.
	ErrConfiguration = errors.New("capability not configured")
)
