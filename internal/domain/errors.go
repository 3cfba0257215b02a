package domain

import "errors"

var (
	ErrEmptyTitle            = errors.New("title must not be empty")
	ErrInvalidPrice          = errors.New("price must be a positive whole number within the allowed range")
	ErrUnknownCategory       = errors.New("unknown category")
	ErrCategoryViaChoice     = errors.New("category must be chosen from the offered options")
	ErrIncompleteDraft       = errors.New("listing draft is incomplete, please start over")
	ErrNoConversation        = errors.New("no listing in progress")
	ErrInvalidTransition     = errors.New("invalid session state transition")
	ErrListingNotFound       = errors.New("listing not found")
	ErrAlreadyDecided        = errors.New("listing already decided")
	ErrListingNotApproved    = errors.New("listing is not available")
	ErrSelfChat              = errors.New("cannot open a chat with yourself")
	ErrAlreadyPaired         = errors.New("one of the parties is already in an active chat")
	ErrNoActiveSession       = errors.New("no active chat session")
	ErrNotParty              = errors.New("sender is not a party to this chat")
	ErrIdentityNotFound      = errors.New("identity not found")
	ErrIdentityBanned        = errors.New("identity is banned")
	ErrAdminRequired         = errors.New("admin access required")
	ErrMaintenance           = errors.New("marketplace is under maintenance")
	ErrEmptyBroadcast        = errors.New("broadcast body must not be empty")
	ErrUnknownBroadcastScope = errors.New("unknown broadcast scope")
)
