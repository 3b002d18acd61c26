package apperr

var (
	// Domain errors shared by the REST handlers and the realtime gateway
	ErrThreadNotFound      = NotFound("thread not found")
	ErrNotParticipant      = Forbidden("not a participant in this thread")
	ErrNotAdmin            = Forbidden("admin role required")
	ErrEmptyContent        = Validation("message content is required")
	ErrInvalidThreadType   = Validation("thread_type must be 'dm' or 'group'")
	ErrDMParticipantCount  = Validation("a dm requires exactly one other participant")
	ErrDMParticipantsFixed = Validation("participants cannot be added to a dm")
	ErrNoParticipants      = Validation("a group requires at least one other participant")
	ErrDuplicateMessage    = Conflict("message already delivered")
	ErrParticipantExists   = Conflict("user is already a participant")
	ErrParticipantNotFound = NotFound("participant not found")
	ErrInvalidPlatform     = Validation("platform must be one of ios, android, web")
)
