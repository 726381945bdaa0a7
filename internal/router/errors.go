package router

// Error codes surfaced to clients on the "error" event.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeNotMember    = "NOT_MEMBER"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeRateLimited  = "RATE_LIMITED"
	CodeInternal     = "INTERNAL_ERROR"
)

// Error is a client-visible event failure. Anything else that escapes a
// handler is mapped to a generic INTERNAL_ERROR so internals never leak.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func validationError(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

var (
	errRoomNotFound    = &Error{Code: CodeNotFound, Message: "Room not found"}
	errMessageNotFound = &Error{Code: CodeNotFound, Message: "Message not found"}
	errNotMember       = &Error{Code: CodeNotMember, Message: "You are not a member of this room"}
	errNotAuthor       = &Error{Code: CodeUnauthorized, Message: "You can only delete your own messages"}
	errRateLimited     = &Error{Code: CodeRateLimited, Message: "You are sending messages too quickly"}
)
