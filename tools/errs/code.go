package errs

// Stable business codes. HTTP status stays 200 for business failures,
// the code field tells the client what happened.
const (
	CodeInternal       = 500
	CodeBadRequest     = 1001
	CodeUnauthorized   = 1002
	CodeTokenExpired   = 1003
	CodeForbidden      = 1004
	CodeNotFound       = 1005
	CodeDuplicateEmail = 1101
	CodeBadCredentials = 1102
	CodeNotMember      = 1201
	CodeBadJoinCode    = 1202
)

var (
	ErrInternal       = NewCodeError(CodeInternal, "internal error")
	ErrBadRequest     = NewCodeError(CodeBadRequest, "bad request")
	ErrUnauthorized   = NewCodeError(CodeUnauthorized, "unauthorized")
	ErrTokenExpired   = NewCodeError(CodeTokenExpired, "token missing or expired")
	ErrForbidden      = NewCodeError(CodeForbidden, "forbidden")
	ErrNotFound       = NewCodeError(CodeNotFound, "not found")
	ErrDuplicateEmail = NewCodeError(CodeDuplicateEmail, "email already registered")
	ErrBadCredentials = NewCodeError(CodeBadCredentials, "incorrect email or password")
	ErrNotMember      = NewCodeError(CodeNotMember, "not a member of this group")
	ErrBadJoinCode    = NewCodeError(CodeBadJoinCode, "join code not found")
)
