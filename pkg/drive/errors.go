package drive

// Error is a domain error returned by Store operations.
//
// Resolution and mutation failures (not found, wrong node type, malformed
// id-path) are business logic errors: the operation did not happen and the
// tree is unchanged. Callers branch on Code, or use errors.Is against the
// sentinel values below:
//
//	if errors.Is(err, drive.ErrNotFound) {
//	    // 404
//	}
type Error struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the id-path the operation was called with (if applicable)
	Path string

	// Err is the underlying cause, if any
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Code. This lets the
// package-level sentinels match any error of their category.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ErrorCode represents the category of a drive error.
type ErrorCode int

const (
	// CodeNotFound indicates a path segment or the target entry is absent
	CodeNotFound ErrorCode = iota + 1

	// CodeTypeMismatch indicates the operation expected a folder and got a
	// file, or vice versa
	CodeTypeMismatch

	// CodeMalformedPath indicates the id-path is empty or contains segments
	// outside the identifier alphabet
	CodeMalformedPath

	// CodeCorruptSnapshot indicates a snapshot blob failed decoding or
	// schema checks
	CodeCorruptSnapshot

	// CodePersistence indicates the local snapshot slot could not be written
	CodePersistence
)

func (c ErrorCode) String() string {
	switch c {
	case CodeNotFound:
		return "NotFound"
	case CodeTypeMismatch:
		return "TypeMismatch"
	case CodeMalformedPath:
		return "MalformedPath"
	case CodeCorruptSnapshot:
		return "CorruptSnapshot"
	case CodePersistence:
		return "Persistence"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is.
var (
	ErrNotFound        = &Error{Code: CodeNotFound, Message: "not found"}
	ErrTypeMismatch    = &Error{Code: CodeTypeMismatch, Message: "type mismatch"}
	ErrMalformedPath   = &Error{Code: CodeMalformedPath, Message: "malformed path"}
	ErrCorruptSnapshot = &Error{Code: CodeCorruptSnapshot, Message: "corrupt snapshot"}
	ErrPersistence     = &Error{Code: CodePersistence, Message: "persistence failed"}
)

func newError(code ErrorCode, msg, path string) *Error {
	return &Error{Code: code, Message: msg, Path: path}
}
