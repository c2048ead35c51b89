package errcodes

import (
	"fmt"
	"net/http"
)

type Error struct {
	HTTPCode int
	Message  string
	Code     string
}

func (err *Error) Error() string {
	return err.Message
}

func (err *Error) As(target interface{}) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	te.HTTPCode = err.HTTPCode
	te.Message = err.Message
	te.Code = err.Code
	return true
}

func (err *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.HTTPCode == err.HTTPCode &&
		te.Message == err.Message &&
		te.Code == err.Code
}

// Unauthorized returns a 401 error for missing or invalid credentials.
func Unauthorized(msg string) error {
	return &Error{
		http.StatusUnauthorized,
		msg,
		"unauthorized",
	}
}

// NotFound returns a 404 error with a message indicating the given resource.
func NotFound(resource string) error {
	return &Error{
		http.StatusNotFound,
		resource + " not found.",
		"not_found",
	}
}

// PermissionDenied returns a 403 error for a failed role check.
func PermissionDenied() error {
	return &Error{
		http.StatusForbidden,
		"You do not have the required permission on this library.",
		"permission_denied",
	}
}

// InvalidRoleEscalation returns a 403 error for an actor granting a role it
// has no authority to grant.
func InvalidRoleEscalation(role string) error {
	return &Error{
		http.StatusForbidden,
		fmt.Sprintf("You cannot grant the %q role.", role),
		"invalid_role_escalation",
	}
}

// OwnerRevocationForbidden returns a 403 error for attempts to revoke or
// overwrite the owner row. Ownership only moves via transfer.
func OwnerRevocationForbidden() error {
	return &Error{
		http.StatusForbidden,
		"The owner's permission can only be changed by transferring ownership.",
		"owner_revocation_forbidden",
	}
}

// NotOwner returns a 403 error for an ownership transfer attempted by a user
// who does not hold the owner role.
func NotOwner() error {
	return &Error{
		http.StatusForbidden,
		"Only the current owner can transfer ownership.",
		"not_owner",
	}
}

// AliasConflict returns a 409 error for a contradictory alias registration.
func AliasConflict(alternate string) error {
	return &Error{
		http.StatusConflict,
		fmt.Sprintf("Bibcode %q is already mapped to a different canonical bibcode.", alternate),
		"alias_conflict",
	}
}

// DuplicateNote returns a 409 error when an entry already carries a note.
// Notes are updated in place, never stacked.
func DuplicateNote(bibcode string) error {
	return &Error{
		http.StatusConflict,
		fmt.Sprintf("A note already exists for %q.", bibcode),
		"duplicate_note",
	}
}

// DuplicateName returns a 409 error when the configured name-uniqueness
// policy rejects a library name.
func DuplicateName(name string) error {
	return &Error{
		http.StatusConflict,
		fmt.Sprintf("A library named %q already exists.", name),
		"duplicate_name",
	}
}

// ConcurrentModification returns a 409 error for an optimistic-concurrency
// revision mismatch. The caller should re-fetch and re-apply.
func ConcurrentModification() error {
	return &Error{
		http.StatusConflict,
		"The library was modified by another request. Re-fetch and retry.",
		"concurrent_modification",
	}
}

func UnsupportedMediaType() error {
	return &Error{
		http.StatusUnsupportedMediaType,
		"Unsupported Media Type",
		"unsupported_media_type",
	}
}

func UnknownParameter(param string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		fmt.Sprintf("Unknown Parameter %q", param),
		"unknown_parameter",
	}
}

func ValidationTypeError(msg string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		"validation_type_error",
	}
}

func ValidationError(msg string) error {
	return &Error{
		http.StatusUnprocessableEntity,
		msg,
		"validation_error",
	}
}

func MalformedPayload() error {
	return &Error{
		http.StatusBadRequest,
		"Malformed Payload",
		"malformed_payload",
	}
}

func EmptyRequestBody() error {
	return &Error{
		http.StatusBadRequest,
		"Request body can't be empty.",
		"empty_request_body",
	}
}
