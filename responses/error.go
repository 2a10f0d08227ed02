package responses

import "fmt"

// Stable machine readable error codes
const (
	CodeNotFound                     = "NotFound"
	CodeServerError                  = "ServerError"
	CodeEncryptedStorageNoPassphrase = "EncryptedStorageNoPassphrase"
	CodeFolderMissing                = "FolderMissing"
)

// Error describes an error for humans and machines
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("status:%d, code:%q, message:%q", e.Status, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewNotFound - the requested backup does not exist
func NewNotFound(message string, args ...interface{}) *Error {
	return &Error{
		Status:  404,
		Code:    CodeNotFound,
		Message: fmt.Sprintf(message, args...),
	}
}

// NewServerError - an internal contract was broken, this is a bug
func NewServerError(message string, args ...interface{}) *Error {
	return &Error{
		Status:  500,
		Code:    CodeServerError,
		Message: fmt.Sprintf(message, args...),
	}
}

// NewUserInformation - a named, user actionable condition
func NewUserInformation(code, message string, cause error) *Error {
	return &Error{
		Status:  400,
		Code:    code,
		Message: message,
		cause:   cause,
	}
}
