package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an API failure.
type Kind int

const (
	KindGeneric Kind = iota
	KindNetwork
	KindValidation
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindServer:
		return "server"
	default:
		return "generic"
	}
}

var (
	ErrNetwork      = errors.New("network error")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrServer       = errors.New("server error")
	ErrGeneric      = errors.New("request failed")
)

func (k Kind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindValidation:
		return ErrValidation
	case KindAuthentication:
		return ErrUnauthorized
	case KindAuthorization:
		return ErrForbidden
	case KindNotFound:
		return ErrNotFound
	case KindServer:
		return ErrServer
	default:
		return ErrGeneric
	}
}

// FieldError is one entry of the errors[] list of a validation response.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// APIError is returned by every client call that fails. errors.Is matches it
// against the sentinel of its Kind.
type APIError struct {
	Kind        Kind
	Status      int
	Message     string
	FieldErrors []FieldError
	Err         error
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.Err }

func (e *APIError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindOf reports the kind of err. Errors that are not APIErrors are Generic.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindGeneric
}

func kindFromStatus(status int) Kind {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusUnauthorized:
		return KindAuthentication
	case status == http.StatusForbidden:
		return KindAuthorization
	case status == http.StatusNotFound:
		return KindNotFound
	case status >= 500:
		return KindServer
	default:
		return KindGeneric
	}
}

type errorBody struct {
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Errors  []json.RawMessage `json:"errors"`
}

// newStatusError builds the APIError for a non-2xx response. The message is
// taken from the body's message or error field, then the status text.
func newStatusError(status int, body []byte) *APIError {
	e := &APIError{Kind: kindFromStatus(status), Status: status}

	var eb errorBody
	if len(body) > 0 && json.Unmarshal(body, &eb) == nil {
		e.Message = eb.Message
		if e.Message == "" {
			e.Message = eb.Error
		}
		for _, raw := range eb.Errors {
			var s string
			if json.Unmarshal(raw, &s) == nil {
				e.FieldErrors = append(e.FieldErrors, FieldError{Message: s})
				continue
			}
			var fe FieldError
			if json.Unmarshal(raw, &fe) == nil {
				e.FieldErrors = append(e.FieldErrors, fe)
			}
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

func newNetworkError(err error) *APIError {
	return &APIError{Kind: KindNetwork, Message: "request could not be completed", Err: err}
}

// UserMessage returns the text shown to the dealer for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return "Đã xảy ra lỗi không xác định. Vui lòng thử lại."
	}
	switch apiErr.Kind {
	case KindNetwork:
		return "Không thể kết nối tới máy chủ. Vui lòng kiểm tra kết nối mạng."
	case KindValidation:
		if len(apiErr.FieldErrors) > 0 {
			msgs := make([]string, 0, len(apiErr.FieldErrors))
			for _, fe := range apiErr.FieldErrors {
				msgs = append(msgs, fe.Message)
			}
			return "Dữ liệu không hợp lệ: " + strings.Join(msgs, "; ")
		}
		return "Dữ liệu không hợp lệ: " + apiErr.Message
	case KindAuthentication:
		return "Phiên đăng nhập đã hết hạn. Vui lòng đăng nhập lại."
	case KindAuthorization:
		return "Bạn không có quyền thực hiện thao tác này."
	case KindNotFound:
		return "Không tìm thấy dữ liệu yêu cầu."
	case KindServer:
		return "Máy chủ đang gặp sự cố. Vui lòng thử lại sau."
	default:
		if apiErr.Message != "" {
			return "Đã xảy ra lỗi: " + apiErr.Message
		}
		return "Đã xảy ra lỗi không xác định. Vui lòng thử lại."
	}
}
