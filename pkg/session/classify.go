package session

import (
	"errors"
	"net/http"
	"strings"

	"github.com/FolkodeGroup/mediapp/pkg/api/client"
)

// Reason classifies a failed login.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonInvalidRequest
	ReasonInvalidCredentials
	ReasonAccountLocked
	ReasonServerError
	ReasonServerMessage
	ReasonUnknown
	ReasonUnreachable
)

var reasonMessages = map[Reason]string{
	ReasonInvalidRequest:     "invalid request: check the submitted data",
	ReasonInvalidCredentials: "invalid credentials",
	ReasonAccountLocked:      "account locked: contact the administrator",
	ReasonServerError:        "server error: try again later",
	ReasonUnknown:            "login failed",
	ReasonUnreachable:        "cannot reach the server: check your connection",
}

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonInvalidRequest:
		return "invalid_request"
	case ReasonInvalidCredentials:
		return "invalid_credentials"
	case ReasonAccountLocked:
		return "account_locked"
	case ReasonServerError:
		return "server_error"
	case ReasonServerMessage:
		return "server_message"
	case ReasonUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// Classify maps a login error to a Reason.
func Classify(err error) Reason {
	reason, _ := Describe(err)
	return reason
}

// Describe returns the Reason for err and the message to show the user.
func Describe(err error) (Reason, string) {
	if err == nil {
		return ReasonNone, ""
	}
	if client.IsTransport(err) {
		return ReasonUnreachable, reasonMessages[ReasonUnreachable]
	}
	var apiErr client.APIError
	if !errors.As(err, &apiErr) {
		return ReasonUnknown, reasonMessages[ReasonUnknown]
	}
	var reason Reason
	switch apiErr.Status {
	case http.StatusBadRequest:
		reason = ReasonInvalidRequest
	case http.StatusUnauthorized:
		reason = ReasonInvalidCredentials
	case http.StatusForbidden:
		reason = ReasonAccountLocked
	case http.StatusInternalServerError:
		reason = ReasonServerError
	default:
		if msg := strings.TrimSpace(apiErr.Message); msg != "" {
			return ReasonServerMessage, msg
		}
		reason = ReasonUnknown
	}
	return reason, reasonMessages[reason]
}
