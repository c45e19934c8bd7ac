package wire

import (
	stderrors "errors"

	"channel-chat/errors"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const (
	CodeNotMember       = "not_member"
	CodeNotAllowed      = "not_allowed"
	CodeMessageNotFound = "message_not_found"
	CodeChannelNotFound = "channel_not_found"
	CodeEmptyMessage    = "empty_message"
	CodeInvalidToken    = "invalid_token"
	CodeRateLimited     = "rate_limited"
	CodeInvalidPayload  = "invalid_payload"
	CodeJoinRejected    = "join_rejected"
	CodeInternal        = "internal"
)

var codes = []struct {
	code string
	err  error
}{
	{CodeNotMember, errors.ErrNotMember},
	{CodeNotAllowed, errors.ErrNotAllowed},
	{CodeMessageNotFound, errors.ErrMessageNotFound},
	{CodeChannelNotFound, errors.ErrChannelNotFound},
	{CodeEmptyMessage, errors.ErrEmptyMessage},
	{CodeInvalidToken, errors.ErrInvalidToken},
	{CodeRateLimited, errors.ErrRateLimited},
	{CodeInvalidPayload, errors.ErrInvalidPayload},
	{CodeJoinRejected, errors.ErrJoinRejected},
}

// CodeOf returns the stable code of a domain error, CodeInternal when it has none.
func CodeOf(err error) string {
	for _, c := range codes {
		if stderrors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// ErrorOf is the reverse of CodeOf, nil for an unknown code.
func ErrorOf(code string) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return nil
}

func NewErrorResponse(err error) ErrorResponse {
	return ErrorResponse{Error: err.Error(), Code: CodeOf(err)}
}
