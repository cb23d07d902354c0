package market

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind uint8

const (
	KindFetchAssets Kind = iota + 1
	KindFetchPrices
	KindFetchTrades
	KindFetchBalances
	KindAPIKey
	KindEncode
	KindSignature
)

func (k Kind) String() string {
	switch k {
	case KindFetchAssets:
		return "FetchAssetsError"
	case KindFetchPrices:
		return "FetchPricesError"
	case KindFetchTrades:
		return "FetchTradesError"
	case KindFetchBalances:
		return "FetchBalancesError"
	case KindAPIKey:
		return "APIKeyError"
	case KindEncode:
		return "EncodeError"
	case KindSignature:
		return "SignatureError"
	default:
		return "UnknownError"
	}
}

// Error is the single error type surfaced by the core. Status and Detail are what the
// routing layer returns to clients; Err keeps the underlying cause for logs.
type Error struct {
	Kind   Kind
	Status int
	Detail string
	Venue  string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + ": " + e.Detail
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an Error with the generic 500 status every core failure maps to.
func NewError(kind Kind, venue, detail string, cause error) *Error {
	return &Error{
		Kind:   kind,
		Status: http.StatusInternalServerError,
		Detail: detail,
		Venue:  venue,
		Err:    cause,
	}
}

func FetchAssetsError(venue string, cause error) *Error {
	return NewError(KindFetchAssets, venue, "Error while fetching supported assets.", cause)
}

func FetchPricesError(venue string, cause error) *Error {
	return NewError(KindFetchPrices, venue, fmt.Sprintf("Error while fetching prices from %s.", venue), cause)
}

func FetchTradesError(venue string, cause error) *Error {
	return NewError(KindFetchTrades, venue, fmt.Sprintf("Error while fetching trades from %s.", venue), cause)
}

func FetchBalancesError(venue string, cause error) *Error {
	return NewError(KindFetchBalances, venue, fmt.Sprintf("Error while fetching balances from %s.", venue), cause)
}

func APIKeyError(venue string) *Error {
	return NewError(KindAPIKey, venue, fmt.Sprintf("API key or secret for %s is not configured.", venue), nil)
}

func EncodeError(venue string, cause error) *Error {
	return NewError(KindEncode, venue, fmt.Sprintf("Failed to encode the signed request message for %s.", venue), cause)
}

func SignatureError(venue string, cause error) *Error {
	return NewError(KindSignature, venue, fmt.Sprintf("Failed to compute the request signature for %s.", venue), cause)
}

// IsKind reports whether err wraps a core Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
