package ledger

import "fmt"

// Rejection codes. Every rejected request carries exactly one of these; they
// are stable and machine-readable so the gateway can map them to HTTP status
// codes without parsing messages.
const (
	CodeInvalidKind         = "INVALID_KIND"
	CodeInvalidQuantitySign = "INVALID_QUANTITY_SIGN"
	CodeInvalidTransfer     = "INVALID_TRANSFER"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeCrossBrandTransfer  = "CROSS_BRAND_TRANSFER"
	CodeUnauthorizedActor   = "UNAUTHORIZED_ACTOR"
	CodeBalanceNotFound     = "BALANCE_NOT_FOUND"
	CodeCrossBrandBalance   = "CROSS_BRAND_BALANCE"
	CodeDuplicateBalance    = "DUPLICATE_BALANCE"
)

// Rejection is a validation failure. It never accompanies partial state: a
// rejected request has no observable effect on balances or the ledger.
type Rejection struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}

func reject(code, format string, args ...interface{}) *Rejection {
	return &Rejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsRejection unwraps err into a *Rejection if it is one.
func AsRejection(err error) (*Rejection, bool) {
	r, ok := err.(*Rejection)
	return r, ok
}
