package entities

import "github.com/shopspring/decimal"

// CheckoutRequest is sent to the gateway to open a hosted checkout.
type CheckoutRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Email       string
	FirstName   string
	LastName    string
	PhoneNumber string
	Reference   string
	CallbackURL string
	ReturnURL   string
	Title       string
	Description string
	Meta        map[string]string
}

// CheckoutResult is the gateway's answer to an initialize call.
type CheckoutResult struct {
	Status      string
	Message     string
	CheckoutURL string
}

func (r CheckoutResult) Accepted() bool {
	return r.Status == GatewayStatusSuccess && r.CheckoutURL != ""
}

// GatewayVerification is the gateway's own view of a transaction.
//
// Status is the API call status, TransactionStatus is data.status.
type GatewayVerification struct {
	Status            string
	Message           string
	TransactionStatus string
	Reference         string
}

const GatewayStatusSuccess = "success"

func (v GatewayVerification) Succeeded() bool {
	return v.Status == GatewayStatusSuccess && v.TransactionStatus == GatewayStatusSuccess
}

type Bank struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// GatewayCallback is an inbound gateway notification before any trust decision.
//
// Signed callbacks carry the raw body and the signature header. Redirects carry
// only the reference and reported status taken from the query string.
type GatewayCallback struct {
	Signed         bool
	RawBody        []byte
	Signature      string
	Reference      string
	ReportedStatus string
}

type IngestOutcome string

const (
	IngestOutcomeProcessed        IngestOutcome = "processed"
	IngestOutcomeNotFound         IngestOutcome = "not_found"
	IngestOutcomeAlreadyProcessed IngestOutcome = "already_processed"
)

type IngestResult struct {
	Outcome   IngestOutcome
	PaymentID string
	Status    PaymentStatus
}
