// Package payment handles the backend's x402 payment-required branch: an
// HTTP 402 response is an expected outcome, not an error, and carries a
// descriptor the caller settles out-of-band before retrying with a proof.
package payment

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/txray-labs/txray/internal/constants"
)

// Requirement is one entry of the structured x402 "accepts" array.
type Requirement struct {
	MaxAmountRequired string `json:"maxAmountRequired"`
	PayTo             string `json:"payTo"`
	Network           string `json:"network"`
	Asset             string `json:"asset"`
	Resource          string `json:"resource"`
}

type requiredBody struct {
	Accepts []Requirement `json:"accepts"`
}

// Required describes what the backend wants before it will stream a result.
// Amount is a human-readable decimal string; Raw retains the original 402
// body for unstructured responses and debugging.
type Required struct {
	Amount    string
	Recipient string
	Network   string
	Asset     string
	Reference string
	Raw       json.RawMessage
}

// RequiredError wraps Required so the client can surface the 402 branch
// through an error return without it being a failure.
type RequiredError struct {
	Required Required
}

// Error implements the error interface.
func (e *RequiredError) Error() string {
	if e.Required.Amount != "" {
		return fmt.Sprintf("payment required: %s to %s", e.Required.Amount, e.Required.Recipient)
	}
	return "payment required"
}

// Parse decodes a 402 response body. A body without a parseable accepts
// array still yields a Required with the raw payload retained.
func Parse(body []byte) Required {
	req := Required{Raw: json.RawMessage(body)}

	var decoded requiredBody
	if err := json.Unmarshal(body, &decoded); err != nil || len(decoded.Accepts) == 0 {
		return req
	}

	first := decoded.Accepts[0]
	req.Amount = FormatAtomicAmount(first.MaxAmountRequired)
	req.Recipient = first.PayTo
	req.Network = first.Network
	req.Asset = first.Asset
	req.Reference = first.Resource
	return req
}

// FormatAtomicAmount converts a fixed-point integer string in 6-decimal
// atomic units into a human-readable decimal: "500000" → "0.5",
// "1000000" → "1". Non-numeric input is returned unchanged.
func FormatAtomicAmount(atomic string) string {
	atomic = strings.TrimSpace(atomic)
	if atomic == "" {
		return ""
	}
	for _, r := range atomic {
		if r < '0' || r > '9' {
			return atomic
		}
	}

	// Left-pad so there is always an integer part.
	for len(atomic) <= constants.PaymentDecimals {
		atomic = "0" + atomic
	}

	split := len(atomic) - constants.PaymentDecimals
	whole := strings.TrimLeft(atomic[:split], "0")
	if whole == "" {
		whole = "0"
	}
	frac := strings.TrimRight(atomic[split:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// Proof is the settlement evidence a caller obtained out-of-band (wallet
// signature flow, outside this client's scope).
type Proof struct {
	Signature string `json:"signature"`
	Payer     string `json:"payer"`
	Reference string `json:"reference,omitempty"`
}

// EncodeProof renders a proof as the X-PAYMENT header value
// (base64-encoded JSON).
func EncodeProof(p Proof) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal payment proof: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
