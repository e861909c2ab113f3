package model

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"
)

// Purpose says which gate a token opens.
type Purpose string

const (
	PurposeEntry Purpose = "entry"
	PurposeExit  Purpose = "exit"
)

// String returns the string representation of the purpose.
func (p Purpose) String() string {
	return string(p)
}

// IsValid reports whether p is entry or exit.
func (p Purpose) IsValid() bool {
	return p == PurposeEntry || p == PurposeExit
}

// ParsePurpose converts a CLI argument into a Purpose.
func ParsePurpose(s string) (Purpose, bool) {
	p := Purpose(strings.ToLower(strings.TrimSpace(s)))
	return p, p.IsValid()
}

// Token is a short-lived authorization shown to drivers as a QR code.
type Token struct {
	Value     string    `json:"value"`
	Purpose   Purpose   `json:"purpose"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the token is no longer valid at now.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Remaining returns how long the token stays valid after now, never negative.
func (t *Token) Remaining(now time.Time) time.Duration {
	if d := t.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Payload returns the text to encode into the QR symbol. Entry tokens become
// a claim URL under claimBase so a phone camera can open it directly; exit
// tokens are a small JSON document read by the parking app.
func (t *Token) Payload(claimBase string) string {
	if t.Purpose == PurposeExit {
		data, _ := json.Marshal(struct {
			T    string `json:"t"`
			Type string `json:"type"`
		}{T: t.Value, Type: string(PurposeExit)})
		return string(data)
	}
	q := url.Values{}
	q.Set("t", t.Value)
	q.Set("type", string(PurposeEntry))
	return strings.TrimRight(claimBase, "/") + "/pwa/claim.html?" + q.Encode()
}
