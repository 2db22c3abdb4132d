// Package contact validates contact form submissions and defines how they
// are delivered.
package contact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// User-facing messages.
const (
	MsgValidationFailed = "Validation failed"
	MsgDelivered        = "Thank you for your message! I will get back to you soon."
	MsgDeliveryFailed   = "Something went wrong. Please try again later."

	MsgNameTooShort    = "Name must be at least 2 characters"
	MsgInvalidEmail    = "Invalid email address"
	MsgMessageTooShort = "Message must be at least 10 characters"
)

// Submission is one contact form post.
type Submission struct {
	Name    string `json:"name" validate:"min=2"`
	Email   string `json:"email" validate:"email"`
	Message string `json:"message" validate:"min=10"`
}

// FieldErrors lists validation messages per field.
type FieldErrors struct {
	Name    []string `json:"name,omitempty"`
	Email   []string `json:"email,omitempty"`
	Message []string `json:"message,omitempty"`
}

// Empty reports whether no field failed.
func (f FieldErrors) Empty() bool {
	return len(f.Name) == 0 && len(f.Email) == 0 && len(f.Message) == 0
}

// State is the outcome returned to the form.
type State struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Errors  *FieldErrors `json:"errors,omitempty"`
}

// Notifier delivers a valid submission to the site owner.
type Notifier interface {
	Notify(ctx context.Context, s Submission) error
}

// Validator checks submissions. It is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// NewValidator builds a Validator.
func NewValidator() *Validator {
	return &Validator{v: validator.New()}
}

// Validate returns the per-field messages for s; the result is Empty when
// s is acceptable.
func (v *Validator) Validate(s Submission) FieldErrors {
	var out FieldErrors
	err := v.v.Struct(s)
	if err == nil {
		return out
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// only reachable on programmer error (non-struct input)
		out.Message = append(out.Message, MsgValidationFailed)
		return out
	}
	for _, fe := range verrs {
		switch fe.StructField() {
		case "Name":
			out.Name = append(out.Name, MsgNameTooShort)
		case "Email":
			out.Email = append(out.Email, MsgInvalidEmail)
		case "Message":
			out.Message = append(out.Message, MsgMessageTooShort)
		}
	}
	return out
}

// Fingerprint identifies a submission for duplicate detection. Case and
// surrounding whitespace of the email are ignored.
func Fingerprint(s Submission) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(s.Email))))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSpace(s.Name)))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimSpace(s.Message)))
	return hex.EncodeToString(h.Sum(nil))
}
