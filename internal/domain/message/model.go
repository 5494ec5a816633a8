// Package message defines the hello-world message entity and its input rules.
package message

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/R3E-Network/greeter/internal/errors"
)

// MaxNameLength is the longest accepted name, in characters.
const MaxNameLength = 100

var validate = validator.New()

// Message is a greeting record created by the backend.
type Message struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateInput is the body of create and update requests.
type CreateInput struct {
	Name string `json:"name"`
}

// Greeting returns the greeting the backend derives from name.
func Greeting(name string) string {
	return fmt.Sprintf("Hello, %s!", name)
}

// Validate checks the name: required after trimming, at most MaxNameLength
// characters as sent.
func (in CreateInput) Validate() error {
	if err := validate.Var(strings.TrimSpace(in.Name), "required"); err != nil {
		return errors.Validation("Name is required").WithDetails("field", "name")
	}
	if err := validate.Var(in.Name, fmt.Sprintf("max=%d", MaxNameLength)); err != nil {
		return errors.Validation(fmt.Sprintf("Name must be less than %d characters", MaxNameLength)).WithDetails("field", "name")
	}
	return nil
}

// ParseID parses a message id; it must be a positive integer.
func ParseID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, errors.Validation("Invalid ID provided").WithDetails("id", raw)
	}
	return id, nil
}
