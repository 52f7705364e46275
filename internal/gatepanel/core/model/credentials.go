package model

import "fmt"

// Credentials are the broker username and password entered by the operator.
// They are forwarded to the transport and never retained or logged.
type Credentials struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe,omitempty"`
}

// String redacts the password so Credentials are safe in log fields and %v.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Username: %q, Password: [REDACTED]}", c.Username)
}

// GoString keeps %#v from printing the password.
func (c Credentials) GoString() string { return c.String() }

// Complete reports whether both username and password are set.
func (c Credentials) Complete() bool {
	return c.Username != "" && c.Password != ""
}
