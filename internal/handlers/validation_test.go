package handlers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateRequest_Username(t *testing.T) {
	tests := []struct {
		username string
		valid    bool
	}{
		{"alice", true},
		{"a_b-c", true},
		{"Bob42", true},
		{"ab", false},
		{"_alice", false},
		{"alice-", false},
		{"al ice", false},
		{"alice!", false},
		{strings.Repeat("a", 50), true},
		{strings.Repeat("a", 51), false},
	}

	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			err := ValidateRequest(RegisterRequest{
				Username: tt.username,
				Email:    "alice@example.com",
				Password: "Correct-Horse-9!",
			})
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, "Username")
			}
		})
	}
}

func TestValidateRequest_Email(t *testing.T) {
	err := ValidateRequest(LoginRequest{Email: "not-an-email", Password: "x"})
	assert.ErrorContains(t, err, "must be a valid email address")

	err = ValidateRequest(LoginRequest{Email: "alice@example.com"})
	assert.ErrorContains(t, err, "Password: this field is required")
}
