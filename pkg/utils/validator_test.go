package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"billing@acme.com",
		"accounts.payable+invoices@acme-corp.co.uk",
		"a_b%c@sub.domain.io",
	}
	for _, email := range valid {
		assert.NoError(t, ValidateEmail(email), email)
		assert.True(t, IsValidEmail(email), email)
	}

	invalid := []string{
		"",
		"not-an-email",
		"@acme.com",
		"billing@",
		"billing@acme",
		"billing acme@acme.com",
	}
	for _, email := range invalid {
		assert.Error(t, ValidateEmail(email), email)
		assert.False(t, IsValidEmail(email), email)
	}
}
