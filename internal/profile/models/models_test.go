package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "phasegate/pkg/domain-errors"
)

func TestEmailDomain(t *testing.T) {
	d, err := EmailDomain(" Owner@Acme.Example ")
	require.NoError(t, err)
	assert.Equal(t, "acme.example", d)

	for _, in := range []string{"", "acme.example", "@acme.example", "owner@"} {
		_, err := EmailDomain(in)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), in)
	}
}
