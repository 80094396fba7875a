package typeid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAndValidate(t *testing.T) {
	id := NewSessionID()
	assert.True(t, strings.HasPrefix(id, PrefixSession+"_"))
	assert.NoError(t, Validate(id, PrefixSession))
	assert.Error(t, Validate(id, PrefixRequest))

	assert.NotEqual(t, NewRequestID(), NewRequestID())
}

func TestValidateRejectsGarbage(t *testing.T) {
	assert.Error(t, Validate("sess_not-a-typeid", PrefixSession))
}
