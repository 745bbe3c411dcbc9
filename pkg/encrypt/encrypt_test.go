package encrypt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePasswordStrength(t *testing.T) {
	assert.NoError(t, ValidatePasswordStrength("Str0ng!pass"))
	for _, weak := range []string{"Sh0rt!", "nouppercase1!", "NoDigits!!", "NoSpecial12"} {
		assert.ErrorIs(t, ValidatePasswordStrength(weak), ErrWeakPassword, weak)
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hashed, err := HashPassword("Str0ng!pass")
	require.NoError(t, err)

	assert.NoError(t, CheckPassword(hashed, "Str0ng!pass"))
	assert.ErrorIs(t, CheckPassword(hashed, "wrong"), ErrPasswordMismatch)

	_, err = HashPassword("weak")
	assert.ErrorIs(t, err, ErrWeakPassword)
}
