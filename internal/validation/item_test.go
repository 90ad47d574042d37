package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSize(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateSize(""))
	assert.NoError(t, ValidateSize("M"))
	assert.NoError(t, ValidateSize("XXL"))
	assert.Error(t, ValidateSize("medium"))
	assert.Error(t, ValidateSize("m"))
}

func TestValidateCondition(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateCondition(""))
	assert.NoError(t, ValidateCondition("like-new"))
	assert.Error(t, ValidateCondition("mint"))
}

func TestValidateTags(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ValidateTags(nil))
	assert.NoError(t, ValidateTags([]string{"vintage", "denim"}))
	assert.Error(t, ValidateTags([]string{""}))
	assert.Error(t, ValidateTags(make([]string, 11)))

	long := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	assert.Error(t, ValidateTags([]string{long}))
}
