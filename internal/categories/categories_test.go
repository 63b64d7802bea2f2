package categories

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSet_PreservesOrderDropsDuplicates(t *testing.T) {
	set := NewSet([]string{"Transport", "Salary", "Transport", "Other"})
	assert.Equal(t, []string{"Transport", "Salary", "Other"}, set.All())
}

func TestAllowed(t *testing.T) {
	set := Default()
	assert.True(t, set.Allowed("Food & Groceries"))
	assert.True(t, set.Allowed("Other"))
	assert.False(t, set.Allowed("food & groceries"), "lookup is case sensitive")
	assert.False(t, set.Allowed("Crypto"))
}

func TestDefaultNames_MatchDefaultSet(t *testing.T) {
	assert.Equal(t, DefaultNames(), Default().All())
}
