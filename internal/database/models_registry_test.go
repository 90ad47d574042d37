package database

import (
	"testing"

	modelspkg "threadswap/internal/models"

	"github.com/stretchr/testify/require"
)

func TestPersistentModels_IncludesSwap(t *testing.T) {
	found := false
	for _, model := range PersistentModels() {
		if _, ok := model.(*modelspkg.Swap); ok {
			found = true
			break
		}
	}
	require.True(t, found, "PersistentModels should include Swap")
}

func TestPersistentModels_IncludesItemLike(t *testing.T) {
	found := false
	for _, model := range PersistentModels() {
		if _, ok := model.(*modelspkg.ItemLike); ok {
			found = true
			break
		}
	}
	require.True(t, found, "PersistentModels should include ItemLike")
}
