package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveJoins_RootNeedsNoJoin(t *testing.T) {
	joins := ResolveJoins(map[Relation]bool{RelItems: true})
	assert.Empty(t, joins)
}

func TestResolveJoins_ExpandsDependencies(t *testing.T) {
	// users joins through inventory_entries even when entries were not
	// requested directly.
	joins := ResolveJoins(map[Relation]bool{RelUsers: true})
	require.Len(t, joins, 2)
	assert.Contains(t, joins[0], "inventory_entries ie")
	assert.Contains(t, joins[1], "users u")
}

func TestResolveJoins_SuppliersRequireLinkTable(t *testing.T) {
	joins := ResolveJoins(map[Relation]bool{RelSuppliers: true})
	require.Len(t, joins, 2)
	assert.Contains(t, joins[0], "item_suppliers isup")
	assert.Contains(t, joins[1], "suppliers s")
}

func TestResolveJoins_DeterministicOrder(t *testing.T) {
	a := ResolveJoins(map[Relation]bool{RelSuppliers: true, RelCategories: true, RelUsers: true})
	for i := 0; i < 20; i++ {
		b := ResolveJoins(map[Relation]bool{RelUsers: true, RelCategories: true, RelSuppliers: true})
		assert.Equal(t, a, b)
	}
	// categories always emits before the entry-side joins
	assert.Contains(t, a[0], "categories c")
}

func TestKnownRelation(t *testing.T) {
	assert.True(t, KnownRelation(RelItems))
	assert.True(t, KnownRelation(RelSuppliers))
	assert.False(t, KnownRelation(Relation("orders")))
}

func TestAlias(t *testing.T) {
	assert.Equal(t, "i", Alias(RelItems))
	assert.Equal(t, "ie", Alias(RelInventoryEntries))
}
