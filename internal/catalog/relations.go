package catalog

// Relation names one physical relation in the fixed join catalog. Reports can
// only reach relations listed here; arbitrary joins are not supported.
type Relation string

const (
	RelItems            Relation = "items"
	RelCategories       Relation = "categories"
	RelInventoryEntries Relation = "inventory_entries"
	RelUsers            Relation = "users"
	RelSuppliers        Relation = "suppliers"
	RelItemSuppliers    Relation = "item_suppliers"
)

// RootRelation is always present in a compiled query; every join path starts
// at the items table.
const RootRelation = RelItems

// RootAlias is the SQL alias of the root relation.
const RootAlias = "i"

// relationMeta describes how one relation joins into the query.
type relationMeta struct {
	alias string
	// join is the full outer-join fragment, conditioned on the foreign key.
	join string
	// requires lists relations that must be joined before this one; the join
	// path runs through them.
	requires []Relation
}

// relationTable is the fixed dependency catalog. Join fragments are static
// text: no caller input ever reaches them.
var relationTable = map[Relation]relationMeta{
	RelItems: {alias: RootAlias},
	RelCategories: {
		alias: "c",
		join:  "LEFT JOIN categories c ON c.id = i.category_id",
	},
	RelInventoryEntries: {
		alias: "ie",
		join:  "LEFT JOIN inventory_entries ie ON ie.item_id = i.id",
	},
	RelUsers: {
		alias:    "u",
		join:     "LEFT JOIN users u ON u.id = ie.user_id",
		requires: []Relation{RelInventoryEntries},
	},
	RelItemSuppliers: {
		alias: "isup",
		join:  "LEFT JOIN item_suppliers isup ON isup.item_id = i.id",
	},
	RelSuppliers: {
		alias:    "s",
		join:     "LEFT JOIN suppliers s ON s.id = isup.supplier_id",
		requires: []Relation{RelItemSuppliers},
	},
}

// joinOrder fixes the emission order of joins so compilation stays
// deterministic regardless of which fields requested them.
var joinOrder = []Relation{
	RelCategories,
	RelInventoryEntries,
	RelUsers,
	RelItemSuppliers,
	RelSuppliers,
}

// KnownRelation reports whether the relation exists in the fixed catalog.
func KnownRelation(r Relation) bool {
	_, ok := relationTable[r]
	return ok
}

// Alias returns the SQL alias for a relation.
func Alias(r Relation) string {
	return relationTable[r].alias
}

// ResolveJoins expands a set of required relations with their dependencies and
// returns the join fragments in the fixed deterministic order. The root
// relation needs no join and is skipped.
func ResolveJoins(required map[Relation]bool) []string {
	closed := make(map[Relation]bool, len(required))
	for r := range required {
		closeOver(r, closed)
	}

	joins := make([]string, 0, len(closed))
	for _, r := range joinOrder {
		if closed[r] {
			joins = append(joins, relationTable[r].join)
		}
	}
	return joins
}

func closeOver(r Relation, closed map[Relation]bool) {
	if r == RootRelation || closed[r] {
		return
	}
	meta, ok := relationTable[r]
	if !ok {
		return
	}
	for _, dep := range meta.requires {
		closeOver(dep, closed)
	}
	closed[r] = true
}
