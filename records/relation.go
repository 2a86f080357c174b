package records

import (
	"slices"
	"strings"

	"github.com/jinzhu/inflection"
)

// RelationKind distinguishes the three supported associations.
type RelationKind int

const (
	// BelongsTo links a row to a single parent row through a foreign key on the row itself.
	BelongsTo RelationKind = iota

	// HasMany links a row to child rows carrying a foreign key to it.
	HasMany

	// BelongsToMany links a row to target rows through a join (pivot) table.
	BelongsToMany
)

// String provides a string representation of RelationKind for logging and debugging.
func (k RelationKind) String() string {
	switch k {
	case BelongsTo:
		return "belongsTo"
	case HasMany:
		return "hasMany"
	case BelongsToMany:
		return "belongsToMany"
	default:
		return "unknown"
	}
}

const (
	defaultTargetPrimaryKey   = "id"
	defaultPolymorphicKey     = "foreign_key"
	defaultPolymorphicTypeCol = "model"
	foreignKeySuffix          = "_id"
	throughTableNameSeparator = "_"
	relationKindCount         = 3
)

// Relation declares an association under an alias. Every field is optional:
// Table defaults to the alias and the key columns follow naming conventions.
type Relation struct {
	Table            string
	Through          string
	Polymorphic      bool
	ForeignKey       string
	TargetForeignKey string
	TargetPrimaryKey string
	TypeColumn       string
}

// RelationDescriptor is a fully resolved relation as handed to an Adapter.
//
// Column meaning per kind:
//   - BelongsTo: ForeignKey is on the owning row, it references Table.TargetPrimaryKey.
//   - HasMany: ForeignKey is on the rows of Table, it references OwnerTable.OwnerPrimaryKey.
//   - BelongsToMany: ForeignKey and TargetForeignKey are on the rows of Through, referencing the
//     owner and Table.TargetPrimaryKey. When Polymorphic, pivot rows are limited to TypeColumn = OwnerTable.
type RelationDescriptor struct {
	Alias            string
	Kind             RelationKind
	Table            string
	Through          string
	Polymorphic      bool
	ForeignKey       string
	TargetForeignKey string
	TargetPrimaryKey string
	TypeColumn       string
	OwnerTable       string
	OwnerPrimaryKey  string
}

// Relations groups the relation declarations of a Model by kind.
type Relations struct {
	BelongsTo     map[string]Relation
	HasMany       map[string]Relation
	BelongsToMany map[string]Relation
}

func (r Relations) byKind(kind RelationKind) map[string]Relation {
	switch kind {
	case BelongsTo:
		return r.BelongsTo
	case HasMany:
		return r.HasMany
	default:
		return r.BelongsToMany
	}
}

func (r Relations) lookup(alias string) (Relation, RelationKind, bool) {
	for kind := RelationKind(0); kind < relationKindCount; kind++ {
		if rel, ok := r.byKind(kind)[alias]; ok {
			return rel, kind, true
		}
	}

	return Relation{}, 0, false
}

func (r Relations) aliases() []string {
	aliases := make([]string, 0)
	for kind := RelationKind(0); kind < relationKindCount; kind++ {
		declared := r.byKind(kind)
		kindAliases := make([]string, 0, len(declared))
		for alias := range declared {
			kindAliases = append(kindAliases, alias)
		}
		slices.Sort(kindAliases)
		aliases = append(aliases, kindAliases...)
	}

	return aliases
}

// resolve turns a declaration into a descriptor with concrete table and key column names.
func (rel Relation) resolve(alias string, kind RelationKind, ownerTable, ownerPrimaryKey string) RelationDescriptor {
	d := RelationDescriptor{
		Alias:            alias,
		Kind:             kind,
		Table:            rel.Table,
		Through:          rel.Through,
		Polymorphic:      rel.Polymorphic,
		ForeignKey:       rel.ForeignKey,
		TargetForeignKey: rel.TargetForeignKey,
		TargetPrimaryKey: rel.TargetPrimaryKey,
		TypeColumn:       rel.TypeColumn,
		OwnerTable:       ownerTable,
		OwnerPrimaryKey:  ownerPrimaryKey,
	}

	if d.Table == "" {
		d.Table = alias
	}

	if d.TargetPrimaryKey == "" {
		d.TargetPrimaryKey = defaultTargetPrimaryKey
	}

	switch kind {
	case BelongsTo:
		if d.ForeignKey == "" {
			d.ForeignKey = foreignKeyFor(d.Table)
		}

	case HasMany:
		if d.ForeignKey == "" {
			d.ForeignKey = foreignKeyFor(ownerTable)
		}

	case BelongsToMany:
		if d.Through == "" {
			tables := []string{ownerTable, d.Table}
			slices.Sort(tables)
			d.Through = strings.Join(tables, throughTableNameSeparator)
		}

		if d.TargetForeignKey == "" {
			d.TargetForeignKey = foreignKeyFor(d.Table)
		}

		if d.Polymorphic {
			if d.ForeignKey == "" {
				d.ForeignKey = defaultPolymorphicKey
			}
			if d.TypeColumn == "" {
				d.TypeColumn = defaultPolymorphicTypeCol
			}
		} else if d.ForeignKey == "" {
			d.ForeignKey = foreignKeyFor(ownerTable)
		}
	}

	return d
}

// foreignKeyFor derives the conventional foreign key column for a table: "categories" -> "category_id".
func foreignKeyFor(table string) string {
	return inflection.Singular(table) + foreignKeySuffix
}
