package records_test

import (
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yriy-kuskov/cakereact-core/records"
)

func productFields() *records.FieldRegistry {
	return records.NewFieldRegistry().
		RegisterTransform("name", func(value any) any {
			if s, ok := value.(string); ok {
				return strings.TrimSpace(s)
			}
			return value
		}).
		RegisterComputedField("label", func(e *records.Entity, _ any) any {
			return "#" + e.Get("name").(string)
		})
}

func Test_Entity_Set_Then_Get(t *testing.T) {
	testCases := []struct {
		description string
		field       string
		value       any
		expected    any
	}{
		{description: "plain value", field: "price", value: 120, expected: 120},
		{description: "transformed value", field: "name", value: "  Tea  ", expected: "Tea"},
		{description: "nil value", field: "deleted_at", value: nil, expected: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			// arrange
			entity := records.NewEntity(records.Record{"id": 1}, records.WithFields(productFields()), records.AsPersisted())

			// act
			entity.Set(tc.field, tc.value)

			// assert
			assert.Equal(t, tc.expected, entity.Get(tc.field))
			assert.True(t, entity.IsDirty(tc.field))
			assert.True(t, entity.IsDirty())
		})
	}
}

func Test_Entity_Set_When_Value_Equals_Baseline(t *testing.T) {
	// arrange
	entity := records.NewEntity(records.Record{"id": 1, "tags": []string{"a"}}, records.AsPersisted())

	// act
	entity.Set("tags", []string{"a"})

	// assert
	assert.False(t, entity.IsDirty())
	assert.Empty(t, entity.DirtyFields())
}

func Test_Entity_Set_When_Number_Equals_Baseline_In_Another_Type(t *testing.T) {
	testCases := []struct {
		description   string
		baseline      any
		value         any
		expectedDirty bool
	}{
		{description: "int on scanned int64", baseline: int64(100), value: 100, expectedDirty: false},
		{description: "float on scanned int64", baseline: int64(100), value: 100.0, expectedDirty: false},
		{description: "uint on int32", baseline: int32(7), value: uint8(7), expectedDirty: false},
		{description: "different number", baseline: int64(100), value: 101, expectedDirty: true},
		{description: "fraction on int64", baseline: int64(100), value: 100.5, expectedDirty: true},
		{description: "numeric text on int64", baseline: int64(100), value: "100", expectedDirty: true},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			// arrange
			entity := records.NewEntity(records.Record{"id": 1, "price": tc.baseline}, records.AsPersisted())

			// act
			entity.Set("price", tc.value)

			// assert
			assert.Equal(t, tc.expectedDirty, entity.IsDirty("price"))
		})
	}
}

func Test_Entity_Get_When_Field_Is_Absent(t *testing.T) {
	// arrange
	entity := records.NewEntity(records.Record{"id": 1})

	// act
	val, ok := entity.Lookup("missing")

	// assert
	assert.Nil(t, val)
	assert.False(t, ok)
	assert.Nil(t, entity.Get("missing"))
}

func Test_Entity_Get_Prefers_Computed_Field(t *testing.T) {
	// arrange
	entity := records.NewEntity(
		records.Record{"id": 1, "name": "Tea", "label": "stored"},
		records.WithFields(productFields()),
	)

	// act
	label := entity.Get("label")

	// assert
	assert.Equal(t, "#Tea", label)
}

func Test_Entity_Clean_Is_Idempotent(t *testing.T) {
	// arrange
	entity := records.NewEntity(records.Record{"name": "Tea"})
	entity.Set("price", 100)

	// act
	entity.Clean()
	first := entity.Serialize()
	entity.Clean()
	second := entity.Serialize()

	// assert
	assert.False(t, entity.IsDirty())
	assert.False(t, entity.IsNew())
	assert.Equal(t, first, second)
	assert.Equal(t, 100, entity.Get("price"))
}

func Test_Entity_Serialize_After_Clean_Equals_Baseline(t *testing.T) {
	// arrange
	entity := records.NewEntity(records.Record{"id": 7, "name": "Tea"}, records.WithFields(productFields()))
	entity.Set("price", 100)

	// act
	entity.Clean()
	serialized := entity.Serialize()

	// assert
	assert.Equal(t, records.Record{"id": 7, "name": "Tea", "price": 100}, serialized)
}

func Test_Entity_Serialize_WithComputed(t *testing.T) {
	// arrange
	entity := records.NewEntity(records.Record{"id": 7, "name": "Tea"}, records.WithFields(productFields()))

	// act
	named := entity.Serialize(records.WithComputed("label"))
	all := entity.Serialize(records.WithComputed())

	// assert
	assert.Equal(t, "#Tea", named["label"])
	assert.Equal(t, "#Tea", all["label"])
	assert.NotContains(t, entity.Serialize(), "label")
}

func Test_Entity_Serialize_Dirty_Wins(t *testing.T) {
	// arrange
	entity := records.NewEntity(records.Record{"id": 7, "name": "Tea"}, records.AsPersisted())

	// act
	entity.Set("name", "Coffee")

	// assert
	assert.Equal(t, "Coffee", entity.Serialize()["name"])
	assert.Equal(t, []string{"name"}, entity.DirtyFields())
}

func Test_NewEntity_Copies_Data(t *testing.T) {
	// arrange
	data := records.Record{"name": "Tea"}

	// act
	entity := records.NewEntity(data)
	data["name"] = "Coffee"

	// assert
	assert.Equal(t, "Tea", entity.Get("name"))
	assert.True(t, entity.IsNew())
	assert.Nil(t, entity.Model())
}

func Test_Entity_MarshalJSON(t *testing.T) {
	// arrange
	entity := records.NewEntity(records.Record{"id": 7, "name": "Tea"}, records.WithFields(productFields()))
	entity.Set("price", 100)

	// act
	raw, err := jsoniter.Marshal(entity)

	// assert
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"name":"Tea","price":100}`, string(raw))
}

func Test_FieldRegistry_ComputedFields_Sorted(t *testing.T) {
	// arrange
	registry := records.NewFieldRegistry().
		RegisterComputedField("zeta", func(*records.Entity, any) any { return nil }).
		RegisterComputedField("alpha", func(*records.Entity, any) any { return nil })

	// act
	names := registry.ComputedFields()

	// assert
	assert.Equal(t, []string{"alpha", "zeta"}, names)

	var none *records.FieldRegistry
	assert.Nil(t, none.ComputedFields())
}

func Test_Record_Keys_And_Has(t *testing.T) {
	// arrange
	row := records.Record{"b": nil, "a": 1}

	// act
	keys := row.Keys()

	// assert
	assert.Equal(t, []string{"a", "b"}, keys)
	assert.True(t, row.Has("b"))
	assert.False(t, row.Has("c"))

	var empty records.Record
	assert.NotNil(t, empty.Clone())
}
