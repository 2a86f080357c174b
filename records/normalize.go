package records

// JoinMetadataKey is the field under which a flattened belongsToMany row carries its pivot row.
const JoinMetadataKey = "joinMetadata"

// normalizeRow flattens belongsToMany pivot wrappers in a raw adapter row.
//
//	{through: [{...pivot, table: {...target}}]}  =>  {alias: [{...target, joinMetadata: {...pivot}}]}
//
// Pivot rows without a target row are dropped. Rows without the through key are left as they are.
func normalizeRow(row Record, relations []RelationDescriptor) Record {
	out := row.Clone()
	flattened := make(map[string][]Record)
	through := make(map[string]struct{})

	for _, rel := range relations {
		if rel.Kind != BelongsToMany {
			continue
		}

		wrapped, ok := out[rel.Through]
		if !ok {
			continue
		}

		pivots := asRecords(wrapped)
		targets := make([]Record, 0, len(pivots))

		for _, pivot := range pivots {
			target, ok := asRecord(pivot[rel.Table])
			if !ok {
				continue
			}

			flat := target.Clone()
			meta := make(Record, len(pivot))
			for field, val := range pivot {
				if field != rel.Table {
					meta[field] = val
				}
			}
			flat[JoinMetadataKey] = meta

			targets = append(targets, flat)
		}

		flattened[rel.Alias] = targets
		through[rel.Through] = struct{}{}
	}

	// several relations may share one pivot table, so wrappers are removed only after all of them ran
	for name := range through {
		delete(out, name)
	}

	for alias, targets := range flattened {
		out[alias] = targets
	}

	return out
}
