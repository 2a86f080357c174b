// Package validation provides the declarative, ordered field validation used by records.Model.
//
// Rules are added per field with Add (named rule) or AddFunc (predicate) and evaluated in registration
// order. A failing rule added with StopOnFailure skips the remaining rules of its field:
//
//	v := validation.New().
//		Add("name", validation.RuleNotEmpty, validation.WithMessage("Name is required"), validation.StopOnFailure()).
//		Add("name", validation.RuleMinLength, validation.WithParams(3)).
//		Add("barcode", validation.RuleBarcode)
//
//	failures, err := v.Validate(ctx, data)
package validation
