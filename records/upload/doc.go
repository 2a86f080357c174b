// Package upload provides a lifecycle behavior that stores uploaded files in object storage and keeps
// only their public URLs in the row.
//
//	store, _ := s3store.FromConfig(ctx, cfg.Blob)
//	behavior, _ := upload.New(store, map[string]upload.FieldConfig{
//		"image": {Folder: "products"},
//	})
//	behavior.Attach(products)
//
// or, registered by name on the Registry:
//
//	err := registry.AddPlugin("uploads", upload.NewPlugin(behavior, products))
//
//	_, _, err := products.SaveRecord(ctx, records.Record{
//		"name":  "Tea",
//		"image": &upload.File{Name: "tea.png", Body: f},
//	})
package upload
