package models

// ExportVersion is the current export file format version.
const ExportVersion = "1.0"

// AppExport represents a tracked application in an export file. Patch state
// is deliberately absent: imports always arrive unprotected and are
// re-resolved against the local disk.
type AppExport struct {
	Name     string       `json:"name"`
	BundleID string       `json:"bundle_id"`
	Path     string       `json:"path"`
	Features FeatureFlags `json:"features"`
}

// ExportData represents the full export structure.
type ExportData struct {
	Version    string      `json:"version"`
	ExportedAt string      `json:"exported_at"`
	Apps       []AppExport `json:"apps"`
}
