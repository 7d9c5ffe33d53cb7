// Package models defines data models for tracked applications and their
// protection state.
package models

import "time"

// AppState describes where a tracked application sits in its lifecycle.
type AppState string

const (
	// StateUnprotected means the master flag is off and the entry script is
	// pristine.
	StateUnprotected AppState = "unprotected"
	// StateProtected means the master flag is on and the patch is applied.
	StateProtected AppState = "protected"
	// StateError means the last patch or restore attempt failed; LastError
	// carries the cause.
	StateError AppState = "error"
)

// Feature names accepted by the API and the CLI.
const (
	FeatureInvisibility = "invisibility"
	FeatureDockHidden   = "dock_hidden"
	FeatureDisguised    = "disguised"
)

// FeatureFlags holds the per-application stealth toggles. The flags record
// intent; whether they are live on disk is governed solely by the master
// Protected flag on the owning TrackedApp.
type FeatureFlags struct {
	Invisibility bool `json:"invisibility"`
	DockHidden   bool `json:"dock_hidden"`
	Disguised    bool `json:"disguised"`
}

// DefaultFeatures returns the flag set assigned when an application is first
// tracked: invisibility on, everything else off.
func DefaultFeatures() FeatureFlags {
	return FeatureFlags{Invisibility: true}
}

// Set assigns a flag by its API name. Returns false for an unknown name.
func (f *FeatureFlags) Set(name string, enabled bool) bool {
	switch name {
	case FeatureInvisibility:
		f.Invisibility = enabled
	case FeatureDockHidden:
		f.DockHidden = enabled
	case FeatureDisguised:
		f.Disguised = enabled
	default:
		return false
	}
	return true
}

// TrackedApp represents an application under management.
type TrackedApp struct {
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	BundleID    string       `json:"bundle_id"`
	Path        string       `json:"path"`
	EntryScript string       `json:"entry_script"`
	State       AppState     `json:"state"`
	LastError   string       `json:"last_error,omitempty"`
	Features    FeatureFlags `json:"features"`
	Protected   bool         `json:"protected"`
	NeedsRepair bool         `json:"needs_repair"`
}

// TrackAppRequest contains the data for tracking a new application.
type TrackAppRequest struct {
	Path string `json:"path" binding:"required"`
}

// SetFeatureRequest toggles a single feature flag. The feature name rides
// in the URL; the body only carries the desired value.
type SetFeatureRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetProtectionRequest toggles the master protection flag.
type SetProtectionRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// ValidFeature reports whether name is a recognized feature flag.
func ValidFeature(name string) bool {
	switch name {
	case FeatureInvisibility, FeatureDockHidden, FeatureDisguised:
		return true
	}
	return false
}
