package snippet_test

import (
	"strings"
	"testing"
	"time"

	"github.com/GhostFramer/GhostFrame/internal/models"
	"github.com/GhostFramer/GhostFrame/internal/snippet"
)

func TestGenerate_Deterministic(t *testing.T) {
	gen := snippet.NewGenerator(snippet.Options{})
	flags := models.FeatureFlags{Invisibility: true, DockHidden: true, Disguised: true}

	first := gen.Generate(flags)
	second := gen.Generate(flags)

	if first != second {
		t.Error("expected identical output for repeated calls with equal flags")
	}

	other := snippet.NewGenerator(snippet.Options{})
	if other.Generate(flags) != first {
		t.Error("expected identical output from a fresh generator with equal options")
	}
}

func TestGenerate_MarkersDelimitBlock(t *testing.T) {
	gen := snippet.NewGenerator(snippet.Options{})
	out := gen.Generate(models.FeatureFlags{Invisibility: true})

	if !strings.HasPrefix(out, snippet.StartMarker+"\n") {
		t.Error("expected output to start with the start marker line")
	}
	if !strings.HasSuffix(out, snippet.EndMarker+"\n") {
		t.Error("expected output to end with the end marker line")
	}
	if strings.Count(out, snippet.StartMarker) != 1 {
		t.Errorf("expected exactly one start marker, got %d", strings.Count(out, snippet.StartMarker))
	}
	if strings.Count(out, snippet.EndMarker) != 1 {
		t.Errorf("expected exactly one end marker, got %d", strings.Count(out, snippet.EndMarker))
	}
}

func TestGenerate_InvisibilityOnly(t *testing.T) {
	gen := snippet.NewGenerator(snippet.Options{})
	out := gen.Generate(models.FeatureFlags{Invisibility: true})

	if !strings.Contains(out, "setContentProtection(true)") {
		t.Error("expected capture protection call")
	}
	if !strings.Contains(out, "setHiddenInMissionControl") {
		t.Error("expected window-switcher hiding call")
	}
	if !strings.Contains(out, "browser-window-created") {
		t.Error("expected future windows to be covered")
	}
	if !strings.Contains(out, "getAllWindows()") {
		t.Error("expected existing windows to be covered")
	}
	if strings.Contains(out, "app.dock.hide") {
		t.Error("did not expect dock body with dock flag off")
	}
	if strings.Contains(out, "process.title") {
		t.Error("did not expect disguise body with disguise flag off")
	}
}

func TestGenerate_DockBody(t *testing.T) {
	gen := snippet.NewGenerator(snippet.Options{
		DockReassertInterval: time.Second,
		DockReassertAttempts: 5,
	})
	out := gen.Generate(models.FeatureFlags{DockHidden: true})

	if !strings.Contains(out, "app.dock.hide()") {
		t.Error("expected dock hide call")
	}
	if !strings.Contains(out, "setInterval") {
		t.Error("expected repeated reassertion timer")
	}
	if !strings.Contains(out, "1000") {
		t.Error("expected configured reassert interval in milliseconds")
	}
	if !strings.Contains(out, "dockAttempts >= 5") {
		t.Error("expected configured attempt bound")
	}
	if !strings.Contains(out, "app.dock.show = function () {}") {
		t.Error("expected the target's own dock show call to be suppressed")
	}
}

func TestGenerate_DisguiseBody(t *testing.T) {
	gen := snippet.NewGenerator(snippet.Options{DisguiseName: "com.apple.sysmond"})
	out := gen.Generate(models.FeatureFlags{Disguised: true})

	if !strings.Contains(out, "process.title = 'com.apple.sysmond'") {
		t.Error("expected process title disguise with configured name")
	}
}

func TestGenerate_DefaultDisguiseName(t *testing.T) {
	gen := snippet.NewGenerator(snippet.Options{})
	out := gen.Generate(models.FeatureFlags{Disguised: true})

	if !strings.Contains(out, "com.apple.WebKit.Networking") {
		t.Error("expected default disguise name")
	}
}

func TestGenerate_CombinedFlagsSingleBlock(t *testing.T) {
	gen := snippet.NewGenerator(snippet.Options{})
	out := gen.Generate(models.FeatureFlags{Invisibility: true, DockHidden: true})

	if strings.Count(out, snippet.StartMarker) != 1 {
		t.Error("expected a single block for combined flags")
	}
	if !strings.Contains(out, "setContentProtection(true)") {
		t.Error("expected invisibility body in combined block")
	}
	if !strings.Contains(out, "app.dock.hide()") {
		t.Error("expected dock body in combined block")
	}

	// Bodies keep a fixed order: invisibility before dock.
	if strings.Index(out, "setContentProtection") > strings.Index(out, "app.dock.hide") {
		t.Error("expected invisibility body before dock body")
	}
}

func TestGenerate_NoFlagsStillWellFormed(t *testing.T) {
	gen := snippet.NewGenerator(snippet.Options{})
	out := gen.Generate(models.FeatureFlags{})

	if !strings.HasPrefix(out, snippet.StartMarker+"\n") {
		t.Error("expected marker-delimited block even with no features")
	}
	if strings.Contains(out, "setContentProtection") || strings.Contains(out, "app.dock.hide") || strings.Contains(out, "process.title") {
		t.Error("did not expect any feature bodies with all flags off")
	}
}

func TestGenerate_SupportsBothModuleConventions(t *testing.T) {
	gen := snippet.NewGenerator(snippet.Options{})
	out := gen.Generate(models.FeatureFlags{Invisibility: true})

	if !strings.Contains(out, "require('electron')") {
		t.Error("expected CommonJS require path")
	}
	if !strings.Contains(out, "import('electron')") {
		t.Error("expected dynamic import fallback for ESM entries")
	}
}

func TestGenerate_FailuresAreContained(t *testing.T) {
	gen := snippet.NewGenerator(snippet.Options{})
	out := gen.Generate(models.FeatureFlags{Invisibility: true, DockHidden: true, Disguised: true})

	if !strings.Contains(out, "try {") || !strings.Contains(out, "catch (initErr)") {
		t.Error("expected the whole block to be wrapped in try/catch")
	}
	if !strings.Contains(out, "console.error('[ghostframe]") {
		t.Error("expected failures to be logged through the target console")
	}
}
