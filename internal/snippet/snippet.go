// Package snippet generates the JavaScript block prepended to a target's
// main-process entry script. Generation is pure: no I/O, no clock, no
// randomness, so equal flags and equal options always produce byte-identical
// output.
package snippet

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
	"time"

	"github.com/GhostFramer/GhostFrame/internal/models"
)

// Marker lines delimiting the generated block. Everything outside them is
// opaque target code that must never be touched.
const (
	StartMarker = "// ==== GHOSTFRAME CONTENT PROTECTION START ===="
	EndMarker   = "// ==== GHOSTFRAME CONTENT PROTECTION END ===="
)

var (
	//go:embed js/shell.js
	shellJS string
	//go:embed js/invisibility.js
	invisibilityJS string
	//go:embed js/dock.js
	dockJS string
	//go:embed js/disguise.js
	disguiseJS string
)

var (
	shellTmpl    = template.Must(template.New("shell").Parse(shellJS))
	dockTmpl     = template.Must(template.New("dock").Parse(dockJS))
	disguiseTmpl = template.Must(template.New("disguise").Parse(disguiseJS))
)

// Options fix the generator's tunable constants. They are part of the
// determinism contract: a Generator renders the same bytes for the same
// flags as long as its Options are unchanged.
type Options struct {
	DisguiseName         string
	DockReassertInterval time.Duration
	DockReassertAttempts int
}

// Generator assembles snippet blocks from the embedded fragments.
type Generator struct {
	opts Options
}

// NewGenerator creates a Generator, filling zero-valued options with the
// built-in defaults.
func NewGenerator(opts Options) *Generator {
	if opts.DisguiseName == "" {
		opts.DisguiseName = "com.apple.WebKit.Networking"
	}
	if opts.DockReassertInterval <= 0 {
		opts.DockReassertInterval = 1500 * time.Millisecond
	}
	if opts.DockReassertAttempts <= 0 {
		opts.DockReassertAttempts = 20
	}
	return &Generator{opts: opts}
}

// Generate returns the full marker-delimited block for the given flags.
// Feature bodies appear in fixed order (invisibility, dock, disguise) inside
// a single block. All runtime failures inside the block are caught and
// logged through the target's own console; the host application never
// crashes because of it.
func (g *Generator) Generate(flags models.FeatureFlags) string {
	var bodies []string

	if flags.Invisibility {
		bodies = append(bodies, strings.TrimRight(invisibilityJS, "\n"))
	}
	if flags.DockHidden {
		bodies = append(bodies, strings.TrimRight(mustRender(dockTmpl, struct {
			IntervalMs int64
			Attempts   int
		}{
			IntervalMs: g.opts.DockReassertInterval.Milliseconds(),
			Attempts:   g.opts.DockReassertAttempts,
		}), "\n"))
	}
	if flags.Disguised {
		bodies = append(bodies, strings.TrimRight(mustRender(disguiseTmpl, struct {
			Name string
		}{
			Name: g.opts.DisguiseName,
		}), "\n"))
	}

	shell := mustRender(shellTmpl, struct {
		Bodies string
	}{
		Bodies: indent(strings.Join(bodies, "\n"), "      "),
	})

	return StartMarker + "\n" + strings.TrimRight(shell, "\n") + "\n" + EndMarker + "\n"
}

// mustRender executes a template that cannot fail at runtime: all templates
// are static embedded assets validated at init, and the data is a plain
// value struct. A failure here is a programming error.
func mustRender(t *template.Template, data interface{}) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		panic("snippet: render " + t.Name() + ": " + err.Error())
	}
	return buf.String()
}

func indent(s, prefix string) string {
	if s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
