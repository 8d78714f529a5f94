// Package language maps uploaded filenames to legacy language labels and
// normalizes those labels into fixture-family keys.
package language

import (
	"sort"
	"strings"
	"unicode"
)

// Label is a human-readable language name (e.g. "COBOL", "Visual Basic 6").
type Label = string

// Key is a normalized lowercase alphanumeric identifier used to index fixtures.
type Key = string

// Unknown is returned for unrecognized or missing extensions.
const Unknown Label = "Unknown"

// Era groups extensions by the period or domain they come from.
type Era string

const (
	EraMainframe  Era = "mainframe"
	EraDesktop    Era = "desktop"
	EraDatabase   Era = "database"
	EraScientific Era = "scientific"
	EraWebLegacy  Era = "web-legacy"
	EraScripting  Era = "scripting"
	EraSystems    Era = "systems"
	EraHistorical Era = "historical"
)

// Extension is a single row of the classification table.
type Extension struct {
	Ext   string `json:"ext"`
	Label Label  `json:"label"`
	Era   Era    `json:"era"`
}

var table = []Extension{
	{"cbl", "COBOL", EraMainframe},
	{"cob", "COBOL", EraMainframe},
	{"rpg", "RPG", EraMainframe},
	{"rpgle", "RPG IV", EraMainframe},
	{"jcl", "JCL", EraMainframe},
	{"pli", "PL/I", EraMainframe},
	{"pl1", "PL/I", EraMainframe},

	{"vb", "Visual Basic 6", EraDesktop},
	{"bas", "Visual Basic", EraDesktop},
	{"frm", "Visual Basic Forms", EraDesktop},
	{"cls", "VB Class", EraDesktop},
	{"pb", "PowerBuilder", EraDesktop},
	{"prw", "AdvPL (Protheus)", EraDesktop},
	{"dpr", "Delphi", EraDesktop},
	{"dfm", "Delphi Form", EraDesktop},

	{"prg", "Clipper/dBASE", EraDatabase},
	{"dbf", "dBASE", EraDatabase},
	{"fmb", "Oracle Forms", EraDatabase},
	{"mmb", "Oracle Menu", EraDatabase},
	{"pll", "Oracle PL/SQL Library", EraDatabase},

	{"for", "Fortran 77", EraScientific},
	{"f", "Fortran", EraScientific},
	{"f90", "Fortran 90", EraScientific},
	{"f95", "Fortran 95", EraScientific},
	{"ada", "Ada", EraScientific},
	{"adb", "Ada Body", EraScientific},
	{"ads", "Ada Spec", EraScientific},
	{"apl", "APL", EraScientific},

	{"php", "PHP 5.x", EraWebLegacy},
	{"php3", "PHP 3", EraWebLegacy},
	{"php4", "PHP 4", EraWebLegacy},
	{"asp", "Classic ASP", EraWebLegacy},
	{"cfm", "ColdFusion", EraWebLegacy},
	{"cfc", "ColdFusion Component", EraWebLegacy},
	{"jsp", "JSP", EraWebLegacy},

	{"pl", "Perl", EraScripting},
	{"pm", "Perl Module", EraScripting},
	{"tcl", "Tcl", EraScripting},
	{"awk", "AWK", EraScripting},
	{"sed", "SED", EraScripting},

	{"asm", "Assembly", EraSystems},
	{"s", "Assembly", EraSystems},
	{"pas", "Pascal", EraSystems},
	{"pp", "Pascal", EraSystems},
	{"mod", "Modula-2", EraSystems},
	{"def", "Modula-2 Definition", EraSystems},

	{"alg", "ALGOL", EraHistorical},
	{"sim", "Simula", EraHistorical},
	{"sno", "SNOBOL", EraHistorical},
	{"lsp", "Lisp", EraHistorical},
	{"scm", "Scheme", EraHistorical},
	{"logo", "Logo", EraHistorical},
	{"rex", "REXX", EraHistorical},
}

var byExt = func() map[string]Label {
	m := make(map[string]Label, len(table))
	for _, e := range table {
		m[e.Ext] = e.Label
	}
	return m
}()

// Classify returns the legacy language label for filename based on the text
// after its last dot. It never fails: unknown or missing extensions yield Unknown.
func Classify(filename string) Label {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return Unknown
	}
	ext := strings.ToLower(filename[idx+1:])
	if label, ok := byExt[ext]; ok {
		return label
	}
	return Unknown
}

// NormalizeKey lowercases label and drops every rune outside [a-z0-9].
func NormalizeKey(label Label) Key {
	var b strings.Builder
	b.Grow(len(label))
	for _, r := range strings.ToLower(label) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// families collapses dialect labels onto the fixture family that covers them.
var families = map[Label]Key{
	"RPG IV":              "rpg",
	"Visual Basic 6":      "vb6",
	"Visual Basic":        "vb6",
	"Visual Basic Forms":  "vb6",
	"VB Class":            "vb6",
	"Delphi Form":         "delphi",
	"Fortran 77":          "fortran",
	"Fortran 90":          "fortran",
	"Fortran 95":          "fortran",
	"Ada Body":            "ada",
	"Ada Spec":            "ada",
	"PHP 5.x":             "php",
	"PHP 3":               "php",
	"PHP 4":               "php",
	"Perl Module":         "perl",
	"Modula-2 Definition": "modula2",
}

// FamilyOf returns the fixture-family key for label. Labels without an alias
// fall back to their normalized key.
func FamilyOf(label Label) Key {
	if key, ok := families[label]; ok {
		return key
	}
	return NormalizeKey(label)
}

// Extensions returns a copy of the classification table sorted by era then extension.
func Extensions() []Extension {
	out := make([]Extension, len(table))
	copy(out, table)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Era != out[j].Era {
			return eraOrder(out[i].Era) < eraOrder(out[j].Era)
		}
		return out[i].Ext < out[j].Ext
	})
	return out
}

// Labels returns the distinct labels known to the classifier, sorted.
func Labels() []Label {
	seen := make(map[Label]struct{}, len(table))
	var out []Label
	for _, e := range table {
		if _, ok := seen[e.Label]; ok {
			continue
		}
		seen[e.Label] = struct{}{}
		out = append(out, e.Label)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}

func eraOrder(e Era) int {
	switch e {
	case EraMainframe:
		return 0
	case EraDesktop:
		return 1
	case EraDatabase:
		return 2
	case EraScientific:
		return 3
	case EraWebLegacy:
		return 4
	case EraScripting:
		return 5
	case EraSystems:
		return 6
	default:
		return 7
	}
}

// isPrintableName reports whether name contains at least one visible rune.
func isPrintableName(name string) bool {
	for _, r := range name {
		if !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}
