// Package palette resolves free-text task categories to a stable style bucket.
package palette

import (
	"strings"
	"unicode/utf16"

	"github.com/artyomia/marketingganttai/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// Style is one palette entry. Bar, Background and Text are CSS class names
// for the web view; Hex is used by charts and the terminal.
type Style struct {
	Bar        string `json:"bar" mapstructure:"bar"`
	Background string `json:"bg" mapstructure:"bg"`
	Text       string `json:"text" mapstructure:"text"`
	Hex        string `json:"hex" mapstructure:"hex"`
}

// Override maps a keyword to a bucket. Keywords match as case-insensitive
// substrings of the category.
type Override struct {
	Keyword string `mapstructure:"keyword"`
	Bucket  int    `mapstructure:"bucket"`
}

// DefaultPalette is the eight-colour palette.
var DefaultPalette = []Style{
	{Bar: "bg-indigo-500", Background: "bg-indigo-100", Text: "text-indigo-800", Hex: "#6366f1"},
	{Bar: "bg-rose-500", Background: "bg-rose-100", Text: "text-rose-800", Hex: "#f43f5e"},
	{Bar: "bg-emerald-500", Background: "bg-emerald-100", Text: "text-emerald-800", Hex: "#10b981"},
	{Bar: "bg-purple-500", Background: "bg-purple-100", Text: "text-purple-800", Hex: "#a855f7"},
	{Bar: "bg-pink-500", Background: "bg-pink-100", Text: "text-pink-800", Hex: "#ec4899"},
	{Bar: "bg-blue-500", Background: "bg-blue-100", Text: "text-blue-800", Hex: "#3b82f6"},
	{Bar: "bg-orange-500", Background: "bg-orange-100", Text: "text-orange-800", Hex: "#f97316"},
	{Bar: "bg-cyan-500", Background: "bg-cyan-100", Text: "text-cyan-800", Hex: "#06b6d4"},
}

// DefaultOverrides is checked in order; the first match wins.
var DefaultOverrides = []Override{
	{Keyword: "digital", Bucket: 0},
	{Keyword: "event", Bucket: 1},
	{Keyword: "sale", Bucket: 2},
	{Keyword: "content", Bucket: 3},
	{Keyword: "design", Bucket: 4},
	{Keyword: "plan", Bucket: 5},
}

// StatusColors maps each status to its indicator class and hex colour.
var StatusColors = map[model.Status]Style{
	model.StatusTodo:       {Bar: "bg-slate-300", Hex: "#cbd5e1"},
	model.StatusInProgress: {Bar: "bg-blue-400", Hex: "#60a5fa"},
	model.StatusDone:       {Bar: "bg-emerald-500", Hex: "#10b981"},
	model.StatusBlocked:    {Bar: "bg-red-400", Hex: "#f87171"},
}

// Resolver maps categories to palette buckets. The zero value is not usable;
// construct one with New or Default.
type Resolver struct {
	styles    []Style
	overrides []Override
}

// New builds a resolver. Overrides pointing outside the palette are dropped.
// An empty palette falls back to DefaultPalette.
func New(styles []Style, overrides []Override) *Resolver {
	if len(styles) == 0 {
		styles = DefaultPalette
	}
	kept := make([]Override, 0, len(overrides))
	for _, o := range overrides {
		if o.Keyword == "" || o.Bucket < 0 || o.Bucket >= len(styles) {
			continue
		}
		kept = append(kept, Override{Keyword: strings.ToLower(o.Keyword), Bucket: o.Bucket})
	}
	return &Resolver{styles: styles, overrides: kept}
}

// Default returns a resolver over the default palette and overrides.
func Default() *Resolver {
	return New(DefaultPalette, DefaultOverrides)
}

// Size is the number of buckets.
func (r *Resolver) Size() int {
	return len(r.styles)
}

// Bucket returns the palette index for category.
func (r *Resolver) Bucket(category string) int {
	if category == "" {
		return 0
	}
	normalized := strings.ToLower(category)
	for _, o := range r.overrides {
		if strings.Contains(normalized, o.Keyword) {
			return o.Bucket
		}
	}
	h := int64(Hash(category))
	if h < 0 {
		h = -h
	}
	return int(h % int64(len(r.styles)))
}

// Style returns the palette entry for category.
func (r *Resolver) Style(category string) Style {
	return r.styles[r.Bucket(category)]
}

// StyleAt returns the palette entry at bucket, clamped into range.
func (r *Resolver) StyleAt(bucket int) Style {
	if bucket < 0 || bucket >= len(r.styles) {
		bucket = 0
	}
	return r.styles[bucket]
}

// Terminal returns a lipgloss style painting bars in the category colour.
func (r *Resolver) Terminal(category string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(r.Style(category).Hex))
}

// Hash is the signed 32-bit rolling hash h = h*31 + c over the UTF-16 code
// units of s, so results agree with browser clients hashing the same string.
func Hash(s string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(c)
	}
	return h
}
