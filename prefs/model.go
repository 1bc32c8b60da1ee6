package prefs

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrInvalid is returned when a preference document fails validation.
var ErrInvalid = errors.New("invalid preferences")

// Theme values accepted by Validate.
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

// Preferences is the per-user UI preference document.
type Preferences struct {
	Theme              string    `json:"theme"`
	Language           string    `json:"language"`
	CompactTables      bool      `json:"compact_tables"`
	SidebarCollapsed   bool      `json:"sidebar_collapsed"`
	DefaultLandingPage string    `json:"default_landing_page"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Patch is a partial preference update. Nil fields are left unchanged.
type Patch struct {
	Theme              *string `json:"theme"`
	Language           *string `json:"language"`
	CompactTables      *bool   `json:"compact_tables"`
	SidebarCollapsed   *bool   `json:"sidebar_collapsed"`
	DefaultLandingPage *string `json:"default_landing_page"`
}

var supportedLanguages = map[string]bool{
	"en": true,
	"fr": true,
	"es": true,
	"de": true,
}

// Defaults returns the document served before a user has saved anything.
func Defaults() Preferences {
	return Preferences{
		Theme:              ThemeSystem,
		Language:           "en",
		CompactTables:      false,
		SidebarCollapsed:   false,
		DefaultLandingPage: "/dashboard",
	}
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p Preferences) Validate() error {
	switch p.Theme {
	case ThemeLight, ThemeDark, ThemeSystem:
	default:
		return ErrInvalid
	}
	if !supportedLanguages[p.Language] {
		return ErrInvalid
	}
	if !strings.HasPrefix(p.DefaultLandingPage, "/") {
		return ErrInvalid
	}
	return nil
}

// DecodePatch parses a JSON patch body. Unknown fields are rejected
// rather than silently dropped, so client typos surface as errors.
func DecodePatch(data []byte) (Patch, error) {
	var p Patch
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Patch{}, ErrInvalid
	}
	return p, nil
}

// Apply merges the patch into p and returns the result. It does not
// validate; callers validate the merged document.
func (p Preferences) Apply(patch Patch) Preferences {
	out := p
	if patch.Theme != nil {
		out.Theme = *patch.Theme
	}
	if patch.Language != nil {
		out.Language = *patch.Language
	}
	if patch.CompactTables != nil {
		out.CompactTables = *patch.CompactTables
	}
	if patch.SidebarCollapsed != nil {
		out.SidebarCollapsed = *patch.SidebarCollapsed
	}
	if patch.DefaultLandingPage != nil {
		out.DefaultLandingPage = *patch.DefaultLandingPage
	}
	return out
}
