// Package appdir maps spoken application names to Android package ids.
package appdir

import (
	"strings"
)

// Entry describes one logical application and the packages that may provide it.
type Entry struct {
	Name     string
	Aliases  []string
	Packages []string // Preferred first.
}

// Directory resolves friendly names and alternate packages.
type Directory struct {
	entries []Entry
	byKey   map[string]int
}

var defaultEntries = []Entry{
	{Name: "browser", Aliases: []string{"chrome", "google chrome", "internet", "web browser", "web"},
		Packages: []string{"com.android.chrome", "org.mozilla.firefox", "com.sec.android.app.sbrowser", "com.android.browser"}},
	{Name: "youtube", Aliases: []string{"you tube"}, Packages: []string{"com.google.android.youtube"}},
	{Name: "camera", Packages: []string{"com.android.camera", "com.android.camera2", "com.google.android.GoogleCamera", "com.sec.android.app.camera"}},
	{Name: "settings", Aliases: []string{"system settings"}, Packages: []string{"com.android.settings"}},
	{Name: "clock", Aliases: []string{"alarm", "alarms", "timer"},
		Packages: []string{"com.google.android.deskclock", "com.android.deskclock", "com.sec.android.app.clockpackage"}},
	{Name: "phone", Aliases: []string{"dialer"}, Packages: []string{"com.google.android.dialer", "com.android.dialer"}},
	{Name: "messages", Aliases: []string{"sms", "messaging", "texts"},
		Packages: []string{"com.google.android.apps.messaging", "com.android.messaging", "com.samsung.android.messaging"}},
	{Name: "contacts", Packages: []string{"com.google.android.contacts", "com.android.contacts"}},
	{Name: "gmail", Aliases: []string{"email", "mail"}, Packages: []string{"com.google.android.gm"}},
	{Name: "maps", Aliases: []string{"google maps"}, Packages: []string{"com.google.android.apps.maps"}},
	{Name: "photos", Aliases: []string{"gallery", "google photos"},
		Packages: []string{"com.google.android.apps.photos", "com.android.gallery3d", "com.sec.android.gallery3d"}},
	{Name: "calendar", Packages: []string{"com.google.android.calendar", "com.android.calendar"}},
	{Name: "calculator", Packages: []string{"com.google.android.calculator", "com.android.calculator2"}},
	{Name: "play store", Aliases: []string{"store", "google play"}, Packages: []string{"com.android.vending"}},
	{Name: "files", Aliases: []string{"file manager"}, Packages: []string{"com.google.android.apps.nbu.files", "com.android.documentsui"}},
	{Name: "spotify", Packages: []string{"com.spotify.music"}},
	{Name: "whatsapp", Aliases: []string{"whats app"}, Packages: []string{"com.whatsapp"}},
}

// Default returns the built-in directory.
func Default() *Directory {
	return New(defaultEntries)
}

// New builds a directory. Later entries never override earlier keys.
func New(entries []Entry) *Directory {
	d := &Directory{entries: entries, byKey: make(map[string]int)}
	for i, e := range entries {
		keys := append([]string{e.Name}, e.Aliases...)
		keys = append(keys, e.Packages...)
		for _, k := range keys {
			k = normalize(k)
			if _, exists := d.byKey[k]; !exists {
				d.byKey[k] = i
			}
		}
	}
	return d
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Lookup finds the entry for a name, alias, or package id.
func (d *Directory) Lookup(name string) (Entry, bool) {
	i, ok := d.byKey[normalize(name)]
	if !ok {
		return Entry{}, false
	}
	return d.entries[i], true
}

// PackageFor returns the id to put in an OpenApp action for a spoken name.
// Logical names with several providers stay symbolic (e.g. "browser") so the
// executor can try each provider; single-provider apps resolve to their
// package; unknown names pass through unchanged.
func (d *Directory) PackageFor(name string) string {
	e, ok := d.Lookup(name)
	if !ok {
		return strings.TrimSpace(name)
	}
	if len(e.Packages) == 1 {
		return e.Packages[0]
	}
	return e.Name
}

// Candidates returns the launch order for an OpenApp id: the id itself first
// when it looks like a package, followed by every known provider without
// duplicates.
func (d *Directory) Candidates(id string) []string {
	id = strings.TrimSpace(id)
	out := make([]string, 0, 4)
	seen := make(map[string]bool)
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	if strings.Contains(id, ".") {
		add(id)
	}
	if e, ok := d.Lookup(id); ok {
		for _, p := range e.Packages {
			add(p)
		}
	}
	if len(out) == 0 {
		add(id)
	}
	return out
}
