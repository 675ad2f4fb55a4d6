package appdir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPackageFor(t *testing.T) {
	d := Default()
	assert.Equal(t, "browser", d.PackageFor("Chrome"))
	assert.Equal(t, "com.google.android.youtube", d.PackageFor("YouTube"))
	assert.Equal(t, "com.google.android.youtube", d.PackageFor("  you   tube "))
	assert.Equal(t, "clock", d.PackageFor("alarm"))
	assert.Equal(t, "tiktok", d.PackageFor("tiktok"))
}

func TestCandidates(t *testing.T) {
	d := Default()

	assert.Equal(t,
		[]string{"com.android.chrome", "org.mozilla.firefox", "com.sec.android.app.sbrowser", "com.android.browser"},
		d.Candidates("browser"))

	// A concrete package keeps its place at the head of the chain.
	assert.Equal(t,
		[]string{"org.mozilla.firefox", "com.android.chrome", "com.sec.android.app.sbrowser", "com.android.browser"},
		d.Candidates("org.mozilla.firefox"))

	assert.Equal(t, []string{"com.example.app"}, d.Candidates("com.example.app"))
	assert.Equal(t, []string{"unknown"}, d.Candidates("unknown"))
}

func TestNew_FirstKeyWins(t *testing.T) {
	d := New([]Entry{
		{Name: "a", Aliases: []string{"shared"}, Packages: []string{"com.a"}},
		{Name: "b", Aliases: []string{"shared"}, Packages: []string{"com.b"}},
	})
	e, ok := d.Lookup("shared")
	assert.True(t, ok)
	assert.Equal(t, "a", e.Name)
}
