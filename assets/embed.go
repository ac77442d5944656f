package assets

import "embed"

//go:embed templates/*.html
var TemplateFS embed.FS

// List returns the embedded email templates by name.
func List() []string {
	return []string{
		"ping.html",
		"reminder.html",
	}
}
