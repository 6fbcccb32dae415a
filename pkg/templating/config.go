package templating

// TemplateConfig holds all configuration options for the templating engine.
type TemplateConfig struct {
	// Dir is the directory scanned (recursively) for template files.
	Dir string `json:"dir"`

	// Extension selects which files under Dir are templates. It must include
	// the leading dot, e.g. ".html".
	Extension string `json:"extension"`
}

// DefaultConfig returns a TemplateConfig that treats every .html file under
// ./static as a template.
func DefaultConfig() *TemplateConfig {
	return &TemplateConfig{
		Dir:       "./static",
		Extension: ".html",
	}
}
