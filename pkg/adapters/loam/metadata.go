package loam

// ListMetadata is the frontmatter of one list document.
// It uses "mapstructure" tags to match standard Frontmatter/YAML keys.
type ListMetadata struct {
	// ID overrides the identifier derived from the file name.
	ID   string `json:"id" mapstructure:"id"`
	Name string `json:"name" mapstructure:"name"`

	// Options come first; non-blank body lines are appended after them.
	Options []string `json:"options" mapstructure:"options"`

	// Prompts adds templates to the corpus. Any document may carry them.
	Prompts []string `json:"prompts" mapstructure:"prompts"`
}
