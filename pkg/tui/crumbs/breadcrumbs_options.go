package crumbs

type Option func(bc *Breadcrumbs)

func WithSeparator(separator string) Option {
	return func(bc *Breadcrumbs) {
		bc.separator = separator
	}
}

// WithSeparatorColor sets the color of the separators between crumbs.
func WithSeparatorColor(color string) Option {
	return func(bc *Breadcrumbs) {
		bc.separatorColor = color
	}
}
