package domain

// Document is a note split into its metadata header and body.
type Document struct {
	// Path is where the document was read from or will be written to.
	Path string
	// Meta is the decoded front matter. It is never nil after parsing.
	Meta map[string]any
	// Keys preserves the order of front matter keys as they appeared.
	Keys []string
	// Body is everything after the front matter.
	Body string
}

// NewDocument returns an empty document for path.
func NewDocument(path string) *Document {
	return &Document{Path: path, Meta: map[string]any{}}
}

// Get returns a metadata value.
func (d *Document) Get(key string) (any, bool) {
	v, ok := d.Meta[key]
	return v, ok
}

// Set assigns a metadata value, appending the key when it is new.
func (d *Document) Set(key string, value any) {
	if d.Meta == nil {
		d.Meta = map[string]any{}
	}
	if _, ok := d.Meta[key]; !ok {
		d.Keys = append(d.Keys, key)
	}
	d.Meta[key] = value
}

// Bool reports whether key holds boolean true.
func (d *Document) Bool(key string) bool {
	b, ok := d.Meta[key].(bool)
	return ok && b
}

// String returns a string value or "".
func (d *Document) String(key string) string {
	s, _ := d.Meta[key].(string)
	return s
}
