package adapter

import "path/filepath"

// FileRecord is the host's metadata for one stored file. Upload fills in
// Filename, Bucket and Etag and clears Path.
type FileRecord struct {
	// Filename is the key leaf (or key relative to Path) inside the bucket.
	Filename string `json:"filename"`
	// Path is the local source file before upload. Afterwards it is either
	// empty or a persisted key prefix overriding the adapter default.
	Path string `json:"path,omitempty"`
	// Bucket overrides the adapter's default bucket when set.
	Bucket       string `json:"bucket,omitempty"`
	Mimetype     string `json:"mimetype,omitempty"`
	Etag         string `json:"etag,omitempty"`
	OriginalName string `json:"originalName,omitempty"`
	Size         int64  `json:"size,omitempty"`
}

// SourceName is the name handed to filename strategies: the client-supplied
// name if known, else the local file's base name, else the current filename.
func (r FileRecord) SourceName() string {
	switch {
	case r.OriginalName != "":
		return r.OriginalName
	case r.Path != "":
		return filepath.Base(r.Path)
	default:
		return r.Filename
	}
}

// Schema lists the optional record fields a host persists.
type Schema struct {
	Filename bool
	Bucket   bool
	Path     bool
	Etag     bool
}

// DefaultSchema persists only the filename.
func DefaultSchema() Schema {
	return Schema{Filename: true}
}

// Apply blanks the fields rec's store does not keep.
func (s Schema) Apply(rec FileRecord) FileRecord {
	if !s.Filename {
		rec.Filename = ""
	}
	if !s.Bucket {
		rec.Bucket = ""
	}
	if !s.Path {
		rec.Path = ""
	}
	if !s.Etag {
		rec.Etag = ""
	}
	return rec
}
