package document

import (
	"path/filepath"
	"strings"

	"github.com/aretw0/seltree/pkg/domain"
)

// Supported definition file extensions.
var Extensions = []string{".xml", ".yaml", ".yml"}

// Supported reports whether the file name has a definition extension.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Parse decodes a definition file, choosing the format from the id's extension.
// Failures are reported as domain.ErrMalformedDocument load errors.
func Parse(id string, data []byte) (*Document, error) {
	var root *Element
	var err error
	switch strings.ToLower(filepath.Ext(id)) {
	case ".xml":
		root, err = ParseXML(data)
	case ".yaml", ".yml":
		root, err = ParseYAML(data)
	default:
		return nil, &domain.LoadError{Err: domain.ErrMalformedDocument, File: id, Detail: "unsupported file extension"}
	}
	if err != nil {
		return nil, &domain.LoadError{Err: domain.ErrMalformedDocument, File: id, Detail: err.Error()}
	}
	return &Document{ID: id, Root: root}, nil
}
