// Package reader loads endpoint documents from YAML, JSON and XML files.
package reader

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"

	"httpgen/internal/errs"
	"httpgen/internal/logger"
	"httpgen/internal/model"
)

// Extensions lists the file extensions Read understands
var Extensions = []string{".yaml", ".yml", ".json", ".xml"}

// Supported reports whether the file extension names a readable format
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Expand replaces directory inputs with the supported documents they
// contain. Hidden directories are skipped and the result is sorted per
// directory.
func Expand(inputs []string) ([]string, error) {
	var files []string
	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			return nil, fmt.Errorf("failed to stat input: %w", err)
		}
		if !info.IsDir() {
			files = append(files, in)
			continue
		}

		var found []string
		err = filepath.WalkDir(in, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != in && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if Supported(path) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

// Decode converts raw file bytes to UTF-8 text. A UTF-8 or UTF-16 byte
// order mark selects the encoding. Without one the content is taken as
// UTF-8, falling back to EUC-KR when it is not valid UTF-8.
func Decode(raw []byte) ([]byte, error) {
	decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode content: %w", err)
	}
	if utf8.Valid(decoded) {
		return decoded, nil
	}

	decoded, _, err = transform.Bytes(korean.EUCKR.NewDecoder(), raw)
	if err != nil {
		return nil, fmt.Errorf("content is neither UTF-8 nor EUC-KR: %w", err)
	}
	return decoded, nil
}

// document is the on-disk shape shared by every format
type document struct {
	SimpleSchemaContent string            `yaml:"simple_schema_content,omitempty" xml:"simple_schema_content"`
	Endpoints           []*model.Endpoint `yaml:"endpoints" xml:"endpoints>endpoint"`
}

// Read parses one document and links its endpoint tree
func Read(path string) (*model.Root, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	data, err := Decode(raw)
	if err != nil {
		return nil, &errs.ConfigurationError{Filename: path, Msg: err.Error()}
	}

	var doc document
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml", ".json":
		err = yaml.Unmarshal(data, &doc)
	case ".xml":
		err = xml.NewDecoder(bytes.NewReader(data)).Decode(&doc)
	default:
		return nil, &errs.ConfigurationError{Filename: path, Msg: fmt.Sprintf("unsupported input format %q", ext)}
	}
	if err != nil {
		return nil, &errs.ConfigurationError{Filename: path, Msg: fmt.Sprintf("malformed document: %v", err)}
	}
	if len(doc.Endpoints) == 0 {
		return nil, &errs.ConfigurationError{Filename: path, Msg: "the document does not define any endpoints"}
	}

	root := model.NewRoot(path, doc.SimpleSchemaContent, doc.Endpoints...)
	logger.Debug("Read %s: %d top-level endpoints", path, len(root.Endpoints))
	return root, nil
}

// ReadAll reads every input in order. Directory inputs are expanded.
func ReadAll(inputs []string) ([]*model.Root, error) {
	files, err := Expand(inputs)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errs.Configf("no input documents were found")
	}

	roots := make([]*model.Root, 0, len(files))
	for _, f := range files {
		r, err := Read(f)
		if err != nil {
			return nil, err
		}
		roots = append(roots, r)
	}
	return roots, nil
}

// Marshal encodes a document in the YAML input format, so that generated
// documents can be read back
func Marshal(r *model.Root) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(document{SimpleSchemaContent: r.SimpleSchemaContent, Endpoints: r.Endpoints}); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", r.Filename, err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Stem returns the input file name without its extension
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
