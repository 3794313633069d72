package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/cspresent/present/internal/poller"
	"github.com/cspresent/present/internal/schedule"
)

// descriptorDoc is one YAML document. It holds either a single session or
// a list of them under "sessions".
type descriptorDoc struct {
	schedule.Descriptor `yaml:",inline"`
	Sessions            []schedule.Descriptor `yaml:"sessions"`
}

// LoadDescriptorFile reads session descriptors from a YAML or TOML file.
// Files ending in .toml are parsed as TOML, anything else as YAML.
func LoadDescriptorFile(filename string) ([]schedule.Descriptor, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	data, err = Preprocess(data, filepath.Dir(filename))
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(filepath.Ext(filename), ".toml") {
		return ParseDescriptorsTOML(data)
	}
	return ParseDescriptorsYAML(replaceTabsWithSpaces(data))
}

// fileSource rereads a descriptor file on every poll so edits are picked up.
func fileSource(filename string) poller.Source {
	return poller.SourceFunc(func(context.Context) ([]schedule.Descriptor, error) {
		return LoadDescriptorFile(filename)
	})
}

// ParseDescriptorsYAML parses one or more YAML documents.
func ParseDescriptorsYAML(data []byte) ([]schedule.Descriptor, error) {
	content := strings.TrimSpace(string(data))
	if len(content) == 0 || strings.Trim(content, "- \n\t") == "" {
		return []schedule.Descriptor{}, nil
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	result := []schedule.Descriptor{}
	for {
		var doc descriptorDoc
		if err := decoder.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode YAML: %w", err)
		}
		if doc.Descriptor != (schedule.Descriptor{}) {
			result = append(result, doc.Descriptor)
		}
		result = append(result, doc.Sessions...)
	}
	return result, nil
}

// ParseDescriptorsTOML parses a TOML document with a [[sessions]] array.
// Native TOML dates, times and integers are accepted for the date, time
// and id fields.
func ParseDescriptorsTOML(data []byte) ([]schedule.Descriptor, error) {
	var doc struct {
		Sessions []map[string]any `toml:"sessions"`
	}
	md, err := toml.Decode(string(data), &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown TOML key %s", undecoded[0])
	}

	result := make([]schedule.Descriptor, 0, len(doc.Sessions))
	for _, s := range doc.Sessions {
		result = append(result, schedule.Descriptor{
			SessionID:   tomlString(s["id"], ""),
			StartTime:   tomlString(s["start_time"], "15:04:05"),
			EndTime:     tomlString(s["end_time"], "15:04:05"),
			SessionDate: tomlString(s["date"], "2006-01-02"),
			CourseCode:  tomlString(s["course_code"], ""),
			CourseTitle: tomlString(s["course_title"], ""),
			Location:    tomlString(s["location"], ""),
		})
	}
	return result, nil
}

// tomlString renders a decoded TOML value. Dates and times decode to
// time.Time and are formatted with layout.
func tomlString(v any, layout string) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		if layout == "" {
			layout = time.RFC3339
		}
		return x.Format(layout)
	default:
		return fmt.Sprint(x)
	}
}

func replaceTabsWithSpaces(data []byte) []byte {
	return bytes.ReplaceAll(data, []byte("\t"), []byte("  "))
}
