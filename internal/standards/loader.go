package standards

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var setSchemaLoader = gojsonschema.NewStringLoader(setSchemaJSON)

// LoadDir reads every *.json, *.yaml and *.yml file in dir in lexical order.
// Files that fail to parse or validate are logged and skipped. When two
// files declare the same set id, the higher version wins; unparsable
// versions lose to the later file. A missing directory yields an empty map.
func LoadDir(dir string, logger *zap.Logger) (map[string]*Set, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sets := make(map[string]*Set)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("standards directory not found", zap.String("dir", dir))
			return sets, nil
		}
		return nil, fmt.Errorf("reading standards directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".json", ".yaml", ".yml":
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		path := filepath.Join(dir, name)
		set, err := LoadFile(path)
		if err != nil {
			logger.Error("failed to load standards file", zap.String("file", path), zap.Error(err))
			continue
		}
		if prev, ok := sets[set.ID]; ok && !newer(set.Version, prev.Version) {
			logger.Warn("ignoring older standards set version",
				zap.String("standards_set", set.ID),
				zap.String("file", path),
				zap.String("version", set.Version),
				zap.String("kept_version", prev.Version))
			continue
		}
		sets[set.ID] = set
		logger.Info("loaded standards set",
			zap.String("standards_set", set.ID),
			zap.String("version", set.Version),
			zap.Int("rules", len(set.Rules)))
	}
	return sets, nil
}

// newer reports whether candidate should replace current.
func newer(candidate, current string) bool {
	cv, err1 := semver.NewVersion(candidate)
	pv, err2 := semver.NewVersion(current)
	if err1 != nil || err2 != nil {
		return true
	}
	return !cv.LessThan(pv)
}

// LoadFile reads and validates one standards document.
func LoadFile(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yamlToJSON(data)
		if err != nil {
			return nil, err
		}
	}
	return Parse(data)
}

// Parse validates a JSON standards document and applies defaults.
func Parse(data []byte) (*Set, error) {
	result, err := gojsonschema.Validate(setSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing standards document: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return nil, fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
	}

	var set Set
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("decoding standards document: %w", err)
	}
	if set.Version == "" {
		set.Version = DefaultVersion
	}
	seen := make(map[string]struct{}, len(set.Rules))
	for i := range set.Rules {
		r := &set.Rules[i]
		if _, dup := seen[r.StandardRef]; dup {
			return nil, fmt.Errorf("duplicate standard_ref %q", r.StandardRef)
		}
		seen[r.StandardRef] = struct{}{}
		if r.SeverityDefault == "" {
			r.SeverityDefault = DefaultSeverity
		}
		if r.Tags == nil {
			r.Tags = []string{}
		}
	}
	return &set, nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("converting yaml: %w", err)
	}
	return out, nil
}
