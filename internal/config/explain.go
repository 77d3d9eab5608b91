package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Paths follow the YAML layout, for example:
//
//	panel.class
//	panel.default_width
//	timing.throttle_ms
//	hotkeys.toggle_side
//	log_level
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	var root yaml.Node
	if err := root.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	node := &root
	for _, part := range strings.Split(path, ".") {
		if node.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("unknown config path %q", path)
		}
		var next *yaml.Node
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == part {
				next = node.Content[i+1]
				break
			}
		}
		if next == nil {
			if knownOmitted(path) {
				return "", nil
			}
			return nil, fmt.Errorf("unknown config path %q", path)
		}
		node = next
	}

	var value any
	if err := node.Decode(&value); err != nil {
		return nil, fmt.Errorf("failed to decode %q: %w", path, err)
	}
	return value, nil
}

// knownOmitted reports paths whose empty values are dropped by omitempty.
func knownOmitted(path string) bool {
	switch path {
	case "display", "xauthority", "panel.command", "hotkeys.toggle_side", "hotkeys.toggle_width":
		return true
	}
	return false
}
