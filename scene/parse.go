// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package scene

// parse.go reads the YAML carrier into the object graph. The carrier
// groups objects by role:
//
//	technique: {type: path, max_depth: 64}
//	camera:    {type: perspective, fov: 60}
//	film:      {size: [800, 600]}
//	shapes:    {name: {type: rectangle, p0: [-1,-1,0], ...}, ...}
//	bsdfs:     {name: {type: diffuse, reflectance: [0.8,0.8,0.8]}, ...}
//	lights:    {name: {type: point, position: [0,2,0]}, ...}
//	entities:  {name: {shape: name, bsdf: name, transform: ...}, ...}

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ParseFile reads a scene description file.
func ParseFile(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scene: read %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scene: parse %s: %w", path, err)
	}
	return s, nil
}

// Parse reads a scene description from memory.
func Parse(data []byte) (*Scene, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}

	s := NewScene()
	if o, err := singleObject(root, "technique"); err != nil {
		return nil, err
	} else {
		s.Technique = o
	}
	if o, err := singleObject(root, "camera"); err != nil {
		return nil, err
	} else {
		s.Camera = o
	}
	if o, err := singleObject(root, "film"); err != nil {
		return nil, err
	} else {
		s.Film = o
	}

	groups := []struct {
		key string
		add func(*Object)
	}{
		{"shapes", s.AddShape},
		{"bsdfs", s.AddBSDF},
		{"lights", s.AddLight},
		{"entities", s.AddEntity},
	}
	for _, g := range groups {
		raw, ok := root[g.key]
		if !ok {
			continue
		}
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("scene: %s is not a mapping", g.key)
		}
		// YAML maps lose file order; sort names so loading stays
		// deterministic between runs.
		names := make([]string, 0, len(m))
		for name := range m {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			o, err := parseObject(name, m[name])
			if err != nil {
				return nil, fmt.Errorf("scene: %s %q: %w", g.key, name, err)
			}
			g.add(o)
		}
	}
	return s, nil
}

// singleObject parses an optional singleton like technique or camera.
func singleObject(root map[string]any, key string) (*Object, error) {
	raw, ok := root[key]
	if !ok {
		return nil, nil
	}
	o, err := parseObject(key, raw)
	if err != nil {
		return nil, fmt.Errorf("scene: %s: %w", key, err)
	}
	return o, nil
}

// parseObject converts one carrier mapping into an Object. The "type"
// key becomes the plugin type; everything else is a property.
func parseObject(name string, raw any) (*Object, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("not a mapping")
	}
	o := &Object{Name: name, Properties: map[string]Property{}}
	for k, v := range m {
		if k == "type" {
			t, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("type is not a string")
			}
			o.PluginType = t
			continue
		}
		o.Properties[k] = NewProperty(v)
	}
	return o, nil
}
