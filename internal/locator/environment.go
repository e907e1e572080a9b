package locator

import "sort"

// Environment is the config server's answer for one name/profile/label.
type Environment struct {
	Name            string           `json:"name" yaml:"name"`
	Profiles        []string         `json:"profiles" yaml:"profiles"`
	Label           string           `json:"label,omitempty" yaml:"label,omitempty"`
	Version         string           `json:"version,omitempty" yaml:"version,omitempty"`
	State           string           `json:"state,omitempty" yaml:"state,omitempty"`
	PropertySources []PropertySource `json:"propertySources" yaml:"propertySources"`
}

// PropertySource is one named set of properties, e.g. one file in the
// backing repository.
type PropertySource struct {
	Name   string         `json:"name" yaml:"name"`
	Source map[string]any `json:"source" yaml:"source"`
}

// Properties flattens the property sources. Sources are ordered by
// precedence, so the first source defining a key wins.
func (e *Environment) Properties() map[string]any {
	props := make(map[string]any)
	for _, ps := range e.PropertySources {
		for k, v := range ps.Source {
			if _, ok := props[k]; !ok {
				props[k] = v
			}
		}
	}
	return props
}

// Origin returns the name of the property source that supplies key.
func (e *Environment) Origin(key string) (string, bool) {
	for _, ps := range e.PropertySources {
		if _, ok := ps.Source[key]; ok {
			return ps.Name, true
		}
	}
	return "", false
}

// Keys returns the flattened property names in sorted order.
func (e *Environment) Keys() []string {
	props := e.Properties()
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
