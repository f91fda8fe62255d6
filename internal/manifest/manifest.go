// Package manifest decodes the desired-state files the apply command reads.
//
// A manifest lists resources, each one (key, condition) address of an sshd_config file with the
// state it should be in:
//
//	target: /etc/ssh/sshd_config
//	resources:
//	  - name: no-root
//	    key: PermitRootLogin
//	    value: "no"
//	    comment: managed by sshdedit
//	  - key: X11Forwarding
//	    condition: User anoncvs
//	    ensure: absent
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/goccy/go-yaml"

	"github.com/kevinwang15/sshdedit"
)

// Values of Resource.Ensure. An empty Ensure means EnsurePresent.
const (
	EnsurePresent = "present"
	EnsureAbsent  = "absent"
)

// Manifest is a list of resources, optionally bound to a default target file.
type Manifest struct {
	Target    string     `yaml:"target,omitempty" json:"target,omitempty"`
	Resources []Resource `yaml:"resources" json:"resources"`
}

// Resource is the desired state of one address.
type Resource struct {
	Name        string `yaml:"name,omitempty" json:"name,omitempty"`
	Key         string `yaml:"key" json:"key"`
	Value       Values `yaml:"value,omitempty" json:"value,omitempty"`
	Condition   string `yaml:"condition,omitempty" json:"condition,omitempty"`
	Comment     string `yaml:"comment,omitempty" json:"comment,omitempty"`
	Ensure      string `yaml:"ensure,omitempty" json:"ensure,omitempty"`
	ArrayAppend bool   `yaml:"arrayAppend,omitempty" json:"arrayAppend,omitempty"`
	Target      string `yaml:"target,omitempty" json:"target,omitempty"`
}

// Values is a resource value: a single string or a list. Numbers and booleans are taken
// verbatim, so `value: 22` means "22".
type Values []string

// UnmarshalYAML implements the goccy/go-yaml InterfaceUnmarshaler.
func (v *Values) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	vals, err := valuesFrom(raw)
	if err != nil {
		return err
	}
	*v = vals
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Values) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	vals, err := valuesFrom(raw)
	if err != nil {
		return err
	}
	*v = vals
	return nil
}

func valuesFrom(raw interface{}) (Values, error) {
	switch x := raw.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		out := make(Values, 0, len(x))
		for _, e := range x {
			s, err := scalar(e)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	default:
		s, err := scalar(x)
		if err != nil {
			return nil, err
		}
		return Values{s}, nil
	}
}

func scalar(raw interface{}) (string, error) {
	switch x := raw.(type) {
	case string:
		return x, nil
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(x), nil
	default:
		return "", fmt.Errorf("manifest: value must be a string or a list of strings, got %T", raw)
	}
}

// Load decodes a YAML manifest. Unknown fields and duplicate keys are errors.
func Load(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.UnmarshalWithOptions(data, &m, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("manifest: failed to parse: %w", err)
	}
	return &m, nil
}

// ApplyOverlay applies an RFC 6902 patch, written in JSON or YAML, to the manifest.
func (m *Manifest) ApplyOverlay(patch []byte) error {
	pj, err := yaml.YAMLToJSON(patch)
	if err != nil {
		return fmt.Errorf("manifest: failed to read overlay: %w", err)
	}
	ops, err := jsonpatch.DecodePatch(pj)
	if err != nil {
		return fmt.Errorf("manifest: invalid overlay: %w", err)
	}
	doc, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("manifest: %w", err)
	}
	out, err := ops.Apply(doc)
	if err != nil {
		return fmt.Errorf("manifest: failed to apply overlay: %w", err)
	}

	var next Manifest
	dec := json.NewDecoder(bytes.NewReader(out))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&next); err != nil {
		return fmt.Errorf("manifest: overlay produced an invalid manifest: %w", err)
	}
	*m = next
	return nil
}

// DuplicateResourceError reports two resources with the same name, or aimed at the same address.
type DuplicateResourceError struct {
	First, Second int // resource indexes
	Name          string
	Address       string
}

func (e *DuplicateResourceError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("manifest: resources %d and %d are both named %q", e.First, e.Second, e.Name)
	}
	return fmt.Sprintf("manifest: resources %d and %d both manage %s", e.First, e.Second, e.Address)
}

// Validate checks every resource and rejects duplicates.
func (m *Manifest) Validate() error {
	names := map[string]int{}
	addrs := map[string]int{}
	for i, r := range m.Resources {
		if strings.TrimSpace(r.Key) == "" {
			return fmt.Errorf("manifest: resource %d: key is required", i)
		}
		switch r.Ensure {
		case "", EnsurePresent, EnsureAbsent:
		default:
			return fmt.Errorf("manifest: resource %d: ensure must be %q or %q, got %q", i, EnsurePresent, EnsureAbsent, r.Ensure)
		}
		cond, err := sshdedit.ParseCondition(r.Condition)
		if err != nil {
			return fmt.Errorf("manifest: resource %d: condition: %w", i, err)
		}

		if r.Name != "" {
			if j, ok := names[r.Name]; ok {
				return &DuplicateResourceError{First: j, Second: i, Name: r.Name}
			}
			names[r.Name] = i
		}
		addr := address(m.targetOf(r, ""), r.Key, cond)
		if j, ok := addrs[addr]; ok {
			return &DuplicateResourceError{First: j, Second: i, Address: addr}
		}
		addrs[addr] = i
	}
	return nil
}

func address(target, key string, cond sshdedit.Condition) string {
	a := strings.ToLower(key)
	if !cond.IsZero() {
		a += " (Match " + cond.String() + ")"
	}
	if target != "" {
		a = target + ": " + a
	}
	return a
}

func (m *Manifest) targetOf(r Resource, defaultTarget string) string {
	switch {
	case r.Target != "":
		return r.Target
	case m.Target != "":
		return m.Target
	default:
		return defaultTarget
	}
}

// Batch is the work for one file.
type Batch struct {
	Target string
	Items  []sshdedit.Desired
}

// Batches groups the resources by target file, in order of first appearance. Resources without a
// target of their own or in the manifest go to defaultTarget.
func (m *Manifest) Batches(defaultTarget string) ([]Batch, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	var out []Batch
	index := map[string]int{}
	for _, r := range m.Resources {
		target := m.targetOf(r, defaultTarget)
		if target == "" {
			return nil, fmt.Errorf("manifest: no target for %s", r.Key)
		}
		i, ok := index[target]
		if !ok {
			i = len(out)
			index[target] = i
			out = append(out, Batch{Target: target})
		}
		out[i].Items = append(out[i].Items, r.Desired())
	}
	return out, nil
}

// Desired converts r to an edit. The condition must have been validated.
func (r Resource) Desired() sshdedit.Desired {
	cond, _ := sshdedit.ParseCondition(r.Condition)
	return sshdedit.Desired{
		Key:       r.Key,
		Values:    []string(r.Value),
		Condition: cond,
		Comment:   r.Comment,
		Append:    r.ArrayAppend,
		Absent:    r.Ensure == EnsureAbsent,
	}
}
