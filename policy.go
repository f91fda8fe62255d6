package sshdedit

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Cardinality says how the values of a key map onto lines.
type Cardinality int

const (
	// Scalar keys live on one line that may carry several tokens (AcceptEnv, PermitRootLogin).
	Scalar Cardinality = iota
	// Array keys get one line per value (AllowGroups).
	Array
	// Repeated keys get one line per value and every line is an independent setting (ListenAddress).
	Repeated
)

func (c Cardinality) String() string {
	switch c {
	case Array:
		return "array"
	case Repeated:
		return "repeated"
	default:
		return "scalar"
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Cardinality) UnmarshalYAML(n *yaml.Node) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "scalar":
		*c = Scalar
	case "array":
		*c = Array
	case "repeated":
		*c = Repeated
	default:
		return fmt.Errorf("line %d: unknown cardinality %q", n.Line, s)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (c Cardinality) MarshalYAML() (interface{}, error) { return c.String(), nil }

// KeyPolicy holds the fixed editing rules for one key.
type KeyPolicy struct {
	Cardinality Cardinality `yaml:"cardinality,omitempty"`
	// Before lists keys this key must precede within a scope.
	Before []string `yaml:"before,omitempty"`
	// Separator joins values on the line; empty means a single space.
	Separator string `yaml:"separator,omitempty"`
	// FreeText keys take their whole argument string as one value.
	FreeText bool `yaml:"freeText,omitempty"`
	// Unlisted keys are managed as their own resource and left out of Entries.
	Unlisted bool `yaml:"unlisted,omitempty"`
}

// Policy is the per-key cardinality and ordering table.
type Policy struct {
	// Strict makes edits of keys missing from the table fail with ErrUnknownKey.
	Strict bool
	keys   map[string]KeyPolicy
	names  map[string]string // lower -> spelling as declared
}

type policyFile struct {
	Strict *bool                `yaml:"strict,omitempty"`
	Keys   map[string]KeyPolicy `yaml:"keys"`
}

//go:embed policy.yaml
var defaultPolicyYAML []byte

var (
	defaultOnce   sync.Once
	defaultPolicy *Policy
	defaultErr    error
)

// DefaultPolicy returns the built-in table for the OpenSSH server keywords.
// It is decoded once per process; callers must not modify it (use Clone).
func DefaultPolicy() *Policy {
	defaultOnce.Do(func() {
		defaultPolicy, defaultErr = decodePolicy(&Policy{keys: map[string]KeyPolicy{}, names: map[string]string{}}, defaultPolicyYAML)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("sshdedit: embedded policy: %v", defaultErr))
	}
	return defaultPolicy
}

// LoadPolicy overlays a YAML policy document on the default table.
func LoadPolicy(data []byte) (*Policy, error) {
	return decodePolicy(DefaultPolicy().Clone(), data)
}

func decodePolicy(p *Policy, data []byte) (*Policy, error) {
	var f policyFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("sshdedit: failed to parse policy: %w", err)
	}
	if f.Strict != nil {
		p.Strict = *f.Strict
	}
	for name, kp := range f.Keys {
		p.Set(name, kp)
	}
	return p, nil
}

// Clone returns a deep copy of p.
func (p *Policy) Clone() *Policy {
	out := &Policy{
		Strict: p.Strict,
		keys:   make(map[string]KeyPolicy, len(p.keys)),
		names:  make(map[string]string, len(p.names)),
	}
	for k, kp := range p.keys {
		kp.Before = append([]string(nil), kp.Before...)
		out.keys[k] = kp
	}
	for k, n := range p.names {
		out.names[k] = n
	}
	return out
}

// Set adds or replaces the rules for a key.
func (p *Policy) Set(name string, kp KeyPolicy) {
	lk := strings.ToLower(name)
	p.keys[lk] = kp
	p.names[lk] = name
}

// Lookup returns the rules for key, matched case-insensitively.
func (p *Policy) Lookup(key string) (KeyPolicy, bool) {
	kp, ok := p.keys[strings.ToLower(key)]
	return kp, ok
}

// keyPolicy is Lookup with the strictness rule applied.
func (p *Policy) keyPolicy(key string) (KeyPolicy, error) {
	kp, ok := p.Lookup(key)
	if !ok && p.Strict {
		return KeyPolicy{}, ErrUnknownKey
	}
	return kp, nil
}

// predecessors returns the keys that declare they must precede key.
func (p *Policy) predecessors(key string) []string {
	var out []string
	for lk, kp := range p.keys {
		for _, b := range kp.Before {
			if strings.EqualFold(b, key) {
				out = append(out, p.names[lk])
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// Encode writes the table as YAML.
func (p *Policy) Encode(w io.Writer) error {
	f := policyFile{Strict: &p.Strict, Keys: make(map[string]KeyPolicy, len(p.keys))}
	for lk, kp := range p.keys {
		f.Keys[p.names[lk]] = kp
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// split turns the argument string of a key into values.
func (kp KeyPolicy) split(args string) ([]string, error) {
	if kp.FreeText {
		return []string{args}, nil
	}
	toks, err := tokenize(args)
	if err != nil {
		return nil, err
	}
	if kp.Separator == "" {
		return toks, nil
	}
	var out []string
	for _, t := range toks {
		for _, v := range strings.Split(t, kp.Separator) {
			if v != "" {
				out = append(out, v)
			}
		}
	}
	return out, nil
}

// join renders values back into an argument string.
func (kp KeyPolicy) join(values []string) string {
	sep := kp.Separator
	if sep == "" {
		sep = " "
	}
	return strings.Join(values, sep)
}
