/*
Package nodemap implements a typed, named feature table for camera devices.

Features are addressed by their GenICam names (PixelFormat, ExposureTime, ...)
and carry a kind that decides which accessor applies.  Integers are int64,
floats are float64, enumerations and strings are both read and written as
strings, and commands are executed rather than set.
*/
package nodemap

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Kind is the type of a feature
type Kind string

const (
	// Int features hold an int64
	Int Kind = "int"

	// Float features hold a float64
	Float Kind = "float"

	// Bool features hold a bool
	Bool Kind = "bool"

	// Enum features hold one of a fixed set of strings
	Enum Kind = "enum"

	// String features hold a free string
	String Kind = "string"

	// Command features are executed and hold no value
	Command Kind = "command"
)

var (
	// ErrReadOnly is returned when setting a feature which cannot be written
	ErrReadOnly = errors.New("feature is read only")

	// ErrLocked is returned when setting a feature which cannot change while streaming
	ErrLocked = errors.New("feature is locked while streaming")

	// ErrOutOfRange is returned when a numeric value falls outside a feature's limits
	ErrOutOfRange = errors.New("value out of range")

	// ErrInvalidEntry is returned when an enumeration is set to an unknown entry
	ErrInvalidEntry = errors.New("invalid enumeration entry")
)

// ErrFeatureNotFound is generated when a feature is looked up in a NodeMap
// but does not exist there
type ErrFeatureNotFound struct {
	// Feature is the specific feature not found
	Feature string
}

// Error satisfies the error interface
func (e ErrFeatureNotFound) Error() string {
	return fmt.Sprintf("feature %s not found in node map", e.Feature)
}

// ErrWrongKind is generated when a feature is accessed as a kind it is not
type ErrWrongKind struct {
	Feature string
	Kind    Kind
	Want    Kind
}

// Error satisfies the error interface
func (e ErrWrongKind) Error() string {
	return fmt.Sprintf("feature %s is of kind %s, not %s", e.Feature, e.Kind, e.Want)
}

// Node describes one feature.  The zero value of Min and Max means unbounded.
type Node struct {
	Name string
	Kind Kind

	// Value is the initial value, of the Go type matching Kind
	Value interface{}

	// Entries are the legal values of an Enum
	Entries []string

	// Min and Max bound Int and Float features when Max > Min
	Min, Max float64

	// Unit is informational, e.g. "us" or "dB"
	Unit string

	// ReadOnly features reject every Set
	ReadOnly bool

	// Streaming features may not be set while the map is locked
	Streaming bool

	// Getter, if not nil, computes the value instead of the stored one
	Getter func() interface{}

	// Setter, if not nil, is called with a validated value before it is stored.
	// An error rejects the value.
	Setter func(interface{}) error

	// Exec runs a Command feature
	Exec func() error
}

// Info is the externally visible description of a Node
type Info struct {
	Name      string   `json:"name"`
	Kind      Kind     `json:"kind"`
	Entries   []string `json:"entries,omitempty"`
	Min       float64  `json:"min,omitempty"`
	Max       float64  `json:"max,omitempty"`
	Unit      string   `json:"unit,omitempty"`
	ReadOnly  bool     `json:"readOnly,omitempty"`
	Streaming bool     `json:"streaming,omitempty"`
}

// NodeMap is a concurrency-safe set of Nodes.  Getter, Setter and Exec hooks
// are called without the map's lock held, so they may use the map.
type NodeMap struct {
	mu     sync.RWMutex
	nodes  map[string]*Node
	locked bool
}

// New returns a NodeMap holding nodes
func New(nodes ...Node) *NodeMap {
	nm := &NodeMap{nodes: make(map[string]*Node, len(nodes))}
	for _, n := range nodes {
		nm.Add(n)
	}
	return nm
}

// Add inserts or replaces a node
func (nm *NodeMap) Add(n Node) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nn := n
	nm.nodes[n.Name] = &nn
}

// Lock prevents Streaming features from changing
func (nm *NodeMap) Lock() {
	nm.mu.Lock()
	nm.locked = true
	nm.mu.Unlock()
}

// Unlock releases Lock
func (nm *NodeMap) Unlock() {
	nm.mu.Lock()
	nm.locked = false
	nm.mu.Unlock()
}

// Features maps feature names to their kinds
func (nm *NodeMap) Features() map[string]Kind {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	out := make(map[string]Kind, len(nm.nodes))
	for k, n := range nm.nodes {
		out[k] = n.Kind
	}
	return out
}

// Names returns the sorted feature names
func (nm *NodeMap) Names() []string {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	out := make([]string, 0, len(nm.nodes))
	for k := range nm.nodes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Info describes a feature
func (nm *NodeMap) Info(name string) (Info, error) {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	n, ok := nm.nodes[name]
	if !ok {
		return Info{}, ErrFeatureNotFound{Feature: name}
	}
	return Info{
		Name:      n.Name,
		Kind:      n.Kind,
		Entries:   append([]string(nil), n.Entries...),
		Min:       n.Min,
		Max:       n.Max,
		Unit:      n.Unit,
		ReadOnly:  n.ReadOnly,
		Streaming: n.Streaming,
	}, nil
}

// Kind returns the kind of a feature
func (nm *NodeMap) Kind(name string) (Kind, error) {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	n, ok := nm.nodes[name]
	if !ok {
		return "", ErrFeatureNotFound{Feature: name}
	}
	return n.Kind, nil
}

func (nm *NodeMap) lookup(name string, want Kind) (*Node, error) {
	n, ok := nm.nodes[name]
	if !ok {
		return nil, ErrFeatureNotFound{Feature: name}
	}
	if n.Kind != want && !(want == String && n.Kind == Enum) {
		return nil, ErrWrongKind{Feature: name, Kind: n.Kind, Want: want}
	}
	return n, nil
}

// get fetches the value of a node, calling its Getter outside the lock
func (nm *NodeMap) get(name string, want Kind) (interface{}, error) {
	nm.mu.RLock()
	n, err := nm.lookup(name, want)
	if err != nil {
		nm.mu.RUnlock()
		return nil, err
	}
	getter, v := n.Getter, n.Value
	nm.mu.RUnlock()
	if getter != nil {
		return getter(), nil
	}
	return v, nil
}

// set validates v against the node, calls its Setter outside the lock, then
// stores v
func (nm *NodeMap) set(name string, want Kind, v interface{}) error {
	nm.mu.RLock()
	n, err := nm.lookup(name, want)
	if err != nil {
		nm.mu.RUnlock()
		return err
	}
	if n.ReadOnly {
		nm.mu.RUnlock()
		return fmt.Errorf("%w: %s", ErrReadOnly, name)
	}
	if n.Streaming && nm.locked {
		nm.mu.RUnlock()
		return fmt.Errorf("%w: %s", ErrLocked, name)
	}
	if err := n.check(v); err != nil {
		nm.mu.RUnlock()
		return err
	}
	setter := n.Setter
	nm.mu.RUnlock()

	if setter != nil {
		if err := setter(v); err != nil {
			return err
		}
	}
	nm.mu.Lock()
	n.Value = v
	nm.mu.Unlock()
	return nil
}

func (n *Node) check(v interface{}) error {
	switch n.Kind {
	case Int:
		if n.Max > n.Min {
			f := float64(v.(int64))
			if f < n.Min || f > n.Max {
				return fmt.Errorf("%w: %s=%d, limits [%g, %g]", ErrOutOfRange, n.Name, v, n.Min, n.Max)
			}
		}
	case Float:
		if n.Max > n.Min {
			f := v.(float64)
			if f < n.Min || f > n.Max {
				return fmt.Errorf("%w: %s=%g, limits [%g, %g]", ErrOutOfRange, n.Name, f, n.Min, n.Max)
			}
		}
	case Enum:
		s := v.(string)
		for _, e := range n.Entries {
			if e == s {
				return nil
			}
		}
		return fmt.Errorf("%w: %s=%s, options are %s", ErrInvalidEntry, n.Name, s, strings.Join(n.Entries, ", "))
	}
	return nil
}

// GetInt gets an integer feature
func (nm *NodeMap) GetInt(name string) (int64, error) {
	v, err := nm.get(name, Int)
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}

// SetInt sets an integer feature
func (nm *NodeMap) SetInt(name string, i int64) error {
	return nm.set(name, Int, i)
}

// GetFloat gets a float feature
func (nm *NodeMap) GetFloat(name string) (float64, error) {
	v, err := nm.get(name, Float)
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// SetFloat sets a float feature
func (nm *NodeMap) SetFloat(name string, f float64) error {
	return nm.set(name, Float, f)
}

// GetBool gets a boolean feature
func (nm *NodeMap) GetBool(name string) (bool, error) {
	v, err := nm.get(name, Bool)
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// SetBool sets a boolean feature
func (nm *NodeMap) SetBool(name string, b bool) error {
	return nm.set(name, Bool, b)
}

// GetString gets a string or the current entry of an enumeration
func (nm *NodeMap) GetString(name string) (string, error) {
	v, err := nm.get(name, String)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// SetString sets a string or enumeration feature
func (nm *NodeMap) SetString(name, s string) error {
	nm.mu.RLock()
	n, err := nm.lookup(name, String)
	var k Kind
	if err == nil {
		k = n.Kind
	}
	nm.mu.RUnlock()
	if err != nil {
		return err
	}
	return nm.set(name, k, s)
}

// Entries lists the options of an enumeration
func (nm *NodeMap) Entries(name string) ([]string, error) {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	n, err := nm.lookup(name, Enum)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), n.Entries...), nil
}

// Limits returns the minimum and maximum of a numeric feature
func (nm *NodeMap) Limits(name string) (float64, float64, error) {
	nm.mu.RLock()
	defer nm.mu.RUnlock()
	n, ok := nm.nodes[name]
	if !ok {
		return 0, 0, ErrFeatureNotFound{Feature: name}
	}
	if n.Kind != Int && n.Kind != Float {
		return 0, 0, ErrWrongKind{Feature: name, Kind: n.Kind, Want: Float}
	}
	return n.Min, n.Max, nil
}

// Execute runs a command feature
func (nm *NodeMap) Execute(name string) error {
	nm.mu.RLock()
	n, err := nm.lookup(name, Command)
	if err != nil {
		nm.mu.RUnlock()
		return err
	}
	exec := n.Exec
	nm.mu.RUnlock()
	if exec == nil {
		return nil
	}
	return exec()
}

// Get returns the value of any non-command feature as an interface
func (nm *NodeMap) Get(name string) (interface{}, error) {
	k, err := nm.Kind(name)
	if err != nil {
		return nil, err
	}
	if k == Command {
		return nil, ErrWrongKind{Feature: name, Kind: k, Want: String}
	}
	return nm.get(name, k)
}

// Set sets any non-command feature from a loosely typed value, as produced by
// JSON or YAML decoding.  Integral floats are accepted for Int features and
// integers for Float features.
func (nm *NodeMap) Set(name string, v interface{}) error {
	k, err := nm.Kind(name)
	if err != nil {
		return err
	}
	switch k {
	case Int:
		switch t := v.(type) {
		case int:
			return nm.SetInt(name, int64(t))
		case int64:
			return nm.SetInt(name, t)
		case float64:
			if t == float64(int64(t)) {
				return nm.SetInt(name, int64(t))
			}
		}
	case Float:
		switch t := v.(type) {
		case float64:
			return nm.SetFloat(name, t)
		case int:
			return nm.SetFloat(name, float64(t))
		case int64:
			return nm.SetFloat(name, float64(t))
		}
	case Bool:
		if b, ok := v.(bool); ok {
			return nm.SetBool(name, b)
		}
	case Enum, String:
		if s, ok := v.(string); ok {
			return nm.SetString(name, s)
		}
	case Command:
		return ErrWrongKind{Feature: name, Kind: k, Want: String}
	}
	return fmt.Errorf("value %v for key %s is not of kind %s", v, name, k)
}

// Configure takes a map of interfaces and calls Set for each, in name order.
// Every setting is attempted; the errors are joined.
func (nm *NodeMap) Configure(settings map[string]interface{}) error {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	errs := []error{}
	for _, k := range keys {
		if err := nm.Set(k, settings[k]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Snapshot captures the current values of the named features so they can be
// restored with Restore
func (nm *NodeMap) Snapshot(names ...string) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(names))
	for _, name := range names {
		v, err := nm.Get(name)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

// Restore sets features back to values captured by Snapshot.  Order matters
// for dependent features, so names gives the order to apply them in.
func (nm *NodeMap) Restore(snap map[string]interface{}, names ...string) error {
	errs := []error{}
	for _, name := range names {
		v, ok := snap[name]
		if !ok {
			continue
		}
		if err := nm.Set(name, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
