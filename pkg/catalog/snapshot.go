package catalog

import (
	"slices"
	"sort"
	"strings"

	"github.com/charlie0129/vetcalc/pkg/calculator"
)

// Snapshot is an immutable view of the catalog. A new one is built after
// every mutation; holders of an old snapshot keep seeing the old state.
type Snapshot struct {
	builtins []calculator.Calculator
	custom   []calculator.Calculator
	all      []calculator.Calculator
	byID     map[string]int
	groups   []string
	programs []*calculator.Program
}

// Group is one group and its calculators, in catalog order.
type Group struct {
	Name        string                  `json:"name"`
	Calculators []calculator.Calculator `json:"calculators"`
}

// newSnapshot builds the view of builtins and custom. Compiled programs of
// prev are reused for calculators whose definition did not change.
func newSnapshot(builtins, custom []calculator.Calculator, prev *Snapshot) *Snapshot {
	s := &Snapshot{
		builtins: builtins,
		custom:   custom,
		all:      make([]calculator.Calculator, 0, len(builtins)+len(custom)),
		byID:     make(map[string]int, len(builtins)+len(custom)),
	}
	s.all = append(s.all, builtins...)
	s.all = append(s.all, custom...)
	s.programs = make([]*calculator.Program, len(s.all))
	for i, c := range s.all {
		if _, ok := s.byID[c.ID]; !ok {
			s.byID[c.ID] = i
		}
		s.programs[i] = prev.program(c)
	}
	s.groups = groupNames(s.all)
	return s
}

func groupNames(calcs []calculator.Calculator) []string {
	seen := make(map[string]struct{}, len(calcs))
	var groups []string
	for _, c := range calcs {
		if _, ok := seen[c.Group]; ok {
			continue
		}
		seen[c.Group] = struct{}{}
		groups = append(groups, c.Group)
	}
	sort.Strings(groups)
	return groups
}

// All returns built-ins first, then custom calculators in insertion order.
func (s *Snapshot) All() []calculator.Calculator {
	return slices.Clone(s.all)
}

func (s *Snapshot) Custom() []calculator.Calculator {
	return slices.Clone(s.custom)
}

func (s *Snapshot) Builtins() []calculator.Calculator {
	return slices.Clone(s.builtins)
}

func (s *Snapshot) program(c calculator.Calculator) *calculator.Program {
	if s != nil {
		if i, ok := s.byID[c.ID]; ok && s.programs[i].Compiled(c) {
			return s.programs[i]
		}
	}
	return calculator.Prepare(c)
}

// Program returns the compiled calculator for id.
func (s *Snapshot) Program(id string) (*calculator.Program, bool) {
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return s.programs[i], true
}

// Get looks a calculator up by id.
func (s *Snapshot) Get(id string) (calculator.Calculator, bool) {
	i, ok := s.byID[id]
	if !ok {
		return calculator.Calculator{}, false
	}
	return s.all[i].Clone(), true
}

// Groups returns every group name, sorted and unique.
func (s *Snapshot) Groups() []string {
	return slices.Clone(s.groups)
}

// ByGroup returns the calculators matching query bucketed by group, groups
// sorted. Groups without a match are left out.
func (s *Snapshot) ByGroup(query string) []Group {
	buckets := make(map[string][]calculator.Calculator, len(s.groups))
	for _, c := range s.Search(query) {
		buckets[c.Group] = append(buckets[c.Group], c)
	}
	out := make([]Group, 0, len(buckets))
	for _, g := range s.groups {
		if calcs, ok := buckets[g]; ok {
			out = append(out, Group{Name: g, Calculators: calcs})
		}
	}
	return out
}

// Search returns the calculators whose name, description or group contain
// query, ignoring case. An empty query matches everything.
func (s *Snapshot) Search(query string) []calculator.Calculator {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return s.All()
	}
	var out []calculator.Calculator
	for _, c := range s.all {
		if strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.Description), q) ||
			strings.Contains(strings.ToLower(c.Group), q) {
			out = append(out, c)
		}
	}
	return out
}
