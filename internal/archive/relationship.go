package archive

import "strings"

// Relationship is one alternative of a dependency clause: a package name,
// an optional architecture qualifier, and an optional version constraint
// including its comparator, e.g. ">= 2.36". Constraints are recorded but
// never evaluated.
type Relationship struct {
	Name         string
	Version      string
	Architecture string
}

// Clause is an ordered group of alternatives joined by OR.
type Clause []Relationship

// RelationshipField is the parsed value of a relationship-bearing control
// field: an ordered sequence of comma-separated clauses.
type RelationshipField []Clause

// ParseRelationshipField parses the textual form
//
//	field       := clause ("," clause)*
//	clause      := alternative ("|" alternative)*
//	alternative := name [":" arch] [" (" constraint ")"]
//
// trimming whitespace around separators. An empty value yields nil.
func ParseRelationshipField(s string) RelationshipField {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var field RelationshipField
	for _, clauseText := range strings.Split(s, ",") {
		var clause Clause
		for _, altText := range strings.Split(clauseText, "|") {
			alt := parseAlternative(altText)
			if alt.Name == "" {
				continue
			}
			clause = append(clause, alt)
		}
		if len(clause) > 0 {
			field = append(field, clause)
		}
	}
	return field
}

func parseAlternative(s string) Relationship {
	s = strings.TrimSpace(s)

	var version string
	if name, rest, found := strings.Cut(s, "("); found {
		s = strings.TrimSpace(name)
		rest = strings.TrimSpace(rest)
		rest = strings.TrimSuffix(rest, ")")
		version = strings.TrimSpace(rest)
	}

	name, arch, _ := strings.Cut(s, ":")
	return Relationship{
		Name:         strings.TrimSpace(name),
		Version:      version,
		Architecture: strings.TrimSpace(arch),
	}
}

// String reassembles the alternative in control-file form.
func (rel Relationship) String() string {
	var b strings.Builder
	b.WriteString(rel.Name)
	if rel.Architecture != "" {
		b.WriteString(":")
		b.WriteString(rel.Architecture)
	}
	if rel.Version != "" {
		b.WriteString(" (")
		b.WriteString(rel.Version)
		b.WriteString(")")
	}
	return b.String()
}

// String joins the alternatives with " | ".
func (c Clause) String() string {
	parts := make([]string, len(c))
	for i, alt := range c {
		parts[i] = alt.String()
	}
	return strings.Join(parts, " | ")
}

// String joins the clauses with ", ".
func (f RelationshipField) String() string {
	parts := make([]string, len(f))
	for i, clause := range f {
		parts[i] = clause.String()
	}
	return strings.Join(parts, ", ")
}

// Names returns the first alternative's name of every clause, the names the
// resolver treats as the field's direct requirements.
func (f RelationshipField) Names() []string {
	names := make([]string, 0, len(f))
	for _, clause := range f {
		if len(clause) > 0 {
			names = append(names, clause[0].Name)
		}
	}
	return names
}

// AllNames returns every alternative's name across all clauses, used when
// flattening Provides.
func (f RelationshipField) AllNames() []string {
	var names []string
	for _, clause := range f {
		for _, alt := range clause {
			names = append(names, alt.Name)
		}
	}
	return names
}
