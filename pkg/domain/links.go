package domain

// LinkType names the relationship a trace link expresses. Callers may use
// types outside the built-in set; those are treated as their own inverse.
type LinkType string

// Built-in link types.
const (
	LinkDerivedFrom   LinkType = "derived-from"
	LinkDerivesTo     LinkType = "derives-to"
	LinkParentOf      LinkType = "parent-of"
	LinkChildOf       LinkType = "child-of"
	LinkVerifies      LinkType = "verifies"
	LinkVerifiedBy    LinkType = "verified-by"
	LinkSatisfies     LinkType = "satisfies"
	LinkSatisfiedBy   LinkType = "satisfied-by"
	LinkImplements    LinkType = "implements"
	LinkImplementedBy LinkType = "implemented-by"
	LinkRefines       LinkType = "refines"
	LinkRefinedBy     LinkType = "refined-by"
	LinkDependsOn     LinkType = "depends-on"
	LinkDependencyOf  LinkType = "dependency-of"
	LinkRelatedTo     LinkType = "related-to"
	LinkConflictsWith LinkType = "conflicts-with"
)

var inverseLinks = map[LinkType]LinkType{
	LinkDerivedFrom:   LinkDerivesTo,
	LinkDerivesTo:     LinkDerivedFrom,
	LinkParentOf:      LinkChildOf,
	LinkChildOf:       LinkParentOf,
	LinkVerifies:      LinkVerifiedBy,
	LinkVerifiedBy:    LinkVerifies,
	LinkSatisfies:     LinkSatisfiedBy,
	LinkSatisfiedBy:   LinkSatisfies,
	LinkImplements:    LinkImplementedBy,
	LinkImplementedBy: LinkImplements,
	LinkRefines:       LinkRefinedBy,
	LinkRefinedBy:     LinkRefines,
	LinkDependsOn:     LinkDependencyOf,
	LinkDependencyOf:  LinkDependsOn,
	LinkRelatedTo:     LinkRelatedTo,
	LinkConflictsWith: LinkConflictsWith,
}

// AllLinkTypes lists the built-in link types.
func AllLinkTypes() []LinkType {
	return []LinkType{
		LinkDerivedFrom, LinkDerivesTo, LinkParentOf, LinkChildOf,
		LinkVerifies, LinkVerifiedBy, LinkSatisfies, LinkSatisfiedBy,
		LinkImplements, LinkImplementedBy, LinkRefines, LinkRefinedBy,
		LinkDependsOn, LinkDependencyOf, LinkRelatedTo, LinkConflictsWith,
	}
}

// Valid reports whether l is one of the built-in link types.
func (l LinkType) Valid() bool {
	_, ok := inverseLinks[l]
	return ok
}

// Inverse returns the link type stored on the target of a link of type l.
// Unknown types map to themselves.
func (l LinkType) Inverse() LinkType {
	if inv, ok := inverseLinks[l]; ok {
		return inv
	}
	return l
}

// Upstream reports whether targets of l sit above the source in the
// derivation chain.
func (l LinkType) Upstream() bool {
	return l == LinkDerivedFrom || l == LinkChildOf
}

// Downstream reports whether targets of l sit below the source in the
// derivation chain.
func (l LinkType) Downstream() bool {
	return l == LinkDerivesTo || l == LinkParentOf
}
