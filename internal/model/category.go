package model

import "fmt"

// Family names one of the two independent category families.
type Family string

const (
	FamilyWatch Family = "watch"
	FamilyFlag  Family = "flag"
)

// Families lists every category family in a stable order.
var Families = []Family{FamilyWatch, FamilyFlag}

// ParseFamily validates a family name.
func ParseFamily(s string) (Family, error) {
	switch Family(s) {
	case FamilyWatch, FamilyFlag:
		return Family(s), nil
	default:
		return "", &ReferenceError{Kind: "family", Value: s}
	}
}

// Index is a category slot within a family.
type Index int

const (
	// NumIndices is the number of slots in every family.
	NumIndices = 8

	// DefaultIndex is the watch family's derived slot: the live universe
	// minus every other watch slot.
	DefaultIndex Index = 5
)

// ParseIndex validates a slot number. There is no silent default.
func ParseIndex(i int) (Index, error) {
	if i < 0 || i >= NumIndices {
		return 0, &ReferenceError{Kind: "category index", Value: fmt.Sprintf("%d", i)}
	}
	return Index(i), nil
}

// IsDerived reports whether index is computed rather than assigned for the family.
func (f Family) IsDerived(index Index) bool {
	return f == FamilyWatch && index == DefaultIndex
}
