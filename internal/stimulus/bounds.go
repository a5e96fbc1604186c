package stimulus

import "fmt"

// Bound is the accepted range of an editable integer field.
type Bound struct {
	Field    string
	Min, Max int
}

var commonBounds = []Bound{
	{FieldFPS, 10, 1000},
	{FieldDuration, 1, 1000},
	{FieldRandomSeed, 0, 1000},
}

var variantBounds = map[Kind][]Bound{
	KindFixing: {
		{FieldFontSize, 1, 1000},
		{FieldCenterX, 1, 1000},
		{FieldCenterY, 1, 1000},
	},
	KindRandomCircles: {
		{FieldCount, 1, 1000},
		{FieldDotSize, 1, 1000},
		{FieldInnerRadius, 1, 1000},
		{FieldOuterRadius, 1, 1000},
	},
	KindColoredWords: {
		{FieldFontSize, 1, 100},
	},
}

// Bounds returns the editable integer fields of a variant with their ranges.
func Bounds(kind Kind) []Bound {
	out := make([]Bound, 0, len(variantBounds[kind])+len(commonBounds))
	out = append(out, variantBounds[kind]...)
	return append(out, commonBounds...)
}

// CheckBound reports whether value is within the editable range of field.
// Fields without a declared range are accepted as is.
func CheckBound(kind Kind, field string, value int) error {
	for _, b := range Bounds(kind) {
		if b.Field != field {
			continue
		}
		if value < b.Min || value > b.Max {
			return fmt.Errorf("%w: %s %s must be within [%d, %d], got %d",
				ErrInvalidSpec, kind, field, b.Min, b.Max, value)
		}
		return nil
	}
	return nil
}
