package cart

import (
	"strings"
	"unicode/utf8"

	"github.com/knwn/storefront/internal/domain/catalog"
)

// MaxAvoidLength bounds the free-form exclusion text
const MaxAvoidLength = 280

// Attribute labels sent alongside remote line items and orders
const (
	LabelServiceDate     = "Service Date"
	LabelBase            = "Base"
	LabelSauce           = "Sauce"
	LabelProtein         = "Protein"
	LabelVegetarian      = "Vegetarian"
	LabelVegInstructions = "Vegetarian Instructions"
	LabelAvoid           = "Avoid"
	LabelSwap            = "Swap"
)

// Customization is the set of options chosen for one cart line. Its fields
// are in canonical order and every field is a comparable scalar, so two
// normalized customizations are the same selection iff they are ==.
type Customization struct {
	Base            string `json:"base,omitempty"`
	Sauce           string `json:"sauce,omitempty"`
	Protein         string `json:"protein,omitempty"`
	Vegetarian      bool   `json:"is_vegetarian,omitempty"`
	VegInstructions string `json:"veg_instructions,omitempty"`
	Avoid           string `json:"avoid,omitempty"`
	Swap            string `json:"swap,omitempty"`
}

// Normalize returns the canonical form: surrounding whitespace trimmed,
// inner runs of whitespace in free text collapsed, and vegetarian
// instructions dropped unless the vegetarian flag is set. An omitted field
// and an explicitly empty one normalize identically.
func (c Customization) Normalize() Customization {
	n := Customization{
		Base:       strings.TrimSpace(c.Base),
		Sauce:      strings.TrimSpace(c.Sauce),
		Protein:    strings.TrimSpace(c.Protein),
		Vegetarian: c.Vegetarian,
		Avoid:      collapseSpace(c.Avoid),
		Swap:       strings.TrimSpace(c.Swap),
	}
	if n.Vegetarian {
		n.VegInstructions = collapseSpace(c.VegInstructions)
	}
	return n
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// IsEmpty reports whether nothing was customized
func (c Customization) IsEmpty() bool {
	return c.Normalize() == Customization{}
}

// Equal compares canonical forms
func (c Customization) Equal(o Customization) bool {
	return c.Normalize() == o.Normalize()
}

// Validate checks the selection against the item's schema. Choice fields
// must name a listed option; the vegetarian toggle needs the item to offer it.
func (c Customization) Validate(opts *catalog.CustomizationOptions) error {
	n := c.Normalize()
	if n.Base != "" && !opts.OffersBase(n.Base) {
		return invalidCustomization("base %q", n.Base)
	}
	if n.Sauce != "" && !opts.OffersSauce(n.Sauce) {
		return invalidCustomization("sauce %q", n.Sauce)
	}
	if n.Protein != "" && !opts.OffersProtein(n.Protein) {
		return invalidCustomization("protein %q", n.Protein)
	}
	if n.Swap != "" && !opts.OffersSwap(n.Swap) {
		return invalidCustomization("swap %q", n.Swap)
	}
	if n.Vegetarian && !opts.OffersVegetarian() {
		return invalidCustomization("vegetarian option")
	}
	if utf8.RuneCountInString(n.Avoid) > MaxAvoidLength {
		return invalidCustomization("avoid text longer than %d characters", MaxAvoidLength)
	}
	return nil
}

// Attribute is a human-readable (label, value) pair
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Attributes flattens the selection into labeled pairs in canonical order,
// skipping empty fields.
func (c Customization) Attributes() []Attribute {
	n := c.Normalize()
	var attrs []Attribute
	add := func(key, value string) {
		if value != "" {
			attrs = append(attrs, Attribute{Key: key, Value: value})
		}
	}
	add(LabelBase, n.Base)
	add(LabelSauce, n.Sauce)
	add(LabelProtein, n.Protein)
	if n.Vegetarian {
		add(LabelVegetarian, "Yes")
		add(LabelVegInstructions, n.VegInstructions)
	}
	add(LabelAvoid, n.Avoid)
	add(LabelSwap, n.Swap)
	return attrs
}
