package integration

import (
	"github.com/knwn/storefront/internal/domain/cart"
)

// ProductMapper resolves the remote product that mirrors a cart line. Lines
// without a mapping are skipped by every remote operation but still count
// in local totals.
type ProductMapper interface {
	RemoteProductID(line cart.Line) (int64, bool)
}

// ProductMapperFunc adapts a function to ProductMapper
type ProductMapperFunc func(line cart.Line) (int64, bool)

// RemoteProductID implements ProductMapper
func (f ProductMapperFunc) RemoteProductID(line cart.Line) (int64, bool) {
	return f(line)
}

// LineMapping uses the remote product captured on the line from the menu
var LineMapping ProductMapper = ProductMapperFunc(func(line cart.Line) (int64, bool) {
	if !line.HasRemoteProduct() {
		return 0, false
	}
	return line.RemoteProductID, true
})

// OverrideMapping consults an explicit item-to-product table first and falls
// back to another mapper. A non-positive override disables mirroring for
// that item.
type OverrideMapping struct {
	overrides map[string]int64
	fallback  ProductMapper
}

// NewOverrideMapping creates an OverrideMapping. A nil fallback means
// LineMapping.
func NewOverrideMapping(overrides map[string]int64, fallback ProductMapper) *OverrideMapping {
	if fallback == nil {
		fallback = LineMapping
	}
	copied := make(map[string]int64, len(overrides))
	for k, v := range overrides {
		copied[k] = v
	}
	return &OverrideMapping{overrides: copied, fallback: fallback}
}

// RemoteProductID implements ProductMapper
func (m *OverrideMapping) RemoteProductID(line cart.Line) (int64, bool) {
	if id, ok := m.overrides[line.ItemID]; ok {
		return id, id > 0
	}
	return m.fallback.RemoteProductID(line)
}
