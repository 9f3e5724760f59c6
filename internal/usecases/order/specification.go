package order

import (
	"github.com/shortlink-org/go-sdk/specification"

	domaininventory "github.com/shortlink-org/kiosk-oms/internal/domain/inventory"
)

// lineCheck bundles the catalog facts Store.Create needs to validate one
// requested line: the item snapshot, its live availability, and the
// quantity the kiosk asked for.
type lineCheck struct {
	item         domaininventory.ItemLive
	availability domaininventory.Availability
	quantity     int64
}

// itemActiveSpec rejects a line against a catalog item that has been
// deactivated since the kiosk last refreshed its menu.
type itemActiveSpec struct{}

func (itemActiveSpec) IsSatisfiedBy(c *lineCheck) error {
	if !c.item.IsActive {
		return ErrItemInactive
	}

	return nil
}

// sufficientStockSpec rejects a line whose requested quantity exceeds the
// item's currently available stock.
type sufficientStockSpec struct{}

func (sufficientStockSpec) IsSatisfiedBy(c *lineCheck) error {
	if !c.availability.HasSufficientStock(c.quantity) {
		return ErrInsufficientQty
	}

	return nil
}

// newLineSpecification returns the composite specification a requested
// line must satisfy to be accepted into an order.
func newLineSpecification() specification.Specification[lineCheck] {
	return specification.NewAndSpecification[lineCheck](
		itemActiveSpec{},
		sufficientStockSpec{},
	)
}
