package procurement

import (
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Supplier is a vendor that can be asked for quotations.
type Supplier struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Phone        string   `json:"phone"`
	Address      string   `json:"address"`
	Rating       float64  `json:"rating"`
	Specialties  []string `json:"specialties"`
	PaymentTerms []string `json:"paymentTerms"`
	LeadTime     string   `json:"leadTime"`
	Verified     bool     `json:"verified"`
}

// SupplierOffer is a catalogue price quoted by a supplier.
type SupplierOffer struct {
	ID             string          `json:"id"`
	SupplierID     string          `json:"supplierId"`
	ItemName       string          `json:"itemName"`
	Brand          string          `json:"brand"`
	Price          decimal.Decimal `json:"price"`
	Currency       string          `json:"currency"`
	MinQuantity    int             `json:"minQuantity"`
	LeadTime       string          `json:"leadTime"`
	PaymentTerms   string          `json:"paymentTerms"`
	Specifications string          `json:"specifications"`
	LastUpdated    Date            `json:"lastUpdated"`
}

// SupplierDirectory is a read-mostly list of suppliers and their offers.
type SupplierDirectory struct {
	mu        sync.RWMutex
	suppliers []Supplier
	offers    []SupplierOffer
}

// NewSupplierDirectory constructs a directory from the given records.
func NewSupplierDirectory(suppliers []Supplier, offers []SupplierOffer) *SupplierDirectory {
	return &SupplierDirectory{suppliers: slices.Clone(suppliers), offers: slices.Clone(offers)}
}

// Search matches term against supplier names and specialties, ignoring case.
func (d *SupplierDirectory) Search(term string) []Supplier {
	d.mu.RLock()
	defer d.mu.RUnlock()
	term = strings.ToLower(strings.TrimSpace(term))
	out := make([]Supplier, 0, len(d.suppliers))
	for _, s := range d.suppliers {
		if term == "" || strings.Contains(strings.ToLower(s.Name), term) || slices.ContainsFunc(s.Specialties, func(sp string) bool {
			return strings.Contains(strings.ToLower(sp), term)
		}) {
			out = append(out, s)
		}
	}
	return out
}

// Get returns a supplier by id.
func (d *SupplierDirectory) Get(id string) (Supplier, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, s := range d.suppliers {
		if s.ID == id {
			return s, nil
		}
	}
	return Supplier{}, &NotFoundError{Entity: "supplier", ID: id}
}

// CompareOffers lists offers whose item name contains itemName, cheapest first.
func (d *SupplierDirectory) CompareOffers(itemName string) []SupplierOffer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(itemName))
	var out []SupplierOffer
	for _, o := range d.offers {
		if strings.Contains(strings.ToLower(o.ItemName), needle) {
			out = append(out, o)
		}
	}
	slices.SortStableFunc(out, func(a, b SupplierOffer) int {
		return a.Price.Cmp(b.Price)
	})
	return out
}
