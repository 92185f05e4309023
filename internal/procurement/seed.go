package procurement

import (
	"time"

	"github.com/shopspring/decimal"
)

// SampleSnapshot returns the demonstration records the workflow ships with.
func SampleSnapshot() Snapshot {
	return Snapshot{
		TakenAt: time.Date(2024, time.January, 20, 0, 0, 0, 0, time.UTC),
		MRFs: []MaterialRequest{
			{
				ID:             "MRF-001",
				PersonInCharge: "Maria Santos",
				Department:     DepartmentAdministration,
				Project:        "Head Office Q1 Supplies",
				RequestDate:    MustDate("2024-01-08"),
				RequiredDate:   MustDate("2024-01-25"),
				LineItems: []LineItem{
					{Description: "A4 Copy Paper", Quantity: 10, Unit: "reams", Urgency: UrgencyMedium, Purpose: "For Q1 office needs"},
					{Description: "Blue Ballpoint Pens", Quantity: 5, Unit: "boxes", Urgency: UrgencyHigh, Purpose: "Office supplies replenishment"},
				},
				Status: MRFStatusClosed,
			},
			{
				ID:             "MRF-002",
				PersonInCharge: "Site Foreman",
				Department:     DepartmentConstruction,
				Project:        "Construction Site A",
				RequestDate:    MustDate("2024-01-12"),
				RequiredDate:   MustDate("2024-02-01"),
				LineItems: []LineItem{
					{Description: "Steel Pipes (2 inch)", Quantity: 15, Unit: "pieces", Urgency: UrgencyUrgent, Purpose: "For Site A construction"},
				},
				Status: MRFStatusPMApproved,
			},
		},
		Quotations: []Quotation{
			{
				ID:            "QUO-001",
				MRFID:         "MRF-001",
				SupplierName:  "ABC Supplies Co.",
				SupplierEmail: "quotes@abcsupplies.com",
				Items:         []string{"Office Supplies", "Printer Paper", "Stationery"},
				TotalAmount:   decimal.NewFromInt(15750),
				ValidUntil:    datePtr(MustDate("2024-02-15")),
				RequestDate:   MustDate("2024-01-10"),
				ResponseDate:  datePtr(MustDate("2024-01-12")),
				Status:        QuotationStatusReceived,
			},
			{
				ID:            "QUO-002",
				MRFID:         "MRF-002",
				SupplierName:  "Steel Works Inc.",
				SupplierEmail: "sales@steelworks.com",
				Items:         []string{"Steel Pipes", "Fittings", "Welding Materials"},
				TotalAmount:   decimal.NewFromInt(89500),
				ValidUntil:    datePtr(MustDate("2024-02-20")),
				RequestDate:   MustDate("2024-01-15"),
				Status:        QuotationStatusPending,
			},
		},
		PurchaseOrders: []PurchaseOrder{
			{
				ID:               "PO-001",
				QuotationID:      "QUO-001",
				SupplierName:     "ABC Supplies Co.",
				TotalAmount:      decimal.NewFromInt(15750),
				PaymentTerms:     PaymentTermsPDC,
				Signatory:        SignatoryProjectSupport,
				ApprovalWindow:   WindowSameDay,
				CreatedDate:      MustDate("2024-01-15"),
				ExpectedDelivery: MustDate("2024-01-25"),
				Status:           POStatusPendingApproval,
			},
			{
				ID:               "PO-002",
				QuotationID:      "QUO-002",
				SupplierName:     "Steel Works Inc.",
				TotalAmount:      decimal.NewFromInt(89500),
				PaymentTerms:     PaymentTermsFundTransfer,
				Signatory:        SignatoryFinanceAndMD,
				ApprovalWindow:   WindowOneToTwo,
				CreatedDate:      MustDate("2024-01-16"),
				ExpectedDelivery: MustDate("2024-02-01"),
				Status:           POStatusPendingApproval,
			},
		},
		Deliveries: []Delivery{
			{
				ID:             "DEL-001",
				POID:           "PO-001",
				SupplierName:   "ABC Supplies Co.",
				Items:          []string{"Office Supplies", "Printer Paper", "Stationery"},
				DeliveryType:   DeliveryTypeOffice,
				DeliveryMethod: DeliveryMethodSupplier,
				ScheduledDate:  MustDate("2024-01-25"),
				Address:        "Main Office, 123 Business Street, Makati City",
				ContactPerson:  "John Doe",
				ContactNumber:  "+63-917-123-4567",
				Status:         DeliveryStatusScheduled,
			},
			{
				ID:             "DEL-002",
				POID:           "PO-002",
				SupplierName:   "Steel Works Inc.",
				Items:          []string{"Steel Pipes", "Fittings", "Welding Materials"},
				DeliveryType:   DeliveryTypeSite,
				DeliveryMethod: DeliveryMethodLalamove,
				ScheduledDate:  MustDate("2024-02-01"),
				Address:        "Construction Site A, Quezon City",
				ContactPerson:  "Site Foreman",
				ContactNumber:  "+63-917-987-6543",
				Status:         DeliveryStatusPendingCoordination,
			},
		},
		Inventory: []InventoryItem{
			{
				ID:           "INV-001",
				Name:         "A4 Copy Paper",
				Category:     "Office Supplies",
				CurrentStock: 50,
				MinimumStock: 20,
				Unit:         "reams",
				UnitCost:     decimal.RequireFromString("5.50"),
				Location:     "Storage Room A",
				LastUpdated:  MustDate("2024-01-20"),
			},
			{
				ID:           "INV-002",
				Name:         "Blue Ballpoint Pens",
				Category:     "Office Supplies",
				CurrentStock: 5,
				MinimumStock: 25,
				Unit:         "boxes",
				UnitCost:     decimal.RequireFromString("12.00"),
				Location:     "Supply Cabinet",
				LastUpdated:  MustDate("2024-01-19"),
			},
			{
				ID:           "INV-003",
				Name:         "Steel Pipes (2 inch)",
				Category:     "Construction",
				CurrentStock: 0,
				MinimumStock: 10,
				Unit:         "pieces",
				UnitCost:     decimal.RequireFromString("45.00"),
				Location:     "Warehouse B",
				LastUpdated:  MustDate("2024-01-18"),
			},
		},
	}
}

// SeedSampleData loads SampleSnapshot into the store.
func SeedSampleData(store *Store) error {
	return store.Restore(SampleSnapshot())
}

// SampleSupplierDirectory returns the demonstration supplier catalogue.
func SampleSupplierDirectory() *SupplierDirectory {
	suppliers := []Supplier{
		{
			ID:           "SUP-001",
			Name:         "ABC Construction Supplies",
			Email:        "sales@abcsupplies.com",
			Phone:        "+63 2 8123 4567",
			Address:      "123 Industrial Ave, Makati City",
			Rating:       4.5,
			Specialties:  []string{"Construction Materials", "Hardware", "Tools"},
			PaymentTerms: []string{"30 Days", "PDC", "Terms"},
			LeadTime:     "3-5 days",
			Verified:     true,
		},
		{
			ID:           "SUP-002",
			Name:         "Premium Steel Works Inc.",
			Email:        "orders@steelworks.com",
			Phone:        "+63 2 8987 6543",
			Address:      "456 Steel Road, Quezon City",
			Rating:       4.8,
			Specialties:  []string{"Steel Products", "Metal Fabrication", "Pipes"},
			PaymentTerms: []string{"Fund Transfer", "PDC"},
			LeadTime:     "5-7 days",
			Verified:     true,
		},
		{
			ID:           "SUP-003",
			Name:         "Office Solutions Hub",
			Email:        "info@officesolutions.com",
			Phone:        "+63 2 8456 7890",
			Address:      "789 Business Park, BGC",
			Rating:       4.2,
			Specialties:  []string{"Office Supplies", "Furniture", "Technology"},
			PaymentTerms: []string{"Terms", "15 Days"},
			LeadTime:     "1-3 days",
		},
	}
	offers := []SupplierOffer{
		{
			ID: "ITEM-001", SupplierID: "SUP-001", ItemName: "Steel Pipe 4 inches", Brand: "PhilSteel",
			Price: decimal.NewFromInt(1250), Currency: "PHP", MinQuantity: 10, LeadTime: "3-5 days", PaymentTerms: "30 Days",
			Specifications: "Galvanized steel pipe, 4 inch diameter, 6 meter length", LastUpdated: MustDate("2024-01-15"),
		},
		{
			ID: "ITEM-002", SupplierID: "SUP-002", ItemName: "Steel Pipe 4 inches", Brand: "PhilSteel",
			Price: decimal.NewFromInt(1180), Currency: "PHP", MinQuantity: 20, LeadTime: "5-7 days", PaymentTerms: "Fund Transfer",
			Specifications: "Galvanized steel pipe, 4 inch diameter, 6 meter length", LastUpdated: MustDate("2024-01-16"),
		},
		{
			ID: "ITEM-003", SupplierID: "SUP-003", ItemName: "Office Chair Executive", Brand: "ErgoMax",
			Price: decimal.NewFromInt(8500), Currency: "PHP", MinQuantity: 1, LeadTime: "1-3 days", PaymentTerms: "Terms",
			Specifications: "Ergonomic office chair with lumbar support, leather finish", LastUpdated: MustDate("2024-01-14"),
		},
	}
	return NewSupplierDirectory(suppliers, offers)
}
