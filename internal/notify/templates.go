package notify

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Category groups templates by purpose.
type Category string

const (
	CategoryQuotation Category = "quotation"
	CategoryInquiry   Category = "inquiry"
	CategoryFollowUp  Category = "followup"
	CategoryApproval  Category = "approval"
)

// Placeholder keys understood by the templates.
const (
	KeySupplierName        = "SUPPLIER_NAME"
	KeyProjectName         = "PROJECT_NAME"
	KeyItemDetails         = "ITEM_DETAILS"
	KeyDueDate             = "DUE_DATE"
	KeyCompanyName         = "COMPANY_NAME"
	KeyContactDetails      = "CONTACT_DETAILS"
	KeyBusinessDescription = "BUSINESS_DESCRIPTION"
	KeyDate                = "DATE"
	KeyPONumber            = "PO_NUMBER"
	KeyTotalAmount         = "TOTAL_AMOUNT"
	KeyDeliveryDate        = "DELIVERY_DATE"
)

// Template is a reusable supplier email with [PLACEHOLDER] markers.
type Template struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Subject  string   `json:"subject"`
	Body     string   `json:"body"`
}

// Sender fills the signature block.
type Sender struct {
	FullName string
	Role     string
	Company  string
	Contact  string
}

const signature = `

Best regards,
[YOUR_NAME]
[YOUR_TITLE]
[COMPANY_NAME]`

var templates = []Template{
	{
		ID:       "1",
		Name:     "Quotation Request",
		Category: CategoryQuotation,
		Subject:  "Request for Quotation - [PROJECT_NAME]",
		Body: `Dear [SUPPLIER_NAME],

I hope this email finds you well. We are currently seeking quotations for the following items for our project [PROJECT_NAME]:

[ITEM_DETAILS]

Please provide your best quotation including:
- Unit prices
- Minimum order quantities
- Lead time
- Payment terms
- Delivery terms
- Validity period

We would appreciate receiving your quotation by [DUE_DATE].

Thank you for your time and consideration.` + signature + `
Email: [CONTACT_EMAIL]
[CONTACT_DETAILS]`,
	},
	{
		ID:       "2",
		Name:     "Supplier Inquiry",
		Category: CategoryInquiry,
		Subject:  "Partnership Inquiry - [COMPANY_NAME]",
		Body: `Dear [SUPPLIER_NAME],

We are interested in establishing a business relationship with your company for our procurement needs.

Our company specializes in [BUSINESS_DESCRIPTION] and we are looking for reliable suppliers for:
- [PRODUCT_CATEGORY_1]
- [PRODUCT_CATEGORY_2]
- [PRODUCT_CATEGORY_3]

Could you please provide:
- Your product catalog
- Pricing structure
- Terms and conditions
- Delivery capabilities

We look forward to a mutually beneficial partnership.` + signature + `
Contact: [CONTACT_EMAIL]`,
	},
	{
		ID:       "3",
		Name:     "Follow-up Email",
		Category: CategoryFollowUp,
		Subject:  "Follow-up on Quotation Request - [PROJECT_NAME]",
		Body: `Dear [SUPPLIER_NAME],

I hope you are doing well. I am following up on our quotation request sent on [DATE] for project [PROJECT_NAME].

We would like to know the status of our request and when we can expect to receive your quotation.

If you need any additional information or clarification, please don't hesitate to contact me at [CONTACT_EMAIL].

Thank you for your attention to this matter.` + signature,
	},
	{
		ID:       "4",
		Name:     "Purchase Order Approval",
		Category: CategoryApproval,
		Subject:  "Purchase Order Approved - PO# [PO_NUMBER]",
		Body: `Dear [SUPPLIER_NAME],

We are pleased to inform you that your quotation has been approved and we would like to proceed with the purchase order.

Purchase Order Details:
- PO Number: [PO_NUMBER]
- Project: [PROJECT_NAME]
- Total Amount: [TOTAL_AMOUNT]
- Delivery Date: [DELIVERY_DATE]

Please confirm receipt of this purchase order and provide:
- Order acknowledgment
- Delivery schedule
- Invoice details

For any questions, please contact us at [CONTACT_EMAIL].

We look forward to working with you.` + signature,
	},
}

// Templates returns the built-in templates.
func Templates() []Template {
	return append([]Template(nil), templates...)
}

// TemplateFor returns the template of a category.
func TemplateFor(category Category) (Template, bool) {
	for _, t := range templates {
		if t.Category == category {
			return t, true
		}
	}
	return Template{}, false
}

// Render substitutes values and the sender signature. Unknown placeholders are
// left as they are so the author can still fill them in.
func (t Template) Render(recipient string, values map[string]string, sender Sender) Message {
	pairs := make([]string, 0, 2*(len(values)+4))
	for key, value := range values {
		if value != "" {
			pairs = append(pairs, "["+key+"]", value)
		}
	}
	pairs = appendIfSet(pairs, "[YOUR_NAME]", sender.FullName)
	pairs = appendIfSet(pairs, "[YOUR_TITLE]", sender.Role)
	pairs = appendIfSet(pairs, "[CONTACT_EMAIL]", sender.Contact)
	if _, ok := values[KeyCompanyName]; !ok {
		pairs = appendIfSet(pairs, "[COMPANY_NAME]", sender.Company)
	}
	r := strings.NewReplacer(pairs...)
	return Message{Recipient: recipient, Subject: r.Replace(t.Subject), Body: r.Replace(t.Body)}
}

func appendIfSet(pairs []string, placeholder, value string) []string {
	if value == "" {
		return pairs
	}
	return append(pairs, placeholder, value)
}

var printer = message.NewPrinter(language.English)

// FormatAmount renders an amount with thousands separators, e.g. PHP 15,750.00.
func FormatAmount(currency string, amount decimal.Decimal) string {
	value := printer.Sprintf("%.2f", amount.Round(2).InexactFloat64())
	if currency == "" {
		return value
	}
	return currency + " " + value
}
