package invoice

// Sample returns the fixed showcase invoice used for template previews.
func Sample(template string) Document {
	return Document{
		Business: Business{
			Name:    "Acme Design Co.",
			Address: "123 Creative Blvd, San Francisco, CA 94102",
			Email:   "hello@acmedesign.co",
			Phone:   "+1 (415) 555-0123",
		},
		Client: Client{
			Name:    "TechStart Inc.",
			Address: "456 Innovation Way, New York, NY 10001",
			Email:   "billing@techstart.io",
		},
		Number:    "INV-2025-042",
		IssueDate: "2025-02-11",
		DueDate:   "2025-03-11",
		Currency:  "USD",
		Items: []LineItem{
			{ID: "1", Description: "Website Redesign", Quantity: 1, Rate: 4500},
			{ID: "2", Description: "Brand Identity Package", Quantity: 1, Rate: 2800},
			{ID: "3", Description: "SEO Optimization", Quantity: 3, Rate: 600},
			{ID: "4", Description: "Content Strategy", Quantity: 1, Rate: 1200},
		},
		TaxRate:  8.5,
		Discount: 500,
		Notes: "Thank you for your business! Payment is due within 30 days.\n" +
			"Please include the invoice number in your payment reference.\n" +
			"Bank: Chase | Acct: 1234567890 | Routing: 021000021",
		Template: template,
	}
}
