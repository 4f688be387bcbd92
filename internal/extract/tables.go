package extract

// DefaultConfig returns the production keyword and make tables. Loaded once
// at startup; tests inject their own Config instead of mutating this one.
func DefaultConfig() Config {
	return Config{
		Makes: []string{
			"Ford", "Chevrolet", "Chevy", "GMC", "Ram", "Dodge", "Toyota",
			"Honda", "Nissan", "Tesla", "BMW", "Mercedes", "Audi", "Volkswagen",
			"Subaru", "Hyundai", "Kia", "Jeep", "Lexus", "Mazda", "Porsche",
			"Rivian", "Yugo",
		},
		PricingKeywords: []string{
			"how much", "price", "pricing", "cost", "quote", "estimate", "rate",
		},
		OrderKeywords: []string{
			"order status", "my order", "order number", "track", "tracking",
			"where is my", "shipped", "shipping status",
		},
		SpecialtyKeywords: []string{
			"chrome", "matte", "satin", "carbon fiber", "color shift",
			"specialty film", "brushed metal",
		},
		ColorChangeKeywords: []string{
			"color change", "colour change", "full wrap color", "change the color",
		},
		PPFKeywords: []string{
			"ppf", "paint protection", "clear bra", "stone chip",
		},
		CommercialKeywords: []string{
			"commercial graphics", "business wrap", "company logo", "logo wrap",
			"advertising wrap", "van lettering",
		},
		DesignKeywords: []string{
			"design file", "artwork", "proof", "vector", "file format",
			"wrong design", "design issue",
		},
		BulkKeywords: []string{
			"fleet", "bulk", "multiple vehicles", "several vans", "whole fleet",
		},
		ComplaintKeywords: []string{
			"complaint", "unhappy", "refund", "terrible", "peeling", "bubbling",
			"disappointed", "manager",
		},
	}
}
