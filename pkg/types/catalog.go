package types

// ProductVariant captures one sellable variant of a catalog product.
type ProductVariant struct {
	VariantID  int64  `json:"variantId"`
	SKU        string `json:"sku"`
	Title      string `json:"title"`
	PriceCents int    `json:"priceCents"`
	Enabled    bool   `json:"enabled"`
	InStock    bool   `json:"inStock"`
}

// ProductVariants is the jsonb-serialized variant list on a product row.
type ProductVariants []ProductVariant

// Address is the shipping destination carried on an order.
type Address struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Country   string `json:"country"`
	Region    string `json:"region,omitempty"`
	City      string `json:"city"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2,omitempty"`
	Zip       string `json:"zip"`
}

// OrderLineItem is one purchased variant on an order.
type OrderLineItem struct {
	ProductExternalID string `json:"productExternalId"`
	VariantID         int64  `json:"variantId"`
	Quantity          int    `json:"quantity"`
	PriceCents        int    `json:"priceCents"`
	Status            string `json:"status,omitempty"`
}

// OrderLineItems is the jsonb-serialized line item list on an order row.
type OrderLineItems []OrderLineItem
