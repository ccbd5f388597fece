package printify

// Shop is one Printify shop the token has access to.
type Shop struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Variant is one sellable variant on a catalog product.
type Variant struct {
	ID      int64  `json:"id"`
	SKU     string `json:"sku"`
	Title   string `json:"title"`
	Price   int    `json:"price"`
	Enabled bool   `json:"is_enabled"`
	InStock bool   `json:"is_available"`
}

// Image is one mockup/asset attached to a catalog product.
type Image struct {
	Src      string `json:"src"`
	Position string `json:"position"`
	Default  bool   `json:"is_default"`
}

// Product is a Printify catalog product.
type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Visible     bool      `json:"visible"`
	Variants    []Variant `json:"variants"`
	Images      []Image   `json:"images"`
}

// ProductPage is one page of the paginated product listing.
type ProductPage struct {
	CurrentPage int       `json:"current_page"`
	LastPage    int       `json:"last_page"`
	Total       int       `json:"total"`
	Data        []Product `json:"data"`
}

// AddressTo is the shipping destination on an order.
type AddressTo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Country   string `json:"country"`
	Region    string `json:"region"`
	City      string `json:"city"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	Zip       string `json:"zip"`
}

// LineItem is one purchased variant on an order.
type LineItem struct {
	ProductID string `json:"product_id"`
	VariantID int64  `json:"variant_id"`
	Quantity  int    `json:"quantity"`
	Price     int    `json:"price"`
	Status    string `json:"status"`
}

// Shipment carries tracking data once an order ships.
type Shipment struct {
	Carrier string `json:"carrier"`
	Number  string `json:"number"`
}

// Order is a Printify order.
type Order struct {
	ID            string     `json:"id"`
	Status        string     `json:"status"`
	AddressTo     *AddressTo `json:"address_to"`
	LineItems     []LineItem `json:"line_items"`
	TotalPrice    int        `json:"total_price"`
	TotalShipping int        `json:"total_shipping"`
	Shipments     []Shipment `json:"shipments"`
	CreatedAt     string     `json:"created_at"`
}

// OrderPage is one page of the paginated order listing.
type OrderPage struct {
	CurrentPage int     `json:"current_page"`
	LastPage    int     `json:"last_page"`
	Total       int     `json:"total"`
	Data        []Order `json:"data"`
}

// Webhook is one registered vendor-side subscription.
type Webhook struct {
	ID     string `json:"id"`
	Topic  string `json:"topic"`
	URL    string `json:"url"`
	ShopID string `json:"shop_id"`
}
