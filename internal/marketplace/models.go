package marketplace

// TokenPair is the result of a password or refresh_token grant.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// CheckTokenResponse describes the token owner as reported by the remote API.
type CheckTokenResponse struct {
	AccountID int64  `json:"account_id"`
	FirstName string `json:"first_name"`
	Email     string `json:"email"`
}

// Shop is one storefront shop as listed by the seller API.
type Shop struct {
	ID       int64  `json:"id"`
	Title    string `json:"shop_title"`
	SkuTitle string `json:"sku_title"`
}

// ShopItemSku is one sellable sku of a product.
type ShopItemSku struct {
	SkuID              int64  `json:"sku_id"`
	ProductTitle       string `json:"product_title"`
	SkuFullTitle       string `json:"sku_full_title"`
	Price              int64  `json:"price"`
	PurchasePrice      *int64 `json:"purchase_price"`
	Barcode            string `json:"barcode"`
	QuantityActive     int64  `json:"quantity_active"`
	QuantityAdditional int64  `json:"quantity_additional"`
}

// ShopItem is one product row from the paginated shop listing.
type ShopItem struct {
	ProductID int64         `json:"product_id"`
	SkuTitle  string        `json:"sku_title"`
	Image     string        `json:"image"`
	SkuList   []ShopItemSku `json:"sku_list"`
}

type shopItemPage struct {
	ProductList []ShopItem `json:"product_list"`
}

// ProductInfo is the per-product lookup used during sync for category data and
// the characteristics payload echoed back on price changes.
type ProductInfo struct {
	Category struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	} `json:"category"`
	Characteristics map[string]interface{} `json:"characteristics"`
	SkuList         []ProductInfoSku       `json:"sku_list"`
}

type ProductInfoSku struct {
	ID        int64  `json:"id"`
	FullPrice int64  `json:"full_price"`
	SellPrice int64  `json:"sell_price"`
	SkuTitle  string `json:"sku_title"`
	Barcode   string `json:"barcode"`
}

// PriceChangeSku is one sku entry of the sendSkuData payload. Prices are
// minor units.
type PriceChangeSku struct {
	ID        int64  `json:"id"`
	FullPrice int64  `json:"full_price"`
	SellPrice int64  `json:"sell_price"`
	SkuTitle  string `json:"sku_title"`
	Barcode   string `json:"barcode"`
}

// PriceChangePayload is the full sendSkuData request body. Every sku of the
// product must be present, not only the repriced one.
type PriceChangePayload struct {
	ProductID       int64                  `json:"product_id"`
	SkuForProduct   string                 `json:"sku_for_product"`
	SkuList         []PriceChangeSku       `json:"sku_list"`
	Characteristics map[string]interface{} `json:"characteristics,omitempty"`
}
