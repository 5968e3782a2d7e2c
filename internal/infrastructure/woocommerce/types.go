package woocommerce

import (
	"encoding/json"
	"strconv"
)

// ---------------------------------------------------------------------------
// Store API
// ---------------------------------------------------------------------------

// itemData is a label/value pair attached to a cart line
type itemData struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type addItemRequest struct {
	ID       int64      `json:"id"`
	Quantity int        `json:"quantity"`
	ItemData []itemData `json:"item_data,omitempty"`
}

type updateItemRequest struct {
	Key      string `json:"key"`
	Quantity int    `json:"quantity"`
}

type removeItemRequest struct {
	Key string `json:"key"`
}

// storeCart is the subset of the Store API cart the adapter reads
type storeCart struct {
	Items []storeCartItem `json:"items"`
}

// storeCartItem accepts both the current and the legacy line key field
type storeCartItem struct {
	Key      string        `json:"key"`
	ItemKey  string        `json:"item_key"`
	ID       int64         `json:"id"`
	Quantity storeQuantity `json:"quantity"`
	ItemData []itemData    `json:"item_data"`
}

func (i storeCartItem) lineKey() string {
	if i.Key != "" {
		return i.Key
	}
	return i.ItemKey
}

// storeQuantity decodes either 2 or {"value": 2}
type storeQuantity int

func (q *storeQuantity) UnmarshalJSON(data []byte) error {
	if n, err := strconv.Atoi(string(data)); err == nil {
		*q = storeQuantity(n)
		return nil
	}
	var wrapped struct {
		Value int `json:"value"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*q = storeQuantity(wrapped.Value)
	return nil
}

type nonceResponse struct {
	Nonce string `json:"nonce"`
}

// apiError is the error body both APIs return
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ---------------------------------------------------------------------------
// REST API
// ---------------------------------------------------------------------------

type restAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Address1  string `json:"address_1"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type restMeta struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type restLineItem struct {
	ProductID int64      `json:"product_id"`
	Quantity  int        `json:"quantity"`
	MetaData  []restMeta `json:"meta_data"`
}

type restCouponLine struct {
	Code string `json:"code"`
}

type orderPayload struct {
	Status             string           `json:"status"`
	SetPaid            bool             `json:"set_paid"`
	PaymentMethod      string           `json:"payment_method"`
	PaymentMethodTitle string           `json:"payment_method_title"`
	Billing            restAddress      `json:"billing"`
	Shipping           restAddress      `json:"shipping"`
	LineItems          []restLineItem   `json:"line_items"`
	CouponLines        []restCouponLine `json:"coupon_lines"`
	CustomerNote       string           `json:"customer_note"`
	MetaData           []restMeta       `json:"meta_data"`
}

type orderResponse struct {
	ID       int64  `json:"id"`
	OrderKey string `json:"order_key"`
	Status   string `json:"status"`
}

type couponResponse struct {
	Code           string  `json:"code"`
	DiscountType   string  `json:"discount_type"`
	Amount         string  `json:"amount"`
	DateExpiresGMT *string `json:"date_expires_gmt"`
	DateExpires    *string `json:"date_expires"`
	UsageCount     int     `json:"usage_count"`
	UsageLimit     *int    `json:"usage_limit"`
}
