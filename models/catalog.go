package models

type Vendor struct {
	Name      string `json:"name"`
	StallName string `json:"stall_name"`
}

type Item struct {
	ItemName       string  `json:"item_name"`
	ItemImage      *string `json:"item_image"`
	Price          float64 `json:"Price"`
	VendorUsername string  `json:"vendor_username,omitempty"`
	Category       string  `json:"Category,omitempty"`
}
