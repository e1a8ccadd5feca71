package ecommerce

// ---------------------------------------------------------------------------
// Real Authentication API types
// ---------------------------------------------------------------------------

// RealAuthCategory is an entry of GET /v2/categories
type RealAuthCategory struct {
	ID             int64                   `json:"id"`
	Name           string                  `json:"name"`
	Brands         []RealAuthBrand         `json:"brands"`
	CategoryImages []RealAuthCategoryImage `json:"categoryImages"`
}

// RealAuthBrand is a brand under a category
type RealAuthBrand struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// RealAuthCategoryImage is an image slot declared by a category
type RealAuthCategoryImage struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
}

// RealAuthService is an entry of GET /v2/services
type RealAuthService struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// RealAuthImageResponse is the response of POST /v2/images
type RealAuthImageResponse struct {
	ID int64 `json:"id"`
}

// RealAuthOrderImage is one image reference on an order
type RealAuthOrderImage struct {
	CategoryImageID *int64 `json:"category_image_id,omitempty"`
	ImageID         int64  `json:"image_id"`
}

// RealAuthOrderRequest is the body of POST /v2/orders
type RealAuthOrderRequest struct {
	Email             string               `json:"email"`
	Title             string               `json:"title"`
	BrandID           int64                `json:"brand_id"`
	CategoryID        int64                `json:"category_id"`
	DocumentationName string               `json:"documentation_name"`
	WebLink           string               `json:"web_link"`
	Note              string               `json:"note"`
	SerialNumber      string               `json:"serial_number"`
	SKU               string               `json:"sku"`
	Images            []RealAuthOrderImage `json:"images"`
}

// RealAuthOrderResponse is the response of POST /v2/orders
type RealAuthOrderResponse struct {
	ID                int64  `json:"id"`
	StatusDescription string `json:"statusDescription"`
	Note              string `json:"note"`
	SerialNumber      string `json:"serialNumber"`
	Link              string `json:"link"`
}

// RealAuthServiceRef is one service in a link request
type RealAuthServiceRef struct {
	ServiceID int64 `json:"service_id"`
}

// RealAuthServicesRequest is the body of POST /v2/orders/{id}/services
type RealAuthServicesRequest struct {
	Services []RealAuthServiceRef `json:"services"`
}
