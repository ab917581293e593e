package models

// Product types. The type gates post-purchase delivery: digital products
// reveal a download URL after payment, physical ones are shipped.
const (
	ProductTypeEbook    = "ebook"
	ProductTypePhysical = "physical"
)

// Product represents an item in the store catalog. The catalog is loaded
// once at startup and treated as read-only afterwards.
type Product struct {
	ID          string  `json:"id" gorm:"primaryKey;type:varchar(36)" validate:"required"`
	Name        string  `json:"name" validate:"required,min=3,max=100"`
	Description string  `json:"description" validate:"omitempty,max=500"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	Type        string  `json:"type" validate:"required,oneof=ebook physical"`
	// URL is the download link for digital products, surfaced on the
	// payment result page once the payment is confirmed.
	URL          string `json:"url,omitempty"`
	TelegramLink string `json:"telegramLink,omitempty"`
}
