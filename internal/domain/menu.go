package domain

// MenuItem is one entry of the static canteen catalog. The catalog is
// seeded by migration and never mutated by the kiosk.
type MenuItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	ImageURL    string  `json:"image_url"`
}
