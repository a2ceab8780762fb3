package model

// ContentRef points at a learning object inside a course module.
type ContentRef struct {
	ID       int    `json:"id"`
	ModuleID int    `json:"module_id"`
	OrderNum int    `json:"order_num"`
	Slug     string `json:"slug"`
}
