package models

import "time"

// Product represents a product in the catalog.
type Product struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description" gorm:"not null"`
	Price       float64   `json:"price" gorm:"type:decimal;not null"`
	CreatedAt   time.Time `json:"createdAt" gorm:"not null"`
}

// ProductFilter narrows a product listing. Nil bounds are not applied.
type ProductFilter struct {
	MinPrice *float64
	MaxPrice *float64
}

// Matches reports whether p lies within the filter's inclusive bounds.
func (f ProductFilter) Matches(p Product) bool {
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	return true
}

// CreateProductInput is the validated payload for creating a product.
type CreateProductInput struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Description string   `json:"description" validate:"required"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
}

// UpdateProductInput carries a partial update. Only non-nil fields are applied;
// id and createdAt are not accepted.
type UpdateProductInput struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string  `json:"description" validate:"omitempty,min=1"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
}

// Apply merges the supplied fields into p.
func (in UpdateProductInput) Apply(p *Product) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
}
