package models

import (
	"github.com/shopcore/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product domain entity.
type ProductModel struct {
	AggregateModel
	SKU         string          `gorm:"column:sku;type:varchar(50);not null;uniqueIndex:idx_products_sku"`
	Name        string          `gorm:"type:varchar(200);not null"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency    string          `gorm:"type:varchar(3);not null;default:'USD'"`
	Stock       int             `gorm:"not null;default:0"`
	MinStock    int             `gorm:"not null;default:0"`
	Active      bool            `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseAggregateRoot: m.root(),
		SKU:               m.SKU,
		Name:              m.Name,
		Description:       m.Description,
		Price:             m.Price,
		Currency:          m.Currency,
		Stock:             m.Stock,
		MinStock:          m.MinStock,
		Active:            m.Active,
	}
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.setRoot(p.BaseAggregateRoot)
	m.SKU = p.SKU
	m.Name = p.Name
	m.Description = p.Description
	m.Price = p.Price
	m.Currency = p.Currency
	m.Stock = p.Stock
	m.MinStock = p.MinStock
	m.Active = p.Active
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
