package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryTShirt    Category = "T-Shirt"
	CategoryHoodie    Category = "Hoodie"
	CategoryJacket    Category = "Jacket"
	CategoryJeans     Category = "Jeans"
	CategoryDress     Category = "Dress"
	CategorySkirt     Category = "Skirt"
	CategoryShoes     Category = "Shoes"
	CategoryAccessory Category = "Accessory"
)

var Categories = []Category{
	CategoryTShirt, CategoryHoodie, CategoryJacket, CategoryJeans,
	CategoryDress, CategorySkirt, CategoryShoes, CategoryAccessory,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

type Gender string

const (
	GenderMen    Gender = "Men"
	GenderWomen  Gender = "Women"
	GenderUnisex Gender = "Unisex"
)

var Genders = []Gender{GenderMen, GenderWomen, GenderUnisex}

func (g Gender) Valid() bool {
	for _, v := range Genders {
		if g == v {
			return true
		}
	}
	return false
}

type Season string

const (
	SeasonSpring Season = "Spring"
	SeasonSummer Season = "Summer"
	SeasonAutumn Season = "Autumn"
	SeasonWinter Season = "Winter"
)

var Seasons = []Season{SeasonSpring, SeasonSummer, SeasonAutumn, SeasonWinter}

func (s Season) Valid() bool {
	for _, v := range Seasons {
		if s == v {
			return true
		}
	}
	return false
}

type Product struct {
	ID          string          `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Image       string          `gorm:"type:text" json:"image,omitempty"`
	Category    Category        `gorm:"type:varchar(30);not null;index" json:"category"`
	Gender      Gender          `gorm:"type:varchar(20);not null;index" json:"gender"`
	Season      Season          `gorm:"type:varchar(20);not null;index" json:"season"`
	// nil for legacy rows created before ownership was recorded
	CreatedBy *string   `gorm:"type:uuid;index" json:"createdBy,omitempty"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

// EditableBy applies the nullable-owner rule: a product without a recorded
// creator may be edited by any authenticated user.
func (p Product) EditableBy(userID string) bool {
	if p.CreatedBy == nil {
		return true
	}
	return *p.CreatedBy == userID
}
