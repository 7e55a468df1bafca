package model

import "github.com/shopspring/decimal"

// Area is a pricing tier with a fixed seat capacity ("Plateia A",
// "Camarotes").  Areas are shared by many sessions; seats are the numbers
// 1..Capacity and are never stored individually.
type Area struct {
	ID       uint64          `json:"id"`
	Name     string          `json:"name"`
	Capacity int             `json:"capacity"`
	Price    decimal.Decimal `json:"price"`
	Active   bool            `json:"active"`
}
