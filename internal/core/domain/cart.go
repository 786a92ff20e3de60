package domain

import "github.com/shopspring/decimal"

type Product struct {
	ID    int64   `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
	Image string  `json:"image"`
}

type Stock struct {
	ID     int64 `json:"id"`
	Amount int   `json:"amount"`
}

// LineItem is one product entry in the cart. Amount is always >= 1.
type LineItem struct {
	Product
	Amount int `json:"amount"`
}

// Cart is an ordered collection of line items keyed by product id.
// Methods never modify the receiver; mutating helpers return a fresh slice.
type Cart []LineItem

func (c Cart) IndexOf(productID int64) int {
	for i, item := range c {
		if item.ID == productID {
			return i
		}
	}
	return -1
}

func (c Cart) Find(productID int64) (LineItem, bool) {
	if i := c.IndexOf(productID); i >= 0 {
		return c[i], true
	}
	return LineItem{}, false
}

func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// WithAmount returns a copy where productID has the given amount.
// The copy equals c if productID is absent.
func (c Cart) WithAmount(productID int64, amount int) Cart {
	out := c.Clone()
	if i := out.IndexOf(productID); i >= 0 {
		out[i].Amount = amount
	}
	return out
}

func (c Cart) Append(item LineItem) Cart {
	out := make(Cart, 0, len(c)+1)
	out = append(out, c...)
	return append(out, item)
}

func (c Cart) Without(productID int64) Cart {
	out := make(Cart, 0, len(c))
	for _, item := range c {
		if item.ID != productID {
			out = append(out, item)
		}
	}
	return out
}

// Size is the number of distinct products in the cart.
func (c Cart) Size() int {
	return len(c)
}

func (c Cart) Subtotal(productID int64) decimal.Decimal {
	item, ok := c.Find(productID)
	if !ok {
		return decimal.Zero
	}
	return item.Subtotal()
}

func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c {
		total = total.Add(item.Subtotal())
	}
	return total
}

func (i LineItem) Subtotal() decimal.Decimal {
	return decimal.NewFromFloat(i.Price).Mul(decimal.NewFromInt(int64(i.Amount)))
}

// Sanitize drops items with a non-positive amount and keeps only the first
// occurrence of each product id.
func Sanitize(items []LineItem) Cart {
	out := make(Cart, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		if item.Amount < 1 {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}
