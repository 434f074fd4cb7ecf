// Package basket holds a customer's pending selections for one client session
// and turns them into one order request per vendor at checkout.
package basket

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

var ErrInvalidQuantity = errors.New("quantity must be a positive integer")

// Item is a product as shown in the catalog.
type Item struct {
	Name           string
	Price          float64
	VendorUsername string
	Image          string
}

// Line is one (item, vendor) selection. A basket never holds two lines with
// the same item name and vendor.
type Line struct {
	ID             string
	ItemName       string
	Price          float64
	Quantity       int
	VendorUsername string
	Image          string
}

func (l Line) Subtotal() float64 {
	return l.subtotal().InexactFloat64()
}

func (l Line) subtotal() decimal.Decimal {
	return decimal.NewFromFloat(l.Price).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Group is the set of lines sharing one vendor.
type Group struct {
	Vendor string
	Lines  []Line
}

func (g Group) Total() float64 {
	return sumCents(g.Lines).InexactFloat64()
}

type Basket struct {
	mu    sync.Mutex
	lines []Line
	now   func() time.Time
}

func New() *Basket {
	return &Basket{now: time.Now}
}

// Add merges quantity into the line for (item name, vendor), or appends a
// new line. It returns the resulting line.
func (b *Basket) Add(item Item, quantity int) (Line, error) {
	if quantity <= 0 {
		return Line{}, ErrInvalidQuantity
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.lines {
		if b.lines[i].ItemName == item.Name && b.lines[i].VendorUsername == item.VendorUsername {
			b.lines[i].Quantity += quantity
			return b.lines[i], nil
		}
	}

	line := Line{
		ID:             fmt.Sprintf("%s-%s-%d", item.Name, item.VendorUsername, b.now().UnixMilli()),
		ItemName:       item.Name,
		Price:          item.Price,
		Quantity:       quantity,
		VendorUsername: item.VendorUsername,
		Image:          item.Image,
	}
	b.lines = append(b.lines, line)
	return line, nil
}

// ParseQuantity coerces user input to a quantity the way a form field is
// read: surrounding space is ignored and parsing stops at the first non-digit.
func ParseQuantity(s string) (int, error) {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && (unicode.IsDigit(rune(s[end])) || (end == 0 && (s[0] == '-' || s[0] == '+'))) {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n <= 0 {
		return 0, ErrInvalidQuantity
	}
	return n, nil
}

// Remove deletes the line with id. Unknown ids are ignored.
func (b *Basket) Remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.lines {
		if b.lines[i].ID == id {
			b.lines = append(b.lines[:i], b.lines[i+1:]...)
			return
		}
	}
}

func (b *Basket) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = nil
}

// Lines returns a copy of the current lines in insertion order.
func (b *Basket) Lines() []Line {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Line(nil), b.lines...)
}

func (b *Basket) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lines)
}

// Total is the display total. The server does not depend on it.
func (b *Basket) Total() float64 {
	return sumCents(b.Lines()).InexactFloat64()
}

func (b *Basket) FormatTotal() string {
	return sumCents(b.Lines()).StringFixed(2)
}

// Groups partitions the lines by vendor. Vendors appear in the order their
// first line was added.
func (b *Basket) Groups() []Group {
	return groupByVendor(b.Lines())
}

func groupByVendor(lines []Line) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, l := range lines {
		i, ok := index[l.VendorUsername]
		if !ok {
			i = len(groups)
			index[l.VendorUsername] = i
			groups = append(groups, Group{Vendor: l.VendorUsername})
		}
		groups[i].Lines = append(groups[i].Lines, l)
	}
	return groups
}

// removeSubmitted takes the submitted quantity off each line by id. A line is
// dropped only when nothing is left of it.
func (b *Basket) removeSubmitted(submitted map[string]int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.lines[:0]
	for _, l := range b.lines {
		l.Quantity -= submitted[l.ID]
		if l.Quantity > 0 {
			kept = append(kept, l)
		}
	}
	b.lines = kept
}

// sumCents adds line subtotals and rounds half away from zero to cents.
func sumCents(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.subtotal())
	}
	return total.Round(2)
}
