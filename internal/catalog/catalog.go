// Package catalog holds the sellable product groups and their fixed prices.
package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultSpec is the price list used when CATALOG is not set.
const DefaultSpec = "ID1=28000,ID2=25000,ID3=23000,ID4=20000,ID5=18000,ID6=15000,ID7=10000,ID8=9000"

var ErrEmpty = errors.New("catalog is empty")

type Group struct {
	ID    string
	Price int64 // rupiah
}

type Catalog struct {
	groups []Group
	byID   map[string]Group
}

// Parse reads "ID=price" pairs separated by commas. Order is kept for display.
func Parse(spec string) (*Catalog, error) {
	c := &Catalog{byID: map[string]Group{}}
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, price, ok := strings.Cut(part, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("catalog entry %q: want ID=price", part)
		}
		p, err := strconv.ParseInt(strings.TrimSpace(price), 10, 64)
		if err != nil || p <= 0 {
			return nil, fmt.Errorf("catalog entry %q: price must be a positive integer", part)
		}
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("catalog entry %q: duplicate group", part)
		}
		g := Group{ID: id, Price: p}
		c.groups = append(c.groups, g)
		c.byID[id] = g
	}
	if len(c.groups) == 0 {
		return nil, ErrEmpty
	}
	return c, nil
}

func Default() *Catalog {
	c, err := Parse(DefaultSpec)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Price(groupID string) (int64, bool) {
	g, ok := c.byID[groupID]
	return g.Price, ok
}

func (c *Catalog) Has(groupID string) bool {
	_, ok := c.byID[groupID]
	return ok
}

// Groups returns a copy in display order.
func (c *Catalog) Groups() []Group {
	out := make([]Group, len(c.groups))
	copy(out, c.groups)
	return out
}
