package tables

import "sort"

// Area is a physical zone of the restaurant.
type Area string

const (
	AreaInterna       Area = "interna"
	AreaPrimeiroSalao Area = "primeiro-salao"
	AreaExterna       Area = "externa"
)

// AreaNames maps areas to display names.
var AreaNames = map[Area]string{
	AreaInterna:       "Área Interna",
	AreaPrimeiroSalao: "Primeiro Salão",
	AreaExterna:       "Área Externa",
}

// IsValidArea reports whether a is a known area.
func IsValidArea(a Area) bool {
	_, ok := AreaNames[a]
	return ok
}

// Table is one physical table in the fixed floor plan.
type Table struct {
	Number      int    `json:"number"`
	Capacity    int    `json:"capacity"`
	Area        Area   `json:"area"`
	Description string `json:"description,omitempty"`
}

// Catalog is the immutable floor plan, indexed by table number.
type Catalog struct {
	tables   []Table
	byNumber map[int]Table
}

// NewCatalog builds a catalog from a table list. The default floor plan is
// in DefaultTables; tests pass smaller plans.
func NewCatalog(tables []Table) *Catalog {
	c := &Catalog{
		tables:   make([]Table, len(tables)),
		byNumber: make(map[int]Table, len(tables)),
	}
	copy(c.tables, tables)
	sort.Slice(c.tables, func(i, j int) bool { return c.tables[i].Number < c.tables[j].Number })
	for _, t := range c.tables {
		c.byNumber[t.Number] = t
	}
	return c
}

// Default returns the catalog for the current floor plan.
func Default() *Catalog {
	return NewCatalog(DefaultTables())
}

// All returns every table, ordered by number.
func (c *Catalog) All() []Table {
	out := make([]Table, len(c.tables))
	copy(out, c.tables)
	return out
}

// ByArea returns the tables in one area, ordered by number.
func (c *Catalog) ByArea(area Area) []Table {
	var out []Table
	for _, t := range c.tables {
		if t.Area == area {
			out = append(out, t)
		}
	}
	return out
}

// Lookup returns the table with the given number.
func (c *Catalog) Lookup(number int) (Table, bool) {
	t, ok := c.byNumber[number]
	return t, ok
}

// Capacity returns the seat count for a table number, defaulting to 4 for
// unknown numbers (legacy rows may reference retired tables).
func (c *Catalog) Capacity(number int) int {
	if t, ok := c.byNumber[number]; ok {
		return t.Capacity
	}
	return 4
}

// TotalTables returns the number of tables in the plan.
func (c *Catalog) TotalTables() int {
	return len(c.tables)
}

// TotalCapacity returns the summed seat count of the whole plan.
func (c *Catalog) TotalCapacity() int {
	sum := 0
	for _, t := range c.tables {
		sum += t.Capacity
	}
	return sum
}

// CapacityOf sums the seat count of the given table numbers.
func (c *Catalog) CapacityOf(numbers []int) int {
	sum := 0
	for _, n := range numbers {
		sum += c.Capacity(n)
	}
	return sum
}

// CalculateTablesNeeded estimates how many tables a party needs, greedily
// allocating the largest fitting size first (8, 6, 4, then 2). This is an
// approximation, not an optimal packing: a remainder of 3 consumes a
// 4-seat table, a remainder of 1-2 a 2-seat table.
func (c *Catalog) CalculateTablesNeeded(people int) int {
	remaining := people
	needed := 0

	for remaining >= 8 && c.hasCapacity(8) {
		remaining -= 8
		needed++
	}
	for remaining >= 6 && c.hasCapacity(6) {
		remaining -= 6
		needed++
	}
	for remaining >= 4 {
		remaining -= 4
		needed++
	}
	for remaining > 0 {
		if remaining <= 2 {
			remaining = 0
		} else {
			remaining -= 4
		}
		needed++
	}
	return needed
}

func (c *Catalog) hasCapacity(capacity int) bool {
	for _, t := range c.tables {
		if t.Capacity == capacity {
			return true
		}
	}
	return false
}

// DefaultTables is the Rosa Mexicano floor plan: 49 tables across three
// areas, 208 seats in total. Numbers 9, 13 and 15 do not exist.
func DefaultTables() []Table {
	var out []Table

	// Área interna (1-25, minus 9, 13, 15)
	for n := 1; n <= 8; n++ {
		out = append(out, Table{Number: n, Capacity: 4, Area: AreaInterna})
	}
	for n := 10; n <= 12; n++ {
		out = append(out, Table{Number: n, Capacity: 2, Area: AreaInterna, Description: "Mesa pequena"})
	}
	out = append(out, Table{Number: 14, Capacity: 4, Area: AreaInterna})
	out = append(out, Table{Number: 16, Capacity: 8, Area: AreaInterna, Description: "Mesa grande"})
	for n := 17; n <= 20; n++ {
		out = append(out, Table{Number: n, Capacity: 6, Area: AreaInterna, Description: "Booth"})
	}
	for n := 21; n <= 25; n++ {
		out = append(out, Table{Number: n, Capacity: 4, Area: AreaInterna})
	}

	// Primeiro salão (26-37)
	for n := 26; n <= 37; n++ {
		out = append(out, Table{Number: n, Capacity: 4, Area: AreaPrimeiroSalao})
	}

	// Área externa (38-52)
	for n := 38; n <= 46; n++ {
		out = append(out, Table{Number: n, Capacity: 4, Area: AreaExterna})
	}
	for n := 47; n <= 49; n++ {
		out = append(out, Table{Number: n, Capacity: 6, Area: AreaExterna, Description: "Mesa grande"})
	}
	for n := 50; n <= 52; n++ {
		out = append(out, Table{Number: n, Capacity: 4, Area: AreaExterna})
	}

	return out
}
