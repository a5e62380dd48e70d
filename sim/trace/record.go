// Package trace records division, inheritance and bond-failure events for post-run
// analysis. It holds plain data types and does not import sim.
package trace

// DivisionRecord captures one division attempt.
type DivisionRecord struct {
	Step    int64
	Parent  int
	ChildA  int // equals Parent; child A reuses the parent index
	ChildB  int // -1 when the division was skipped
	Mode    int
	Skipped bool
	Reason  string
}

// InheritanceRecord captures the outcome of reassigning one parent bond to one child.
type InheritanceRecord struct {
	Step     int64
	Parent   int
	Child    int
	Neighbor int
	Zone     string // "A", "B", "C", or "-" for the sibling bond
	OK       bool
	Reason   string // error text when OK is false
}

// BondBreakRecord captures a bond removed because it exceeded its break limits.
type BondBreakRecord struct {
	Step        int64
	Connection  int
	CellA       int
	CellB       int
	SpringForce float64
	Stretch     float64
}
