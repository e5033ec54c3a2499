package queryir

// Action names accepted by Decode.
const (
	ActionSelect = "select"
	ActionInsert = "insert"
	ActionUpdate = "update"
	ActionRemove = "remove"
)

// Query is a decoded descriptor.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode()

	// Action returns the statement kind (select, insert, update, remove).
	Action() string

	// From returns the table source of the query.
	From() *Source
}

// Predicate is a filter condition.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode()
}

// Source is the table a query addresses plus the tables it joins.
type Source struct {
	Table string
	Alias string
	Joins []Join
}

// Join joins another table onto a Source.
//
// Keyed is true when the join came from the object form
// ({"join": {"table": {...}}}) rather than the array form
// ({"join": [{"table": "t", ...}]}).
type Join struct {
	Table string
	Alias string
	Type  JoinType
	On    []OnPair
	Keyed bool
}

// JoinType is the SQL join kind.
type JoinType string

// Supported join kinds.
const (
	JoinInner JoinType = "inner"
	JoinLeft  JoinType = "left"
	JoinRight JoinType = "right"
	JoinFull  JoinType = "full"
	JoinCross JoinType = "cross"
)

// OnPair equates two column references: Left = Right.
type OnPair struct {
	Left  string
	Right string
}

// SortKey is one ORDER BY term.
type SortKey struct {
	Field string
	Desc  bool
}

// Select reads rows.
//
//	SELECT <fields> FROM <table> <joins> WHERE <condition>
//	GROUP BY <group> ORDER BY <sort> LIMIT <limit> OFFSET <offset>
//
// Empty Fields selects every column.
type Select struct {
	Source
	Fields    []string
	Distinct  bool
	Condition Predicate
	Group     []string
	Sort      []SortKey
	Limit     *uint64
	Offset    *uint64
}

func (*Select) queryNode() {}
func (*Select) Action() string { return ActionSelect }
func (s *Select) From() *Source { return &s.Source }

// Insert adds one or more rows. Every row holds one value per column.
type Insert struct {
	Source
	Columns []string
	Rows    [][]any
}

func (*Insert) queryNode() {}
func (*Insert) Action() string { return ActionInsert }
func (i *Insert) From() *Source { return &i.Source }

// Update modifies rows matching Condition (all rows when nil).
type Update struct {
	Source
	Modifier  []Assignment
	Condition Predicate
}

func (*Update) queryNode() {}
func (*Update) Action() string { return ActionUpdate }
func (u *Update) From() *Source { return &u.Source }

// Remove deletes rows matching Condition (all rows when nil).
type Remove struct {
	Source
	Condition Predicate
}

func (*Remove) queryNode() {}
func (*Remove) Action() string { return ActionRemove }
func (r *Remove) From() *Source { return &r.Source }

// AssignOp is the kind of change an Assignment makes.
type AssignOp string

// Assignment operators.
const (
	AssignSet AssignOp = "set"
	AssignInc AssignOp = "inc"
	AssignDec AssignOp = "dec"
)

// Assignment is one column change in an Update.
type Assignment struct {
	Column string
	Op     AssignOp
	Value  any
}

// Operator is a comparison operator.
type Operator string

// Comparison operators.
const (
	OpEq   Operator = "="
	OpNe   Operator = "<>"
	OpGt   Operator = ">"
	OpGte  Operator = ">="
	OpLt   Operator = "<"
	OpLte  Operator = "<="
	OpLike Operator = "LIKE"
)

// Compare is <field> <op> <value>.
type Compare struct {
	Field string
	Op    Operator
	Value any
}

func (Compare) predicateNode() {}

// In is <field> [NOT] IN (<values>).
type In struct {
	Field  string
	Values []any
	Negate bool
}

func (In) predicateNode() {}

// IsNull is <field> IS [NOT] NULL.
type IsNull struct {
	Field  string
	Negate bool
}

func (IsNull) predicateNode() {}

// And is a conjunction. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or is a disjunction. An empty Or is always false.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}
