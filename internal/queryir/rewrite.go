package queryir

import "github.com/4miners/shift/internal/namespace"

// Rewrite confines q to the namespace of dappid, in place.
//
// It returns the tables of aliased joins whose On references were left
// untouched. Calling Rewrite twice on the same query prefixes every table
// twice.
func Rewrite(q Query, dappid string) (skippedOn []string) {
	if q == nil {
		return nil
	}
	src := q.From()
	src.Table = namespace.Qualify(dappid, src.Table)
	for i := range src.Joins {
		if !rewriteJoin(&src.Joins[i], dappid) {
			skippedOn = append(skippedOn, src.Joins[i].Table)
		}
	}
	return skippedOn
}

// rewriteJoin reports whether the join's On references were rewritten.
func rewriteJoin(j *Join, dappid string) bool {
	j.Table = namespace.Qualify(dappid, j.Table)
	if j.Alias != "" {
		// Aliased joins keep their On references as written.
		return len(j.On) == 0
	}
	for i, pair := range j.On {
		j.On[i] = OnPair{
			Left:  namespace.QualifyRef(dappid, pair.Left),
			Right: namespace.QualifyRef(dappid, pair.Right),
		}
	}
	return true
}

// Tables lists every table q references, source first then joins in order.
func Tables(q Query) []string {
	if q == nil {
		return nil
	}
	src := q.From()
	tables := []string{src.Table}
	for _, j := range src.Joins {
		tables = append(tables, j.Table)
	}
	return tables
}
