package facet

import (
	"go.uber.org/zap"

	"github.com/inodb/genefacet/internal/dataset"
	"github.com/inodb/genefacet/internal/schema"
)

// Engine evaluates selections against a Dataset.
type Engine struct {
	ds     *dataset.Dataset
	logger *zap.Logger
}

// NewEngine creates an engine over the given dataset.
func NewEngine(ds *dataset.Dataset) *Engine {
	return &Engine{
		ds:     ds,
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for debug messages about ignored selections.
func (e *Engine) SetLogger(l *zap.Logger) {
	e.logger = l
}

// Dataset returns the dataset the engine filters.
func (e *Engine) Dataset() *dataset.Dataset {
	return e.ds
}

// Apply is a convenience for NewEngine(ds).Apply(sel).
func Apply(ds *dataset.Dataset, sel Selection) []*dataset.GeneRecord {
	return NewEngine(ds).Apply(sel)
}

// Apply returns the records matching sel, in dataset order.
func (e *Engine) Apply(sel Selection) []*dataset.GeneRecord {
	return e.Compile(sel).Filter(e.ds.Records())
}

// Ignored describes a selection entry that matched nothing in the dataset's
// schema or domain and was dropped.
type Ignored struct {
	Facet  string // facet key, or "programs"
	Value  string
	Reason string
}

// Ignore reasons.
const (
	ReasonUnknownFacet   = "unknown facet"
	ReasonUnknownValue   = "value not in domain"
	ReasonUnknownProgram = "unknown program"
)

// ProgramsFacet is the Ignored.Facet name used for program selections.
const ProgramsFacet = "programs"

// Query is a compiled selection. It is safe for concurrent use.
type Query struct {
	facets      []facetPredicate
	programs    []string
	minPrograms int
	ignored     []Ignored
}

type facetPredicate struct {
	key    string
	values map[string]bool // stored values, may include schema.Missing
}

// Compile resolves a selection against the engine's dataset. Chosen values
// outside a facet's domain are dropped and reported by Query.Ignored; a facet
// whose chosen values are all dropped imposes no restriction.
func (e *Engine) Compile(sel Selection) *Query {
	sch := e.ds.Schema()
	q := &Query{minPrograms: sel.MinPrograms()}

	for _, key := range sel.Facets() {
		f, ok := sch.Facet(key)
		if !ok {
			for _, v := range sel.values[key] {
				q.ignore(e.logger, Ignored{Facet: key, Value: v, Reason: ReasonUnknownFacet})
			}
			continue
		}

		values := make(map[string]bool)
		for _, token := range sel.values[key] {
			v := f.Resolve(token)
			if !e.ds.Known(key, v) {
				q.ignore(e.logger, Ignored{Facet: key, Value: token, Reason: ReasonUnknownValue})
				continue
			}
			values[v] = true
		}
		if len(values) > 0 {
			q.facets = append(q.facets, facetPredicate{key: key, values: values})
		}
	}

	seen := make(map[string]bool)
	for _, token := range sel.programs {
		name, ok := e.ds.ResolveProgram(token)
		if !ok {
			q.ignore(e.logger, Ignored{Facet: ProgramsFacet, Value: token, Reason: ReasonUnknownProgram})
			continue
		}
		if !seen[name] {
			seen[name] = true
			q.programs = append(q.programs, name)
		}
	}

	return q
}

func (q *Query) ignore(log *zap.Logger, ig Ignored) {
	log.Debug("ignoring selection",
		zap.String("facet", ig.Facet),
		zap.String("value", ig.Value),
		zap.String("reason", ig.Reason))
	q.ignored = append(q.ignored, ig)
}

// Ignored returns the selection entries dropped during compilation.
func (q *Query) Ignored() []Ignored {
	return append([]Ignored(nil), q.ignored...)
}

// MinPrograms returns the effective program-count threshold.
func (q *Query) MinPrograms() int {
	return q.minPrograms
}

// Match reports whether a record satisfies every active facet.
func (q *Query) Match(r *dataset.GeneRecord) bool {
	if r.ProgramCount < q.minPrograms {
		return false
	}
	for _, p := range q.facets {
		v, ok := r.Value(p.key)
		if !ok {
			v = schema.Missing
		}
		if !p.values[v] {
			return false
		}
	}
	if len(q.programs) > 0 {
		member := false
		for _, name := range q.programs {
			if r.InProgram(name) {
				member = true
				break
			}
		}
		if !member {
			return false
		}
	}
	return true
}

// Filter returns the records matching q, preserving order. The input slice
// is not modified.
func (q *Query) Filter(records []*dataset.GeneRecord) []*dataset.GeneRecord {
	out := make([]*dataset.GeneRecord, 0, len(records))
	for _, r := range records {
		if q.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// GeneIDs returns the gene identifiers of records, in order.
func GeneIDs(records []*dataset.GeneRecord) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.Gene
	}
	return ids
}
