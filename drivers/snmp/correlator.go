package snmp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gosnmp/gosnmp"
	"golang.org/x/sync/errgroup"

	"github.com/nanoncore/nano-onusync/logger"
	"github.com/nanoncore/nano-onusync/types"
)

// Policy decides whether per-field walks overlap.
type Policy int

const (
	// Concurrent runs every field walk at once, bounded by Parallelism
	Concurrent Policy = iota

	// Sequential walks one field at a time, for agents that fall over
	// under parallel requests
	Sequential
)

func (p Policy) String() string {
	if p == Sequential {
		return "sequential"
	}
	return "concurrent"
}

// ErrAllWalksFailed is returned when no field could be walked at all.
var ErrAllWalksFailed = errors.New("every SNMP walk failed")

// Row is the partial record gathered for one index.
type Row struct {
	Index  string
	Values types.Details
}

// Correlator walks each catalog column and folds them by instance index.
type Correlator struct {
	Walker Walker
	Policy Policy

	// Parallelism bounds concurrent walks; zero means one per field
	Parallelism int

	// Index extracts the instance index; defaults to TrailingIndex
	Index IndexFunc

	// Identifier must be present for a row to be emitted
	Identifier types.Field

	Logger logger.Logger
}

type column struct {
	entry  types.OIDEntry
	values map[string]string
	err    error
}

// Collect walks every entry of table and returns one row per index that
// carries the identifier field, ordered by index.
func (c *Correlator) Collect(ctx context.Context, table types.OIDTable) ([]Row, error) {
	log := c.Logger
	if log == nil {
		log = logger.NewTestLogger()
	}
	if c.Walker == nil {
		return nil, fmt.Errorf("walker is required")
	}
	if table.Empty() {
		return nil, fmt.Errorf("no OIDs to walk")
	}
	index := c.Index
	if index == nil {
		index = TrailingIndex
	}

	columns := make([]column, len(table.Entries))
	for i, e := range table.Entries {
		columns[i].entry = e
	}

	switch c.Policy {
	case Sequential:
		for i := range columns {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			c.walkColumn(ctx, &columns[i], index)
		}
	default:
		limit := c.Parallelism
		if limit <= 0 {
			limit = len(columns)
		}
		var g errgroup.Group
		g.SetLimit(limit)
		for i := range columns {
			col := &columns[i]
			g.Go(func() error {
				c.walkColumn(ctx, col, index)
				return nil
			})
		}
		_ = g.Wait()
	}

	failed, gathered := 0, 0
	for _, col := range columns {
		gathered += len(col.values)
		if col.err != nil {
			failed++
			log.Warn().Err(col.err).Str("field", string(col.entry.Field)).Str("oid", col.entry.OID).
				Int("values", len(col.values)).Msg("walk failed, keeping values gathered so far")
			continue
		}
		log.Debug().Str("field", string(col.entry.Field)).Int("values", len(col.values)).Msg("walk complete")
	}
	if failed == len(columns) && gathered == 0 {
		return nil, fmt.Errorf("%w: %v", ErrAllWalksFailed, columns[0].err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return c.fold(columns, log), nil
}

func (c *Correlator) walkColumn(ctx context.Context, col *column, index IndexFunc) {
	values := map[string]string{}
	err := c.Walker.Walk(ctx, col.entry.OID, func(pdu gosnmp.SnmpPDU) error {
		idx, ok := index(pdu.Name)
		if !ok {
			return nil
		}
		v, ok := RenderField(col.entry.Field, pdu)
		if !ok {
			return nil
		}
		values[idx] = v
		return nil
	})
	col.values, col.err = values, err
}

func (c *Correlator) fold(columns []column, log logger.Logger) []Row {
	byIndex := map[string]*types.Details{}
	for _, col := range columns {
		for idx, v := range col.values {
			d, ok := byIndex[idx]
			if !ok {
				nd := types.NewDetails()
				d = &nd
				byIndex[idx] = d
			}
			if col.entry.Field.IsKnown() {
				d.Set(col.entry.Field, v)
			} else {
				d.SetExtra(string(col.entry.Field), v)
			}
		}
	}

	rows := make([]Row, 0, len(byIndex))
	for idx, d := range byIndex {
		if c.Identifier != "" {
			if v, ok := d.Get(c.Identifier); !ok || strings.TrimSpace(v) == "" {
				log.Warn().Str("index", idx).Str("identifier", string(c.Identifier)).Msg("identifier missing, index dropped")
				continue
			}
		}
		rows = append(rows, Row{Index: idx, Values: *d})
	}

	sort.Slice(rows, func(i, j int) bool {
		return lessIndex(rows[i].Index, rows[j].Index)
	})
	return rows
}

// lessIndex orders dotted numeric indexes numerically, component by component.
func lessIndex(a, b string) bool {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(pa) && i < len(pb); i++ {
		na, errA := strconv.Atoi(pa[i])
		nb, errB := strconv.Atoi(pb[i])
		if errA != nil || errB != nil {
			if pa[i] != pb[i] {
				return pa[i] < pb[i]
			}
			continue
		}
		if na != nb {
			return na < nb
		}
	}
	return len(pa) < len(pb)
}
