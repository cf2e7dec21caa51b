package ackqueue

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/flowqio/flowq/internal/types"
)

// dimWidth is the zero-padding width for flattened array column suffixes
// (spec.md §6: "v_dim_0000, v_dim_0001, v_dim_0002").
const dimWidth = 4

const dimMarker = "_dim_"

// flattenRecord expands every list-valued field of r into
// "<field>_dim_NNNN" scalar columns, leaving scalar fields untouched. The
// returned map has no list values in it.
//
// Field names must not themselves contain "_dim_" (spec.md §6), since the
// read path recovers the base name by splitting on "_" and reading the
// token before "dim" as the field and the token after it as the index.
func flattenRecord(r types.Record) (map[string]types.Value, error) {
	out := make(map[string]types.Value, len(r))
	for name, v := range r {
		if strings.Contains(name, dimMarker) {
			return nil, fmt.Errorf("%w: field name %q collides with array-flattening marker %q", types.ErrInvalidRecord, name, dimMarker)
		}
		if v.Kind != types.KindList {
			out[name] = v
			continue
		}
		for i, elem := range v.List {
			if elem.Kind == types.KindList {
				return nil, fmt.Errorf("%w: field %q is a list of lists, not a homogeneous scalar list", types.ErrInvalidRecord, name)
			}
			out[dimColumn(name, i)] = elem
		}
	}
	return out, nil
}

func dimColumn(field string, index int) string {
	return fmt.Sprintf("%s%s%0*d", field, dimMarker, dimWidth, index)
}

// unflattenRow regroups a raw column->value map (as read back from the
// table) into a Record, turning every run of "<field>_dim_NNNN" columns
// back into a single list field in index order. A gap in the indices is a
// bug (spec.md §4.1: "asserting all indices are filled").
func unflattenRow(raw map[string]types.Value) (types.Record, error) {
	rec := make(types.Record, len(raw))
	listElems := make(map[string]map[int]types.Value)

	for name, v := range raw {
		base, idx, isDim := splitDimColumn(name)
		if !isDim {
			rec[name] = v
			continue
		}
		if listElems[base] == nil {
			listElems[base] = make(map[int]types.Value)
		}
		listElems[base][idx] = v
	}

	for base, elems := range listElems {
		indices := make([]int, 0, len(elems))
		for i := range elems {
			indices = append(indices, i)
		}
		sort.Ints(indices)
		list := make([]types.Value, len(indices))
		for pos, want := range indices {
			if want != pos {
				return nil, fmt.Errorf("%w: field %q has a gap in its flattened array indices (missing index %d)", types.ErrStoreError, base, pos)
			}
			list[pos] = elems[want]
		}
		rec[base] = types.List(list...)
	}
	return rec, nil
}

// splitDimColumn implements spec.md §6's literal read-side rule: split the
// column name on "_", take token[0] as the base field name and token[2] as
// the dimension index, when the name matches the "<field>_dim_<NNNN>"
// shape.
func splitDimColumn(name string) (base string, index int, ok bool) {
	parts := strings.Split(name, "_")
	if len(parts) < 3 || parts[1] != "dim" {
		return "", 0, false
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, false
	}
	return parts[0], n, true
}
