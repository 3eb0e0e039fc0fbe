package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nathoo/parley/types"
)

// opAliases maps every accepted operator spelling to its canonical form.
var opAliases = map[string]types.CompareOp{
	"==": types.OpEq,
	"eq": types.OpEq,
	"!=": types.OpNe,
	"ne": types.OpNe,
	"<>": types.OpNe,
	"<":  types.OpLt,
	"<=": types.OpLe,
	">":  types.OpGt,
	">=": types.OpGe,
}

// ParseCondition parses "left OP right". The operator must be surrounded by
// whitespace so tags like <bot mood> are not mistaken for comparisons.
func ParseCondition(expr string) (types.Condition, error) {
	fields := strings.Fields(expr)
	for k := 1; k < len(fields)-1; k++ {
		op, ok := opAliases[fields[k]]
		if !ok {
			continue
		}
		return types.Condition{
			Left:  strings.Join(fields[:k], " "),
			Op:    op,
			Right: strings.Join(fields[k+1:], " "),
		}, nil
	}
	return types.Condition{}, fmt.Errorf("malformed condition %q: want \"left OP right\"", expr)
}

// EvalCondition substitutes tags on both sides of c and compares the
// results. Equality is exact string comparison; ordering operators compare
// numerically and are false when either side is not a number.
func EvalCondition(c types.Condition, substitute func(string) string) bool {
	left := strings.TrimSpace(substitute(c.Left))
	right := strings.TrimSpace(substitute(c.Right))

	switch c.Op {
	case types.OpEq:
		return left == right
	case types.OpNe:
		return left != right
	case types.OpLt, types.OpLe, types.OpGt, types.OpGe:
		l, err1 := strconv.ParseFloat(left, 64)
		r, err2 := strconv.ParseFloat(right, 64)
		if err1 != nil || err2 != nil {
			return false
		}
		switch c.Op {
		case types.OpLt:
			return l < r
		case types.OpLe:
			return l <= r
		case types.OpGt:
			return l > r
		default:
			return l >= r
		}
	default:
		return false
	}
}

// SelectBranch returns the reply group of the first branch whose condition
// holds, else the trigger's unconditioned replies. ok is false when neither
// exists: the trigger has no usable branch.
func SelectBranch(t *types.Trigger, substitute func(string) string) (group *types.ResponseGroup, branch int, ok bool) {
	for i := range t.Branches {
		if EvalCondition(t.Branches[i].Cond, substitute) {
			return &t.Branches[i].Reply, i, true
		}
	}
	if len(t.Replies.Templates) > 0 {
		return &t.Replies, -1, true
	}
	return nil, -1, false
}
