package expr

import (
	"errors"
	"strings"

	"github.com/aiqhub/aiq/engine/core"
)

// errNotApplicable marks a runtime evaluation failure (type mismatch,
// membership test against a non-container). Callers treat the whole
// condition as false rather than surfacing a fault.
var errNotApplicable = errors.New("condition not applicable")

// node is a compiled expression fragment. eval follows the source
// language's value semantics: and/or return operand values and the caller
// applies truthiness at the end.
type node interface {
	eval(env map[string]any) (any, error)
}

type litNode struct {
	value any
}

func (n *litNode) eval(map[string]any) (any, error) {
	return n.value, nil
}

// identNode resolves a normalised reference. Unbound names evaluate to
// nil so comparisons against absent answers stay well-defined.
type identNode struct {
	name string
}

func (n *identNode) eval(env map[string]any) (any, error) {
	return env[n.name], nil
}

type notNode struct {
	operand node
}

func (n *notNode) eval(env map[string]any) (any, error) {
	v, err := n.operand.eval(env)
	if err != nil {
		return nil, err
	}
	return !core.Truthy(v), nil
}

type andNode struct {
	left, right node
}

func (n *andNode) eval(env map[string]any) (any, error) {
	left, err := n.left.eval(env)
	if err != nil {
		return nil, err
	}
	if !core.Truthy(left) {
		return left, nil
	}
	return n.right.eval(env)
}

type orNode struct {
	left, right node
}

func (n *orNode) eval(env map[string]any) (any, error) {
	left, err := n.left.eval(env)
	if err != nil {
		return nil, err
	}
	if core.Truthy(left) {
		return left, nil
	}
	return n.right.eval(env)
}

type eqNode struct {
	left, right node
	negate      bool
}

func (n *eqNode) eval(env map[string]any) (any, error) {
	left, err := n.left.eval(env)
	if err != nil {
		return nil, err
	}
	right, err := n.right.eval(env)
	if err != nil {
		return nil, err
	}
	equal := core.Equal(left, right)
	if n.negate {
		return !equal, nil
	}
	return equal, nil
}

// inNode tests membership: list containment for lists, substring for
// strings. Anything else is not applicable.
type inNode struct {
	item, container node
}

func (n *inNode) eval(env map[string]any) (any, error) {
	item, err := n.item.eval(env)
	if err != nil {
		return nil, err
	}
	container, err := n.container.eval(env)
	if err != nil {
		return nil, err
	}
	switch c := container.(type) {
	case []any:
		for _, member := range c {
			if core.Equal(item, member) {
				return true, nil
			}
		}
		return false, nil
	case string:
		s, ok := item.(string)
		if !ok {
			return nil, errNotApplicable
		}
		return strings.Contains(c, s), nil
	}
	return nil, errNotApplicable
}

// definedNode implements "is defined": the name is bound and non-nil.
type definedNode struct {
	name   string
	negate bool
}

func (n *definedNode) eval(env map[string]any) (any, error) {
	v, bound := env[n.name]
	defined := bound && v != nil
	if n.negate {
		return !defined, nil
	}
	return defined, nil
}
