package interp

// slot is one declared local: a parameter, or a var/let/const declaration.
type slot struct {
	value   any
	bound   bool // false between declaration-without-initializer and first write
	isConst bool
}

// env is one lexical block: a function call's top frame, a nested `{ }`,
// a loop body, or a captured lambda closure. var declarations hoist to the
// nearest funcBoundary env; let/const declare in the current env.
type env struct {
	parent       *env
	vars         map[string]*slot
	funcBoundary bool
}

func newEnv(parent *env, funcBoundary bool) *env {
	return &env{parent: parent, vars: map[string]*slot{}, funcBoundary: funcBoundary}
}

func (e *env) funcEnv() *env {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.funcBoundary {
			return cur
		}
	}
	return e
}

// lookup walks the env chain for name, returning the slot and the env that
// holds it.
func (e *env) lookup(name string) (*slot, *env) {
	for cur := e; cur != nil; cur = cur.parent {
		if s, ok := cur.vars[name]; ok {
			return s, cur
		}
	}
	return nil, nil
}

// declareLocal declares name in target with an initial value, reporting
// whether name was already declared directly in target (the caller raises
// the lexical-redeclaration error with proper origin when this is true and
// lexical scoping is active).
func declareLocal(target *env, name string, value any, isConst, bound bool) (redeclared bool) {
	_, redeclared = target.vars[name]
	target.vars[name] = &slot{value: value, bound: bound, isConst: isConst}
	return redeclared
}
