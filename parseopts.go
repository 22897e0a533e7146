package mpcalc

import "strings"

// ParseOption is an option for parsing.
type ParseOption interface {
	parseOption(parsectx) parsectx
}

type (
	funcopt struct {
		name string
		fn   Func
	}
	funcsopt  map[string]Func
	prefixopt string
)

// parsectx holds general data for parsing. It is also a ParseOption.
type parsectx struct {
	// names is the set of local names that have been seen this parse.
	names map[string]bool
	// funcs is the namespace, keyed by unqualified name.
	funcs map[string]Func
	// prefix is the namespace prefix. If it is empty, every name is looked up
	// in funcs before being treated as local.
	prefix string
	// nodefaults indicates that parse options have set all default functions.
	nodefaults bool
}

func (p *parsectx) checkdefaults() {
	if p.nodefaults {
		return
	}
	n := 0
	for k := range p.funcs {
		if _, ok := globalfuncs[k]; ok {
			n++
		}
	}
	if n == len(globalfuncs) {
		p.nodefaults = true
	}
}

// resolve looks up an identifier. If the identifier names a namespace entry,
// the result is its unqualified name and Func. If it is qualified but names
// nothing in the namespace, fn is nil and ok is false. Otherwise it is local.
func (p *parsectx) resolve(ident string) (name string, fn Func, ok bool) {
	if p.prefix == "" {
		return ident, p.funcs[ident], true
	}
	name = strings.TrimPrefix(ident, p.prefix+".")
	if len(name) == len(ident) {
		// Local name.
		return ident, nil, true
	}
	fn = p.funcs[name]
	return name, fn, fn != nil
}

// Prefix sets the namespace prefix. Names written as prefix.name are looked up
// in the namespace, and all other names are local variables. With the default
// empty prefix, names are looked up in the namespace first, then as locals.
func Prefix(prefix string) ParseOption {
	return prefixopt(prefix)
}

func (o prefixopt) parseOption(p parsectx) parsectx {
	p.prefix = string(o)
	return p
}

// ParseFunc sets a function for parsing. To disable parsing a function, pass
// nil for fn.
func ParseFunc(name string, fn Func) ParseOption {
	return &funcopt{name, fn}
}

func (o *funcopt) parseOption(p parsectx) parsectx {
	if p.funcs == nil {
		p.funcs = map[string]Func{}
	}
	p.funcs[o.name] = o.fn
	return p
}

// ParseFuncs sets a group of functions for parsing. To disable parsing any
// function, set it to nil.
func ParseFuncs(fns map[string]Func) ParseOption {
	return funcsopt(fns)
}

func (o funcsopt) parseOption(p parsectx) parsectx {
	if p.funcs == nil {
		// Always make a copy.
		p.funcs = make(map[string]Func, len(o))
	}
	for k, v := range o {
		p.funcs[k] = v
	}
	p.checkdefaults()
	return p
}

// DisableDefaultFuncs disables all default functions during parsing. Their
// names will be parsed as variables instead.
func DisableDefaultFuncs() ParseOption {
	m := make(funcsopt, len(globalfuncs))
	for k := range globalfuncs {
		m[k] = nil
	}
	return m
}

// ParsingPreset creates a parsing preset that may be more efficient when using
// the same non-default parsing options for many calls to Parse. A preset
// panics when it would change any option from the default, but it is safe to
// apply other options after a preset.
func ParsingPreset(opts ...ParseOption) ParseOption {
	var p parsectx
	for _, opt := range opts {
		p = opt.parseOption(p)
	}
	if p.funcs != nil {
		// If we've set any functions, add unset default ones now.
		for k, v := range globalfuncs {
			if _, ok := p.funcs[k]; !ok {
				p.funcs[k] = v
			}
		}
		p.nodefaults = true
	}
	return &p
}

func (o *parsectx) parseOption(p parsectx) parsectx {
	if p.funcs != nil || p.prefix != "" {
		panic("mpcalc: preset applied to non-default parse config")
	}
	p.funcs = o.funcs
	p.prefix = o.prefix
	p.nodefaults = o.nodefaults
	return p
}
