// Package library implements the built-in Metapath function catalog: the
// fn:, math:, map: and array: functions of XPath 3.1 that Metapath
// supports, xs: constructor functions for every atomic type, and the
// Metaschema-specific mp: functions.
package library

import (
	"sync"

	"github.com/cockroachdb/apd/v3"

	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

// decimalContext is used for library arithmetic on xs:decimal values.
var decimalContext = apd.BaseContext.WithPrecision(34)

// Default returns the registry holding the complete built-in catalog.
// The registry is shared; use Clone before registering more functions.
var Default = sync.OnceValue(func() *functions.Registry {
	r := functions.NewRegistry()
	Register(r)
	return r
})

// Register adds the built-in catalog to r.
func Register(r *functions.Registry) {
	r.MustRegister(booleanFunctions()...)
	r.MustRegister(focusFunctions()...)
	r.MustRegister(numericFunctions()...)
	r.MustRegister(stringFunctions()...)
	r.MustRegister(regexFunctions()...)
	r.MustRegister(sequenceFunctions()...)
	r.MustRegister(nodeFunctions()...)
	r.MustRegister(documentFunctions()...)
	r.MustRegister(dateTimeFunctions()...)
	r.MustRegister(higherOrderFunctions()...)
	r.MustRegister(mathFunctions()...)
	r.MustRegister(mapFunctions()...)
	r.MustRegister(arrayFunctions()...)
	r.MustRegister(metaschemaFunctions()...)
	r.MustRegister(constructorFunctions()...)
}

const (
	pure     = functions.Deterministic
	focusDep = functions.Deterministic | functions.FocusDependent
	// Reads the dynamic context but not the focus. Never cached.
	dynamic = functions.ContextDependent
)

// define builds a definition in the fn: namespace.
func define(local string, result item.SequenceType, props functions.Property, impl functions.Impl, params ...functions.Param) *functions.Definition {
	return defineNS(types.NSMetapathFunctions, local, result, props, impl, params...)
}

func defineNS(ns, local string, result item.SequenceType, props functions.Property, impl functions.Impl, params ...functions.Param) *functions.Definition {
	return &functions.Definition{
		Name:       types.NewQName(ns, local),
		Params:     params,
		Result:     result,
		Properties: props,
		Impl:       impl,
	}
}

func param(name string, t item.SequenceType) functions.Param {
	return functions.Param{Name: name, Type: t}
}

// Common parameter and result types.
var (
	anyItems      = item.Many(item.AnyItem)
	oneItem       = item.One(item.AnyItem)
	atomics       = item.Many(item.AnyAtomicType)
	optAtomic     = item.Optional(item.AnyAtomicType)
	oneString     = item.One(item.StringType)
	optString     = item.Optional(item.StringType)
	oneBoolean    = item.One(item.BooleanType)
	oneInteger    = item.One(item.IntegerType)
	optInteger    = item.Optional(item.IntegerType)
	oneDecimal    = item.One(item.DecimalType)
	optNumeric    = item.Optional(item.DecimalType)
	optNode       = item.Optional(item.AnyNode)
	nodeSeq       = item.Many(item.AnyNode)
	oneFunction   = item.One(item.AnyFunction)
	oneMap        = item.One(item.AnyMap)
	oneArray      = item.One(item.AnyArray)
	optAnyURI     = item.Optional(item.AnyURIType)
	optDocument   = item.Optional(item.DocumentNode)
	stringSeq     = item.Many(item.StringType)
	arrays        = item.Many(item.AnyArray)
	maps          = item.Many(item.AnyMap)
	oneAnyAtomic  = item.One(item.AnyAtomicType)
	oneDateTime   = item.One(item.DateTimeType)
	oneDate       = item.One(item.DateType)
	oneDayTimeDur = item.One(item.DayTimeDurationType)
)
