package types

// Well-known namespaces.
const (
	NSMetapath          = "http://csrc.nist.gov/ns/metaschema/metapath"
	NSMetapathFunctions = "http://csrc.nist.gov/ns/metaschema/metapath-functions"
	NSMath              = NSMetapathFunctions + "/math"
	NSArray             = NSMetapathFunctions + "/array"
	NSMap               = NSMetapathFunctions + "/map"
	NSXMLSchema         = "http://www.w3.org/2001/XMLSchema"
	NSXML               = "http://www.w3.org/XML/1998/namespace"
)

// Well-known prefixes.
const (
	PrefixMetapath  = "mp"
	PrefixXMLSchema = "xs"
	PrefixFunctions = "fn"
	PrefixMath      = "math"
	PrefixArray     = "array"
	PrefixMap       = "map"
)

// WellKnownNamespaces maps the predeclared prefixes to their URIs.
var WellKnownNamespaces = map[string]string{
	PrefixMetapath:  NSMetapath,
	PrefixXMLSchema: NSXMLSchema,
	PrefixFunctions: NSMetapathFunctions,
	PrefixMath:      NSMath,
	PrefixArray:     NSArray,
	PrefixMap:       NSMap,
}

// IsReservedPrefix reports whether prefix may not be rebound.
func IsReservedPrefix(prefix string) bool {
	return prefix == "xml" || prefix == "xmlns"
}
