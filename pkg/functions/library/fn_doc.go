package library

import (
	"context"
	"net/url"

	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

func documentFunctions() []*functions.Definition {
	uri := param("uri", optString)
	return []*functions.Definition{
		define("doc", optDocument, dynamic, fnDoc, uri),
		define("doc-available", oneBoolean, dynamic, fnDocAvailable, uri),
		define("document-uri", optAnyURI, focusDep, fnDocumentURI),
		define("document-uri", optAnyURI, pure, fnDocumentURI, param("arg", optNode)),
		define("base-uri", optAnyURI, focusDep, fnBaseURI),
		define("base-uri", optAnyURI, pure, fnBaseURI, param("arg", optNode)),
		define("static-base-uri", optAnyURI, dynamic, fnStaticBaseURI),
		define("resolve-uri", optAnyURI, dynamic, fnResolveURI, param("relative", optString)),
		define("resolve-uri", optAnyURI, pure, fnResolveURI, param("relative", optString), param("base", oneString)),
	}
}

func fnDoc(ctx context.Context, fc functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	if args[0].IsEmpty() {
		return item.Empty(), nil
	}
	doc, err := fc.LoadDocument(ctx, stringArg(args[0]))
	if err != nil {
		return nil, err
	}
	return item.Of(doc), nil
}

func fnDocAvailable(ctx context.Context, fc functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	if args[0].IsEmpty() {
		return boolResult(false), nil
	}
	if _, err := fc.LoadDocument(ctx, stringArg(args[0])); err != nil {
		fc.Logger().DebugContext(ctx, "document not available", "uri", stringArg(args[0]), "error", err)
		return boolResult(false), nil
	}
	return boolResult(true), nil
}

func optionalURI(s string) item.Sequence {
	if s == "" {
		return item.Empty()
	}
	return item.Of(item.NewAnyURI(s))
}

func fnDocumentURI(_ context.Context, _ functions.Context, args []item.Sequence, focus item.Item) (item.Sequence, error) {
	n, err := nodeArgOrFocus(args, focus)
	if err != nil || n == nil || n.Kind() != item.KindDocument {
		return item.Empty(), err
	}
	return optionalURI(n.DocumentURI()), nil
}

func fnBaseURI(_ context.Context, _ functions.Context, args []item.Sequence, focus item.Item) (item.Sequence, error) {
	n, err := nodeArgOrFocus(args, focus)
	if err != nil || n == nil {
		return item.Empty(), err
	}
	return optionalURI(n.BaseURI()), nil
}

func fnStaticBaseURI(_ context.Context, fc functions.Context, _ []item.Sequence, _ item.Item) (item.Sequence, error) {
	if base := fc.StaticBaseURI(); base != nil {
		return item.Of(item.NewAnyURI(base.String())), nil
	}
	return item.Empty(), nil
}

func fnResolveURI(_ context.Context, fc functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	if args[0].IsEmpty() {
		return item.Empty(), nil
	}
	raw := stringArg(args[0])
	rel, err := url.Parse(raw)
	if err != nil {
		return nil, types.Errorf(types.ErrInvalidURIArgument, "invalid URI '%s'", raw).WithCause(err)
	}
	if rel.IsAbs() {
		return item.Of(item.NewAnyURI(rel.String())), nil
	}
	var base *url.URL
	if len(args) > 1 {
		if base, err = url.Parse(stringArg(args[1])); err != nil {
			return nil, types.Errorf(types.ErrInvalidURIArgument, "invalid base URI '%s'", stringArg(args[1])).WithCause(err)
		}
	} else {
		base = fc.StaticBaseURI()
	}
	if base == nil || !base.IsAbs() {
		return nil, types.Errorf(types.ErrNoBaseURI, "cannot resolve '%s' without an absolute base URI", raw)
	}
	return item.Of(item.NewAnyURI(base.ResolveReference(rel).String())), nil
}
