package library

import (
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

func stringFunctions() []*functions.Definition {
	str := param("arg", optString)
	concat := define("concat", oneString, pure, fnConcat, param("arg1", optAtomic), param("arg2", optAtomic))
	concat.Variadic = true
	return []*functions.Definition{
		define("string", oneString, focusDep, fnString),
		define("string", oneString, pure, fnString, param("arg", item.Optional(item.AnyItem))),
		concat,
		define("string-join", oneString, pure, fnStringJoin, param("arg", atomics)),
		define("string-join", oneString, pure, fnStringJoin, param("arg", atomics), param("separator", oneString)),
		define("substring", oneString, pure, fnSubstring, str, param("start", oneDecimal)),
		define("substring", oneString, pure, fnSubstring, str, param("start", oneDecimal), param("length", oneDecimal)),
		define("string-length", oneInteger, focusDep, fnStringLength),
		define("string-length", oneInteger, pure, fnStringLength, str),
		define("normalize-space", oneString, focusDep, fnNormalizeSpace),
		define("normalize-space", oneString, pure, fnNormalizeSpace, str),
		define("upper-case", oneString, pure, mapString(func(s string) string { return cases.Upper(language.Und).String(s) }), str),
		define("lower-case", oneString, pure, mapString(func(s string) string { return cases.Lower(language.Und).String(s) }), str),
		define("normalize-unicode", oneString, pure, fnNormalizeUnicode, str),
		define("normalize-unicode", oneString, pure, fnNormalizeUnicode, str, param("form", oneString)),
		define("translate", oneString, pure, fnTranslate, str, param("map", oneString), param("trans", oneString)),
		define("compare", optInteger, pure, fnCompare, param("comparand1", optString), param("comparand2", optString)),
		define("contains", oneBoolean, pure, stringPredicate(strings.Contains), str, param("substring", optString)),
		define("starts-with", oneBoolean, pure, stringPredicate(strings.HasPrefix), str, param("substring", optString)),
		define("ends-with", oneBoolean, pure, stringPredicate(strings.HasSuffix), str, param("substring", optString)),
		define("substring-before", oneString, pure, fnSubstringBefore, str, param("substring", optString)),
		define("substring-after", oneString, pure, fnSubstringAfter, str, param("substring", optString)),
	}
}

// stringOrFocus returns the string argument, or the string value of the
// context item for the zero-argument forms.
func stringOrFocus(args []item.Sequence, focus item.Item) (string, error) {
	if len(args) > 0 {
		return stringArg(args[0]), nil
	}
	it, err := focusItem(focus)
	if err != nil {
		return "", err
	}
	return item.StringValue(it)
}

func fnString(_ context.Context, _ functions.Context, args []item.Sequence, focus item.Item) (item.Sequence, error) {
	it, err := itemArgOrFocus(args, focus)
	if err != nil || it == nil {
		return stringResult(""), err
	}
	s, err := item.StringValue(it)
	if err != nil {
		return nil, err
	}
	return stringResult(s), nil
}

func fnConcat(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	var b strings.Builder
	for _, arg := range args {
		b.WriteString(stringArg(arg))
	}
	return stringResult(b.String()), nil
}

func fnStringJoin(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	sep := ""
	if len(args) > 1 {
		sep = stringArg(args[1])
	}
	parts := make([]string, 0, args[0].Len())
	for it := range args[0].All() {
		parts = append(parts, it.(item.AtomicItem).StringValue())
	}
	return stringResult(strings.Join(parts, sep)), nil
}

// fnSubstring selects the characters at positions p with
// round(start) <= p < round(start) + round(length), counting from one.
func fnSubstring(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	runes := []rune(stringArg(args[0]))
	start, err := roundedIntArg(args[1])
	if err != nil {
		return nil, err
	}
	end := len(runes) + 1
	if len(args) > 2 {
		length, err := roundedIntArg(args[2])
		if err != nil {
			return nil, err
		}
		end = min(end, start+length)
	}
	from := max(start, 1)
	if from >= end {
		return stringResult(""), nil
	}
	return stringResult(string(runes[from-1 : end-1])), nil
}

func fnStringLength(_ context.Context, _ functions.Context, args []item.Sequence, focus item.Item) (item.Sequence, error) {
	s, err := stringOrFocus(args, focus)
	if err != nil {
		return nil, err
	}
	return intResult(utf8.RuneCountInString(s)), nil
}

func fnNormalizeSpace(_ context.Context, _ functions.Context, args []item.Sequence, focus item.Item) (item.Sequence, error) {
	s, err := stringOrFocus(args, focus)
	if err != nil {
		return nil, err
	}
	return stringResult(strings.Join(strings.FieldsFunc(s, isXMLSpace), " ")), nil
}

func isXMLSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// mapString applies f to a string argument. Casers are stateful, so
// callers build a fresh one per call.
func mapString(f func(string) string) functions.Impl {
	return func(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
		return stringResult(f(stringArg(args[0]))), nil
	}
}

func fnNormalizeUnicode(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	s := stringArg(args[0])
	form := "NFC"
	if len(args) > 1 {
		form = strings.ToUpper(strings.TrimSpace(stringArg(args[1])))
	}
	var f norm.Form
	switch form {
	case "":
		return stringResult(s), nil
	case "NFC":
		f = norm.NFC
	case "NFD":
		f = norm.NFD
	case "NFKC":
		f = norm.NFKC
	case "NFKD":
		f = norm.NFKD
	default:
		return nil, types.Errorf(types.ErrUnsupportedNormalize, "unsupported normalization form '%s'", form)
	}
	return stringResult(f.String(s)), nil
}

// fnTranslate replaces each character of arg found in map by the character
// at the same position in trans, dropping it when trans is shorter.
func fnTranslate(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	from := []rune(stringArg(args[1]))
	to := []rune(stringArg(args[2]))
	mapping := make(map[rune]rune, len(from))
	for i, r := range from {
		if _, seen := mapping[r]; seen {
			continue
		}
		if i < len(to) {
			mapping[r] = to[i]
		} else {
			mapping[r] = -1
		}
	}
	out := strings.Map(func(r rune) rune {
		if m, ok := mapping[r]; ok {
			return m
		}
		return r
	}, stringArg(args[0]))
	return stringResult(out), nil
}

func fnCompare(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	a, b := optionalAtomic(args[0]), optionalAtomic(args[1])
	if a == nil || b == nil {
		return item.Empty(), nil
	}
	return intResult(strings.Compare(a.StringValue(), b.StringValue())), nil
}

func stringPredicate(test func(s, sub string) bool) functions.Impl {
	return func(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
		return boolResult(test(stringArg(args[0]), stringArg(args[1]))), nil
	}
}

func fnSubstringBefore(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	before, _, found := strings.Cut(stringArg(args[0]), stringArg(args[1]))
	if !found {
		return stringResult(""), nil
	}
	return stringResult(before), nil
}

func fnSubstringAfter(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	_, after, found := strings.Cut(stringArg(args[0]), stringArg(args[1]))
	if !found {
		return stringResult(""), nil
	}
	return stringResult(after), nil
}
