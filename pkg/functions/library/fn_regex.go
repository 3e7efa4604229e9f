package library

import (
	"context"
	"regexp"
	"strings"

	"github.com/sandrolain/gometapath/pkg/cache"
	"github.com/sandrolain/gometapath/pkg/functions"
	"github.com/sandrolain/gometapath/pkg/item"
	"github.com/sandrolain/gometapath/pkg/types"
)

type regexKey struct {
	pattern, flags string
}

// Compiled patterns are shared by all evaluations.
var regexCache = cache.New[regexKey, *regexp.Regexp](256)

func regexFunctions() []*functions.Definition {
	input := param("input", optString)
	pattern := param("pattern", oneString)
	flags := param("flags", oneString)
	return []*functions.Definition{
		define("matches", oneBoolean, pure, fnMatches, input, pattern),
		define("matches", oneBoolean, pure, fnMatches, input, pattern, flags),
		define("replace", oneString, pure, fnReplace, input, pattern, param("replacement", oneString)),
		define("replace", oneString, pure, fnReplace, input, pattern, param("replacement", oneString), flags),
		define("tokenize", stringSeq, pure, fnTokenize, input),
		define("tokenize", stringSeq, pure, fnTokenize, input, pattern),
		define("tokenize", stringSeq, pure, fnTokenize, input, pattern, flags),
	}
}

// compileRegex translates an XPath pattern and flag string into a Go
// regular expression.
func compileRegex(pattern, flags string) (*regexp.Regexp, error) {
	return regexCache.GetOrCompute(regexKey{pattern, flags}, func() (*regexp.Regexp, error) {
		var prefix string
		literal := false
		for _, f := range flags {
			switch f {
			case 's', 'm', 'i':
				if !strings.ContainsRune(prefix, f) {
					prefix += string(f)
				}
			case 'x':
				pattern = stripRegexSpace(pattern)
			case 'q':
				literal = true
			default:
				return nil, types.Errorf(types.ErrInvalidRegexFlags, "invalid regular expression flag '%c'", f)
			}
		}
		if literal {
			pattern = regexp.QuoteMeta(pattern)
		}
		if prefix != "" {
			pattern = "(?" + prefix + ")" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, types.Errorf(types.ErrInvalidRegex, "invalid regular expression '%s'", pattern).WithCause(err)
		}
		return re, nil
	})
}

// stripRegexSpace removes whitespace outside character classes.
func stripRegexSpace(pattern string) string {
	var b strings.Builder
	inClass := false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\' && i+1 < len(pattern):
			b.WriteByte(c)
			i++
			b.WriteByte(pattern[i])
			continue
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case !inClass && isXMLSpace(rune(c)):
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func regexArgs(args []item.Sequence, flagsAt int) (string, *regexp.Regexp, error) {
	var flags string
	if len(args) > flagsAt {
		flags = stringArg(args[flagsAt])
	}
	re, err := compileRegex(stringArg(args[1]), flags)
	return stringArg(args[0]), re, err
}

func fnMatches(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	input, re, err := regexArgs(args, 2)
	if err != nil {
		return nil, err
	}
	return boolResult(re.MatchString(input)), nil
}

func fnReplace(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	input, re, err := regexArgs(args, 3)
	if err != nil {
		return nil, err
	}
	if re.MatchString("") {
		return nil, types.Errorf(types.ErrRegexMatchesEmpty, "pattern '%s' matches the empty string", stringArg(args[1]))
	}
	replacement := stringArg(args[2])
	if len(args) > 3 && strings.ContainsRune(stringArg(args[3]), 'q') {
		return stringResult(re.ReplaceAllLiteralString(input, replacement)), nil
	}
	template, err := replacementTemplate(replacement)
	if err != nil {
		return nil, err
	}
	return stringResult(re.ReplaceAllString(input, template)), nil
}

// replacementTemplate rewrites an XPath replacement string, where $n refers
// to a group and \$ or \\ escape, into Go's template syntax.
func replacementTemplate(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			if i+1 >= len(s) || (s[i+1] != '$' && s[i+1] != '\\') {
				return "", types.Errorf(types.ErrInvalidRegex, "invalid replacement string '%s'", s)
			}
			i++
			if s[i] == '$' {
				b.WriteString("$$")
			} else {
				b.WriteByte('\\')
			}
		case '$':
			j := i + 1
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			if j == i+1 {
				return "", types.Errorf(types.ErrInvalidRegex, "invalid replacement string '%s'", s)
			}
			b.WriteString("${" + s[i+1:j] + "}")
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

func fnTokenize(_ context.Context, _ functions.Context, args []item.Sequence, _ item.Item) (item.Sequence, error) {
	if len(args) == 1 {
		fields := strings.FieldsFunc(stringArg(args[0]), isXMLSpace)
		return stringItems(fields), nil
	}
	input, re, err := regexArgs(args, 2)
	if err != nil {
		return nil, err
	}
	if input == "" {
		return item.Empty(), nil
	}
	if re.MatchString("") {
		return nil, types.Errorf(types.ErrRegexMatchesEmpty, "pattern '%s' matches the empty string", stringArg(args[1]))
	}
	return stringItems(re.Split(input, -1)), nil
}

func stringItems(values []string) item.Sequence {
	out := make([]item.Item, len(values))
	for i, v := range values {
		out[i] = item.NewString(v)
	}
	return item.FromSlice(out)
}
