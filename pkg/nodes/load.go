package nodes

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/beevik/etree"
	"gopkg.in/yaml.v3"

	"github.com/sandrolain/gometapath/pkg/types"
)

// Format is a serialization format.
type Format int

// Supported formats.
const (
	FormatUnknown Format = iota
	FormatXML
	FormatJSON
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatXML:
		return "xml"
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	}
	return "unknown"
}

var (
	// ErrNoRoot is returned for content without a single root object or element.
	ErrNoRoot = errors.New("nodes: document has no single root")
	// ErrUnknownFormat is returned when the format cannot be determined.
	ErrUnknownFormat = errors.New("nodes: unknown document format")
)

// FormatFromPath infers the format from a file extension.
func FormatFromPath(p string) Format {
	switch strings.ToLower(path.Ext(p)) {
	case ".xml":
		return FormatXML
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatUnknown
}

// Parse reads a document in the given format. FormatUnknown sniffs the
// content: a leading '<' means XML, anything else is read as YAML, which
// also covers JSON.
func Parse(r io.Reader, format Format, uri string) (*Node, error) {
	if format == FormatUnknown {
		br := bufio.NewReader(r)
		format = sniff(br)
		r = br
	}
	switch format {
	case FormatXML:
		return ParseXML(r, uri)
	case FormatJSON, FormatYAML:
		return ParseYAML(r, uri)
	}
	return nil, ErrUnknownFormat
}

func sniff(br *bufio.Reader) Format {
	for i := 1; ; i++ {
		buf, err := br.Peek(i)
		if err != nil || len(buf) == 0 {
			return FormatYAML
		}
		switch c := buf[len(buf)-1]; c {
		case ' ', '\t', '\r', '\n', 0xEF, 0xBB, 0xBF:
			continue
		case '<':
			return FormatXML
		case '{', '[':
			return FormatJSON
		}
		return FormatYAML
	}
}

// ParseXML reads an XML document.
func ParseXML(r io.Reader, uri string) (*Node, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("parsing XML %s: %w", uri, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, ErrNoRoot
	}
	d := NewDocument(uri)
	addElement(d, root, true)
	return d, nil
}

func addElement(parent *Node, el *etree.Element, isRoot bool) {
	name := types.NewQName(el.NamespaceURI(), el.Tag)
	kids := el.ChildElements()

	var n *Node
	if len(kids) == 0 && !isRoot {
		n = parent.AddField(name, el.Text())
	} else {
		n = parent.AddAssembly(name)
	}
	for i := range el.Attr {
		a := &el.Attr[i]
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		ns := ""
		if a.Space != "" {
			ns = a.NamespaceURI()
		}
		n.AddFlag(types.NewQName(ns, a.Key), a.Value)
	}
	for _, k := range kids {
		addElement(n, k, false)
	}
}

// ParseYAML reads a YAML or JSON document. The top level must be an object
// with exactly one property, the root assembly.
func ParseYAML(r io.Reader, uri string) (*Node, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", uri, err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, ErrNoRoot
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode || len(top.Content) != 2 {
		return nil, ErrNoRoot
	}
	d := NewDocument(uri)
	if top.Content[1].Kind != yaml.MappingNode {
		return nil, ErrNoRoot
	}
	addYAMLValue(d, top.Content[0].Value, top.Content[1])
	return d, nil
}

func addYAMLValue(parent *Node, key string, v *yaml.Node) {
	name := types.NewQName("", key)
	switch v.Kind {
	case yaml.MappingNode:
		n := parent.AddAssembly(name)
		for i := 0; i+1 < len(v.Content); i += 2 {
			addYAMLValue(n, v.Content[i].Value, v.Content[i+1])
		}
	case yaml.SequenceNode:
		for _, member := range v.Content {
			addYAMLValue(parent, key, member)
		}
	case yaml.ScalarNode:
		if v.Tag == "!!null" {
			return
		}
		parent.AddField(name, v.Value)
	case yaml.AliasNode:
		if v.Alias != nil {
			addYAMLValue(parent, key, v.Alias)
		}
	}
}
