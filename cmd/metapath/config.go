package main

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sandrolain/gometapath/pkg/evaluator"
)

// config is the --config file.
//
//	namespaces:
//	  oscal: http://csrc.nist.gov/ns/oscal/1.0
//	default-model-namespace: http://csrc.nist.gov/ns/oscal/1.0
//	base-uri: https://example.com/catalogs/
type config struct {
	Namespaces               map[string]string `yaml:"namespaces"`
	DefaultModelNamespace    string            `yaml:"default-model-namespace"`
	DefaultFunctionNamespace string            `yaml:"default-function-namespace"`
	BaseURI                  string            `yaml:"base-uri"`
	WildcardFallback         *bool             `yaml:"wildcard-fallback"`
}

func loadConfig(path string) (*config, error) {
	cfg := &config{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// staticContext builds the static context from the configuration, with
// namespace bindings given as prefix=uri overriding the file.
func (c *config) staticContext(bindings []string, baseURI string) (*evaluator.StaticContext, error) {
	b := evaluator.NewStaticContextBuilder()
	for prefix, uri := range c.Namespaces {
		b.Namespace(prefix, uri)
	}
	for _, binding := range bindings {
		prefix, uri, ok := strings.Cut(binding, "=")
		if !ok || prefix == "" {
			return nil, fmt.Errorf("invalid namespace binding %q, expected prefix=uri", binding)
		}
		b.Namespace(prefix, uri)
	}
	if c.DefaultModelNamespace != "" {
		b.DefaultModelNamespace(c.DefaultModelNamespace)
	}
	if c.DefaultFunctionNamespace != "" {
		b.DefaultFunctionNamespace(c.DefaultFunctionNamespace)
	}
	if c.WildcardFallback != nil {
		b.UseWildcardWhenNamespaceNotDefaulted(*c.WildcardFallback)
	}
	if baseURI == "" {
		baseURI = c.BaseURI
	}
	if baseURI != "" {
		b.BaseURI(baseURI)
	}
	return b.Build()
}
