// Package templates serves the JSON request bodies sent to the Nessie API.
// Bodies live under payloads/ and are rendered with text/template.
package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
	"text/template"
)

//go:embed payloads/*
var payloadsFS embed.FS

// Payload names
const (
	DemoCustomer = "demo_customer.json"
	DemoAccount  = "demo_account.json"
	DemoMerchant = "demo_merchant.json"
	Purchase     = "purchase.json"
)

var funcs = template.FuncMap{
	"json": func(v interface{}) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
}

// Loader parses payload templates from the embedded filesystem
type Loader struct {
	cache map[string]*template.Template
	mu    sync.RWMutex
}

// NewLoader creates a new payload loader
func NewLoader() *Loader {
	return &Loader{
		cache: make(map[string]*template.Template),
	}
}

// Load returns the parsed template for a payload
func (l *Loader) Load(name string) (*template.Template, error) {
	l.mu.RLock()
	if tmpl, ok := l.cache[name]; ok {
		l.mu.RUnlock()
		return tmpl, nil
	}
	l.mu.RUnlock()

	content, err := payloadsFS.ReadFile(path.Join("payloads", name))
	if err != nil {
		return nil, fmt.Errorf("failed to load payload %s: %w", name, err)
	}

	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse payload %s: %w", name, err)
	}

	l.mu.Lock()
	l.cache[name] = tmpl
	l.mu.Unlock()

	return tmpl, nil
}

// Render executes a payload template and checks the output is valid JSON
func (l *Loader) Render(name string, data interface{}) (json.RawMessage, error) {
	tmpl, err := l.Load(name)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render payload %s: %w", name, err)
	}
	if !json.Valid(buf.Bytes()) {
		return nil, fmt.Errorf("payload %s rendered invalid JSON", name)
	}
	return json.RawMessage(buf.Bytes()), nil
}

// List returns all available payload names
func (l *Loader) List() ([]string, error) {
	var names []string

	err := fs.WalkDir(payloadsFS, "payloads", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			names = append(names, strings.TrimPrefix(p, "payloads/"))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list payloads: %w", err)
	}

	return names, nil
}

var defaultLoader = NewLoader()

// Render is a convenience function using the default loader
func Render(name string, data interface{}) (json.RawMessage, error) {
	return defaultLoader.Render(name, data)
}
