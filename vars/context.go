// Package vars implements a process's variable/data context: the
// environment guard expressions are evaluated against and the scratch
// space a service task reads its input from and writes its output to.
// Backed by github.com/tidwall/gjson and github.com/tidwall/sjson.
package vars

import (
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Context is a concurrency-safe JSON document of process variables.
type Context struct {
	mu  sync.RWMutex
	doc string
}

// NewContext creates a Context, optionally seeded with an initial JSON
// document (an empty string is treated as "{}").
func NewContext(initialJSON string) *Context {
	if initialJSON == "" {
		initialJSON = "{}"
	}
	return &Context{doc: initialJSON}
}

// Get returns the value at path, following gjson path syntax.
func (c *Context) Get(path string) gjson.Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return gjson.Get(c.doc, path)
}

// Set stores value at path, following sjson path syntax. The zero value
// for value is written as JSON null.
func (c *Context) Set(path string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	updated, err := sjson.Set(c.doc, path, value)
	if err != nil {
		return err
	}
	c.doc = updated
	return nil
}

// Snapshot returns the current document as a raw JSON string, safe to
// persist or hand to an expression evaluator's environment builder.
func (c *Context) Snapshot() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.doc
}

// Env flattens the top-level document fields into a map[string]any
// suitable as an expression evaluation environment.
func (c *Context) Env() map[string]any {
	c.mu.RLock()
	doc := c.doc
	c.mu.RUnlock()

	env := make(map[string]any)
	gjson.Parse(doc).ForEach(func(key, value gjson.Result) bool {
		env[key.String()] = value.Value()
		return true
	})
	return env
}
