package multivarka

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// DebugLevel controls what a chain prints while executing
type DebugLevel int

const (
	DebugOff DebugLevel = iota
	// DebugQuery prints the target and the documents sent to the driver
	DebugQuery
	// DebugTrace also prints duration and result size
	DebugTrace
)

// ParseDebugLevel accepts off, query and trace
func ParseDebugLevel(s string) (DebugLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "none":
		return DebugOff, nil
	case "query":
		return DebugQuery, nil
	case "trace":
		return DebugTrace, nil
	default:
		return DebugOff, fmt.Errorf("invalid debug level %q (expected off, query or trace)", s)
	}
}

func (l DebugLevel) String() string {
	switch l {
	case DebugQuery:
		return "query"
	case DebugTrace:
		return "trace"
	default:
		return "off"
	}
}

// DebugContext is where and how debug output is written
type DebugContext struct {
	Level       DebugLevel
	Writer      io.Writer
	ColorOutput bool
}

// DefaultDebugContext returns a disabled context writing to stdout
func DefaultDebugContext() *DebugContext {
	return &DebugContext{
		Level:       DebugOff,
		Writer:      os.Stdout,
		ColorOutput: true,
	}
}

func (d *DebugContext) enabled(level DebugLevel) bool {
	return d != nil && d.Writer != nil && d.Level >= level
}

func (d *DebugContext) label(name string, attr color.Attribute) string {
	tag := "[" + name + "]"
	if !d.ColorOutput {
		return tag
	}
	c := color.New(attr, color.Bold)
	c.EnableColor()
	return c.Sprint(tag)
}

// query prints the operation before it runs
func (d *DebugContext) query(op string, target Target, docs ...namedDoc) {
	if !d.enabled(DebugQuery) {
		return
	}
	fmt.Fprintf(d.Writer, "%s %s %s\n", d.label("COLLECTION", color.FgCyan), strings.ToUpper(op), target.Collection)
	for _, nd := range docs {
		fmt.Fprintf(d.Writer, "%s %s\n", d.label(nd.name, color.FgGreen), renderDoc(nd.doc))
	}
}

// trace prints the outcome after the driver returned
func (d *DebugContext) trace(op string, target Target, elapsed time.Duration, count int64, err error) {
	if !d.enabled(DebugTrace) {
		return
	}
	if err != nil {
		fmt.Fprintf(d.Writer, "%s %s on %s: %v, error: %v\n\n", d.label("TRACE", color.FgRed), strings.ToUpper(op), target.Collection, elapsed, err)
		return
	}
	fmt.Fprintf(d.Writer, "%s %s on %s: %v, %d docs\n\n", d.label("TRACE", color.FgYellow), strings.ToUpper(op), target.Collection, elapsed, count)
}

type namedDoc struct {
	name string
	doc  interface{}
}

func renderDoc(doc interface{}) string {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Sprintf("%v", doc)
	}
	return string(data)
}
