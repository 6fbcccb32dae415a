package templating

import (
	"html/template"
	"strings"
)

func makeFuncMap() template.FuncMap {
	return template.FuncMap{
		"add":   add,
		"sub":   sub,
		"inc":   inc,
		"dec":   dec,
		"list":  list,
		"lower": strings.ToLower,
		"upper": strings.ToUpper,
	}
}

// add returns a + b.
func add(a, b int) int {
	return a + b
}

// sub returns a - b.
func sub(a, b int) int {
	return a - b
}

// inc returns i + 1. Handy for 1-based numbering inside {{range $i, $x := ...}}.
func inc(i int) int {
	return i + 1
}

// dec returns i - 1.
func dec(i int) int {
	return i - 1
}

// list returns a slice containing all the arguments passed to it.
func list(args ...any) []any {
	return args
}
