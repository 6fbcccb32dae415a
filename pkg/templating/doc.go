/*
Package templating compiles a directory of Go html/template files into a single
named registry and renders them by name.

Templates are discovered recursively under a configured directory. Every regular
file ending in the configured extension is parsed once, at construction time, and
registered under its path relative to that directory with the extension removed,
so "index2.html" becomes "index2" and "cats/card.html" becomes "cats/card".
Templates may include each other with {{template "name" .}}.

A TemplateManager is never mutated after NewTemplateManager returns, which makes
it safe to share between any number of concurrent request handlers without
locking. Reloading templates means building a new manager.
*/
package templating
