package templating

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// TemplateManager owns the compiled template set. It is built once by
// NewTemplateManager and only read afterwards, so all methods are safe for
// concurrent use without locking.
type TemplateManager struct {
	logger        *slog.Logger
	config        TemplateConfig
	templates     *template.Template
	templateNames []string
}

// NewTemplateManager scans config.Dir for files ending in config.Extension and
// compiles each of them into the registry. Any unreadable directory, unreadable
// file or parse failure is returned as an error; there is no partially loaded
// state.
func NewTemplateManager(logger *slog.Logger, config *TemplateConfig) (*TemplateManager, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Extension == "" || !strings.HasPrefix(config.Extension, ".") {
		return nil, fmt.Errorf("invalid template extension %q", config.Extension)
	}

	tm := &TemplateManager{
		logger: logger,
		config: *config,
	}
	if err := tm.load(); err != nil {
		return nil, err
	}

	logger.Info("Template manager initialized", "dir", config.Dir, "count", len(tm.templateNames))
	return tm, nil
}

func (tm *TemplateManager) load() error {
	info, err := os.Stat(tm.config.Dir)
	if err != nil {
		return fmt.Errorf("failed to open template directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("template path %s is not a directory", tm.config.Dir)
	}

	tm.logger.Info("Loading template files...", "dir", tm.config.Dir, "extension", tm.config.Extension)

	root := template.New("").Funcs(makeFuncMap())
	var names []string

	err = filepath.WalkDir(tm.config.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), tm.config.Extension) {
			return nil
		}
		if !d.Type().IsRegular() {
			// Symlinks are followed to their target; anything else is skipped.
			if d.Type()&fs.ModeSymlink == 0 {
				tm.logger.Warn("Skipping non-regular template file", "path", path, "mode", d.Type().String())
				return nil
			}
			target, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("failed to resolve template symlink %s: %w", path, err)
			}
			if !target.Mode().IsRegular() {
				tm.logger.Warn("Skipping template symlink that does not point to a file", "path", path)
				return nil
			}
		}

		name, err := templateName(tm.config.Dir, path, tm.config.Extension)
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", path, err)
		}
		if _, err = root.New(name).Parse(string(content)); err != nil {
			return fmt.Errorf("failed to parse template %s: %w", path, err)
		}
		tm.logger.Debug("Registered template", "name", name, "path", path)
		names = append(names, name)
		return nil
	})
	if err != nil {
		tm.logger.Error("failed to load template files", "error", err)
		return err
	}

	if len(names) == 0 {
		tm.logger.Warn("No template files found", "dir", tm.config.Dir, "extension", tm.config.Extension)
	}

	sort.Strings(names)
	tm.templates = root
	tm.templateNames = names
	tm.logger.Info("Loaded template files", "count", len(names))
	return nil
}

// templateName derives the registry key for a file: its path relative to dir,
// slash separated, without the extension.
func templateName(dir, path, ext string) (string, error) {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve template name for %s: %w", path, err)
	}
	return filepath.ToSlash(strings.TrimSuffix(rel, ext)), nil
}

// Execute renders the named template straight into w. Output may be partially
// written when execution fails; use Render when that matters.
func (tm *TemplateManager) Execute(w io.Writer, name string, data any) error {
	t := tm.lookup(name)
	if t == nil {
		return &RenderError{Name: name, Status: http.StatusInternalServerError, Err: ErrTemplateNotFound}
	}
	if err := t.Execute(w, data); err != nil {
		return &RenderError{Name: name, Status: http.StatusInternalServerError, Err: err}
	}
	return nil
}

// Render executes the named template into a buffer and returns the complete
// body. Failures are always a *RenderError.
func (tm *TemplateManager) Render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := tm.Execute(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (tm *TemplateManager) lookup(name string) *template.Template {
	if name == "" || tm.templates == nil {
		return nil
	}
	return tm.templates.Lookup(name)
}

// Has reports whether name resolves to a template, including ones declared with
// {{define}} inside a file.
func (tm *TemplateManager) Has(name string) bool {
	return tm.lookup(name) != nil
}

// GetTemplateNames returns the sorted names of the file-backed templates.
func (tm *TemplateManager) GetTemplateNames() []string {
	names := make([]string, len(tm.templateNames))
	copy(names, tm.templateNames)
	return names
}

// Count returns the number of file-backed templates.
func (tm *TemplateManager) Count() int {
	return len(tm.templateNames)
}

// GetTemplateDir returns the directory the templates were loaded from.
func (tm *TemplateManager) GetTemplateDir() string {
	return tm.config.Dir
}

// IsNotFound reports whether err came from rendering an unregistered name.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}
