// Package sandbox confines every file operation to a single directory tree
// and an allow-list of file extensions.
package sandbox

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ViolationError reports a path that escapes the sandbox root, including
// escapes via symlink indirection.
type ViolationError struct {
	Path string
	Root string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("path %q is outside the sandbox root %q", e.Path, e.Root)
}

// ExtensionError reports a file whose extension is not in the allow-set.
type ExtensionError struct {
	Path    string
	Ext     string
	Allowed []string
}

func (e *ExtensionError) Error() string {
	return fmt.Sprintf("file type %q not allowed for %q (allowed: %s)", e.Ext, e.Path, strings.Join(e.Allowed, ", "))
}

// Handle is a validated path inside the sandbox. Handles are created fresh
// per operation and never cached across calls.
type Handle struct {
	// Path is the canonical absolute location on disk.
	Path string
	// Requested is the path as the caller supplied it, for reporting.
	Requested string
}

// Guard validates requested paths against a sandbox root and an extension
// allow-set. The root is fixed for the lifetime of a session. Guard performs
// pure validation only; existence requirements are operation-specific and
// checked by the executor.
type Guard struct {
	root    string
	allowed map[string]bool
}

// NewGuard creates a Guard for the given root directory. The root must exist;
// it is canonicalized (absolute, symlinks resolved) so that later ancestry
// checks compare like with like. Extensions are matched case-insensitively
// and must include the leading dot.
func NewGuard(root string, extensions []string) (*Guard, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve sandbox root: %w", err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("resolve sandbox root: %w", err)
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return nil, fmt.Errorf("stat sandbox root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("sandbox root %q is not a directory", root)
	}

	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}

	return &Guard{root: canonical, allowed: allowed}, nil
}

// Root returns the canonical sandbox root.
func (g *Guard) Root() string { return g.root }

// AllowedExtensions returns the extension allow-set, sorted.
func (g *Guard) AllowedExtensions() []string {
	exts := make([]string, 0, len(g.allowed))
	for ext := range g.allowed {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// AllowsFile reports whether a file name passes the extension allow-set.
func (g *Guard) AllowsFile(name string) bool {
	return g.allowed[strings.ToLower(filepath.Ext(name))]
}

// Resolve validates a requested path and returns a Handle for it. Relative
// paths are joined against the sandbox root. The result is normalized
// (".", "..", symlinks through the deepest existing ancestor) and must remain
// a descendant of the root; escapes fail with ViolationError and disallowed
// extensions with ExtensionError. Resolve never checks file existence.
func (g *Guard) Resolve(requested string) (Handle, error) {
	if strings.TrimSpace(requested) == "" {
		return Handle{}, &ViolationError{Path: requested, Root: g.root}
	}

	path := requested
	if !filepath.IsAbs(path) {
		path = filepath.Join(g.root, path)
	}
	path = filepath.Clean(path)

	// Resolve symlinks through the deepest existing ancestor so that a link
	// pointing outside the root cannot smuggle the path out. The final
	// component may not exist yet (create_file).
	canonical, err := resolveExisting(path)
	if err != nil {
		return Handle{}, fmt.Errorf("resolve path %q: %w", requested, err)
	}

	rel, err := filepath.Rel(g.root, canonical)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return Handle{}, &ViolationError{Path: requested, Root: g.root}
	}

	if !g.allowed[strings.ToLower(filepath.Ext(canonical))] {
		return Handle{}, &ExtensionError{
			Path:    requested,
			Ext:     filepath.Ext(canonical),
			Allowed: g.AllowedExtensions(),
		}
	}

	return Handle{Path: canonical, Requested: requested}, nil
}

// resolveExisting canonicalizes path by resolving symlinks on its deepest
// existing ancestor and rejoining the non-existent remainder.
func resolveExisting(path string) (string, error) {
	suffix := ""
	cur := path
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(resolved, suffix), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			// Ran out of ancestors; nothing on disk to resolve.
			return path, nil
		}
		suffix = filepath.Join(filepath.Base(cur), suffix)
		cur = parent
	}
}
