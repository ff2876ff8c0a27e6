// Package selection reads the current canvas selection and exports it as
// graphics.
package selection

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/CrazyForks/tiny-svg/item"
	applog "github.com/CrazyForks/tiny-svg/log"
)

// Node is one selected canvas node.
type Node interface {
	ID() string
	Name() string
}

// Exporter is a node that can render itself as SVG markup.
type Exporter interface {
	ExportSVG(ctx context.Context) ([]byte, error)
}

// Provider exposes the current selection in canvas order.
type Provider interface {
	Selection(ctx context.Context) ([]Node, error)
}

// Export reads the selection from p and exports each node in order. Nodes
// that cannot export are skipped; a failed export is logged and skipped.
// Only a failure to read the selection itself is returned.
func Export(ctx context.Context, p Provider) ([]item.Graphic, error) {
	l := applog.WithOperation(applog.WithComponent("selection"), "export")

	nodes, err := p.Selection(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]item.Graphic, 0, len(nodes))
	for _, n := range nodes {
		exp, ok := n.(Exporter)
		if !ok {
			continue
		}
		data, err := exp.ExportSVG(ctx)
		if err != nil {
			l.Warn("export failed, skipping node", slog.String("node", n.ID()),
				slog.String("name", n.Name()), slog.Any("err", err))
			continue
		}
		out = append(out, item.Graphic{ID: n.ID(), NodeID: n.ID(), Name: n.Name(), SVG: string(data)})
	}
	return out, nil
}

// DirProvider treats a directory as the canvas: every regular file is a
// selected node and *.svg files are exportable. Dotfiles are ignored.
type DirProvider struct {
	Dir string
}

func (d DirProvider) Selection(ctx context.Context) ([]Node, error) {
	entries, err := os.ReadDir(d.Dir)
	if err != nil {
		return nil, fmt.Errorf("read selection dir: %w", err)
	}
	var nodes []Node
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}
		base := fileNode{id: name, name: strings.TrimSuffix(name, filepath.Ext(name))}
		if strings.EqualFold(filepath.Ext(name), ".svg") {
			nodes = append(nodes, svgFile{fileNode: base, path: filepath.Join(d.Dir, name)})
			continue
		}
		nodes = append(nodes, base)
	}
	return nodes, nil
}

type fileNode struct{ id, name string }

func (n fileNode) ID() string   { return n.id }
func (n fileNode) Name() string { return n.name }

type svgFile struct {
	fileNode
	path string
}

func (n svgFile) ExportSVG(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(n.path)
}

// StaticNode is an in-memory exportable node. A non-nil Err fails its
// export.
type StaticNode struct {
	NodeID   string
	NodeName string
	SVG      []byte
	Err      error
}

func (n StaticNode) ID() string   { return n.NodeID }
func (n StaticNode) Name() string { return n.NodeName }

func (n StaticNode) ExportSVG(context.Context) ([]byte, error) {
	if n.Err != nil {
		return nil, n.Err
	}
	return n.SVG, nil
}

// PlainNode is a selected node that cannot be exported.
type PlainNode struct {
	NodeID   string
	NodeName string
}

func (n PlainNode) ID() string   { return n.NodeID }
func (n PlainNode) Name() string { return n.NodeName }

// StaticProvider serves a selection set in memory.
type StaticProvider struct {
	mu    sync.RWMutex
	nodes []Node
	err   error
}

func NewStaticProvider(nodes ...Node) *StaticProvider {
	return &StaticProvider{nodes: nodes}
}

// Set replaces the selection and clears any failure.
func (s *StaticProvider) Set(nodes ...Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = nodes
	s.err = nil
}

// Fail makes every following Selection call return err.
func (s *StaticProvider) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *StaticProvider) Selection(context.Context) ([]Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]Node, len(s.nodes))
	copy(out, s.nodes)
	return out, nil
}
