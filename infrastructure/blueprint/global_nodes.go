package blueprint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"prefill/domain/core/entities"
	"prefill/domain/core/valueobjects"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// GlobalNodeSpec is one global node entry of the global nodes file
type GlobalNodeSpec struct {
	ID     string   `yaml:"id"`
	Title  string   `yaml:"title"`
	Fields []string `yaml:"fields"`
}

type globalNodesFile struct {
	Nodes []GlobalNodeSpec `yaml:"nodes"`
}

// DefaultGlobalNodeSpecs are offered when no global nodes file is configured
func DefaultGlobalNodeSpecs() []GlobalNodeSpec {
	return []GlobalNodeSpec{
		{ID: "node1", Title: "Global Node 1", Fields: []string{"email", "name"}},
		{ID: "node2", Title: "Global Node 2", Fields: []string{"role", "access"}},
	}
}

// BuildGlobalNodes converts specs into global graph nodes
func BuildGlobalNodes(specs []GlobalNodeSpec) ([]*entities.GraphNode, error) {
	nodes := make([]*entities.GraphNode, 0, len(specs))
	seen := make(map[string]struct{}, len(specs))
	for i, spec := range specs {
		if _, dup := seen[spec.ID]; dup {
			return nil, fmt.Errorf("global node %d: duplicate id %q", i, spec.ID)
		}
		seen[spec.ID] = struct{}{}

		node, err := entities.NewGlobalNode(valueobjects.NodeID(spec.ID), spec.Title, spec.Fields)
		if err != nil {
			return nil, fmt.Errorf("global node %d: %w", i, err)
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// LoadGlobalNodesFile reads global nodes from a YAML file
func LoadGlobalNodesFile(path string) ([]*entities.GraphNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read global nodes file: %w", err)
	}
	var file globalNodesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse global nodes file %s: %w", path, err)
	}
	return BuildGlobalNodes(file.Nodes)
}

// GlobalNodeCatalog serves the global nodes offered as mapping targets.
// A file-backed catalog can be watched and reloads on change.
type GlobalNodeCatalog struct {
	mu     sync.RWMutex
	nodes  []*entities.GraphNode
	path   string
	logger *zap.Logger

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	// onReload is called after every successful reload
	onReload func(count int)
}

// NewStaticCatalog serves a fixed list of global nodes
func NewStaticCatalog(nodes []*entities.GraphNode) *GlobalNodeCatalog {
	return &GlobalNodeCatalog{nodes: nodes, logger: zap.NewNop()}
}

// NewDefaultCatalog serves the built-in global nodes
func NewDefaultCatalog() (*GlobalNodeCatalog, error) {
	nodes, err := BuildGlobalNodes(DefaultGlobalNodeSpecs())
	if err != nil {
		return nil, err
	}
	return NewStaticCatalog(nodes), nil
}

// NewFileCatalog loads the global nodes from a YAML file
func NewFileCatalog(path string, logger *zap.Logger) (*GlobalNodeCatalog, error) {
	nodes, err := LoadGlobalNodesFile(path)
	if err != nil {
		return nil, err
	}
	return &GlobalNodeCatalog{nodes: nodes, path: path, logger: logger}, nil
}

// OnReload registers a callback run after each successful reload
func (c *GlobalNodeCatalog) OnReload(fn func(count int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReload = fn
}

// ListGlobalNodes implements ports.GlobalNodeSource
func (c *GlobalNodeCatalog) ListGlobalNodes(context.Context) ([]*entities.GraphNode, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*entities.GraphNode, len(c.nodes))
	copy(out, c.nodes)
	return out, nil
}

// Reload re-reads the backing file. A file that fails to parse leaves the
// current nodes in place.
func (c *GlobalNodeCatalog) Reload() error {
	if c.path == "" {
		return nil
	}
	nodes, err := LoadGlobalNodesFile(c.path)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.nodes = nodes
	onReload := c.onReload
	c.mu.Unlock()

	c.logger.Info("Global nodes reloaded", zap.String("path", c.path), zap.Int("count", len(nodes)))
	if onReload != nil {
		onReload(len(nodes))
	}
	return nil
}

// Watch starts reloading the file whenever it is written
func (c *GlobalNodeCatalog) Watch() error {
	if c.path == "" {
		return fmt.Errorf("global node catalog has no backing file")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(c.path); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch global nodes file: %w", err)
	}
	// Also watch the directory for atomic saves (rename operations)
	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		c.logger.Warn("Failed to watch global nodes directory", zap.Error(err))
	}

	c.watcher = watcher
	c.stopCh = make(chan struct{})
	go c.watchLoop()

	c.logger.Info("Global nodes watcher started", zap.String("path", c.path))
	return nil
}

// Close stops the watcher
func (c *GlobalNodeCatalog) Close() error {
	if c.watcher == nil {
		return nil
	}
	close(c.stopCh)
	err := c.watcher.Close()
	c.watcher = nil
	return err
}

func (c *GlobalNodeCatalog) watchLoop() {
	// Debounce timer to avoid multiple reloads
	var debounceTimer *time.Timer
	debounceDuration := 100 * time.Millisecond
	events, errs := c.watcher.Events, c.watcher.Errors
	stopCh := c.stopCh

	for {
		select {
		case <-stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(c.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDuration, func() {
				if err := c.Reload(); err != nil {
					c.logger.Warn("Failed to reload global nodes", zap.String("path", c.path), zap.Error(err))
				}
			})

		case err, ok := <-errs:
			if !ok {
				return
			}
			c.logger.Warn("Global nodes watcher error", zap.Error(err))
		}
	}
}
