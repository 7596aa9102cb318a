package inbox

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kbukum/phrame/coordinator"
	"github.com/kbukum/phrame/errors"
	"github.com/kbukum/phrame/logger"
	"github.com/kbukum/phrame/pipeline"
)

// Config configures the inbox watcher.
type Config struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir     string `yaml:"dir" mapstructure:"dir"`
	// Settle is how long events are collected before files are read.
	Settle     time.Duration `yaml:"settle" mapstructure:"settle"`
	Extensions []string      `yaml:"extensions" mapstructure:"extensions"`
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Dir == "" {
		c.Dir = "inbox"
	}
	if c.Settle <= 0 {
		c.Settle = 500 * time.Millisecond
	}
	if len(c.Extensions) == 0 {
		c.Extensions = []string{".txt"}
	}
}

// Adder stores one transcript. coordinator.Intake implements it.
type Adder interface {
	Add(ctx context.Context, text string) (coordinator.Transcript, bool, error)
}

// Watcher feeds files from Config.Dir to an Adder.
type Watcher struct {
	cfg     Config
	adder   Adder
	log     *logger.Logger
	watcher *fsnotify.Watcher
}

// New creates the directory when missing and starts watching it. Events
// are only consumed once Run is called.
func New(cfg Config, adder Adder, log *logger.Logger) (*Watcher, error) {
	cfg.ApplyDefaults()
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("inbox: create %s: %w", cfg.Dir, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("inbox: create watcher: %w", err)
	}
	if err := fw.Add(cfg.Dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("inbox: watch %s: %w", cfg.Dir, err)
	}
	return &Watcher{cfg: cfg, adder: adder, log: log.WithComponent("inbox"), watcher: fw}, nil
}

// Run ingests the files already present and then every file that appears
// until ctx is done. It closes the watcher on return.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.watcher.Close() }()
	w.log.Info("watching " + w.cfg.Dir)

	existing, err := w.scan()
	if err != nil {
		return err
	}
	w.ingestBatch(ctx, existing)

	paths := make(chan string)
	go w.forward(ctx, paths)

	accepted := pipeline.Filter(pipeline.FromChannel(paths), func(path string) bool {
		if w.accepts(path) {
			return true
		}
		w.log.Debug("ignoring " + filepath.Base(path))
		return false
	})
	batches := pipeline.Settle(accepted, w.cfg.Settle)
	err = pipeline.ForEach(ctx, batches, func(ctx context.Context, batch []string) error {
		w.ingestBatch(ctx, batch)
		return nil
	})
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// forward sends the paths of created or written files to out and closes
// it when ctx is done or the watcher stops.
func (w *Watcher) forward(ctx context.Context, out chan<- string) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			select {
			case out <- ev.Name:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error: " + err.Error())
		}
	}
}

func (w *Watcher) accepts(path string) bool {
	return slices.Contains(w.cfg.Extensions, strings.ToLower(filepath.Ext(path)))
}

func (w *Watcher) scan() ([]string, error) {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("inbox: read %s: %w", w.cfg.Dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() && w.accepts(e.Name()) {
			out = append(out, filepath.Join(w.cfg.Dir, e.Name()))
		}
	}
	return out, nil
}

// ingestBatch ingests each distinct path of a window once, in name order.
func (w *Watcher) ingestBatch(ctx context.Context, batch []string) {
	batch = slices.Clone(batch)
	sort.Strings(batch)
	for _, path := range slices.Compact(batch) {
		n, err := w.ingest(ctx, path)
		if err != nil {
			w.log.Error(fmt.Sprintf("%s: %s", filepath.Base(path), errors.Describe(err)))
			continue
		}
		if n >= 0 {
			w.log.Info(fmt.Sprintf("%d transcript(s) from %s", n, filepath.Base(path)))
		}
	}
}

// ingest adds every non-blank line of path and removes the file. It
// returns -1 when the file is already gone.
func (w *Watcher) ingest(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return -1, nil
	}
	if err != nil {
		return 0, err
	}

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	_ = f.Close()
	if err := sc.Err(); err != nil {
		return 0, err
	}

	kept := 0
	for _, line := range lines {
		_, ok, err := w.adder.Add(ctx, line)
		if err != nil {
			return kept, err
		}
		if ok {
			kept++
		}
	}
	if err := os.Remove(path); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return kept, err
	}
	return kept, nil
}
