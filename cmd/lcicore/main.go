// Command lcicore is the indexing core's process entry point: it loads
// configuration, builds the Symbol Graph and its registries, performs
// the initial index of the project root, then serves queries over MCP
// (spec §4.6) and, with --watch, also keeps reindexing as files change
// (spec §4.7) until interrupted. Grounded on the pack's
// cmd/lci/main.go (urfave/cli app shape, signal-driven graceful
// shutdown of the MCP server).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/indexcore/engine/internal/discover"
	"github.com/indexcore/engine/internal/frontend"
	"github.com/indexcore/engine/internal/graph"
	"github.com/indexcore/engine/internal/idxlog"
	"github.com/indexcore/engine/internal/interning"
	"github.com/indexcore/engine/internal/lciconfig"
	"github.com/indexcore/engine/internal/persist"
	"github.com/indexcore/engine/internal/query"
	"github.com/indexcore/engine/internal/rpcapi"
	"github.com/indexcore/engine/internal/scheduler"
	"github.com/indexcore/engine/internal/types"
	"github.com/indexcore/engine/internal/watch"
)

// defaultCursorExtensions is applied when the config names no include
// globs, so a bare project root does not hand the C/C++ frontend
// unrelated files (spec §6's Include default is project-supplied, not
// mandated, so the core needs its own fallback).
var defaultCursorExtensions = []string{
	"**/*.c", "**/*.cc", "**/*.cpp", "**/*.cxx",
	"**/*.h", "**/*.hh", "**/*.hpp", "**/*.hxx",
}

func main() {
	app := &cli.App{
		Name:  "lcicore",
		Usage: "C/C++ indexing and symbol-resolution core",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory to index",
				Value:   ".",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Keep watching the project root and reindex on change",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log debug-level messages to stderr",
			},
			&cli.StringFlag{
				Name:  "snapshot",
				Usage: "Graph snapshot file: restored at startup if present, rewritten on clean shutdown",
			},
		},
		Action: serveCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "lcicore: %v\n", err)
		os.Exit(1)
	}
}

func serveCommand(c *cli.Context) error {
	idxlog.SetVerbose(c.Bool("verbose"))

	cfg, err := lciconfig.Load(c.String("root"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if len(cfg.Index.Include) == 0 {
		cfg.Index.Include = defaultCursorExtensions
	}

	snapshotPath := c.String("snapshot")
	g, fileReg, usrTab, restored, err := loadOrCreateGraph(snapshotPath, cfg)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	source, err := frontend.NewTreeSitterCursorSource()
	if err != nil {
		return fmt.Errorf("create cursor source: %w", err)
	}

	sched := scheduler.New(g, fileReg, usrTab, source, cfg)
	defer sched.Close()

	dirty := watch.NewDirtyController(g, fileReg, sched)
	if !restored {
		if err := indexProject(sched, dirty, cfg); err != nil {
			return fmt.Errorf("initial index: %w", err)
		}
	} else {
		idxlog.Infof("lcicore: restored graph from %s", snapshotPath)
	}
	if snapshotPath != "" {
		defer saveSnapshot(snapshotPath, g, fileReg, usrTab)
	}

	engine := query.New(g, fileReg, usrTab)
	server := rpcapi.NewServer(engine, sched, "lcicore", "0.1.0")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var watcher *watch.Watcher
	if c.Bool("watch") {
		watcher, err = watch.New(cfg, dirty.OnDirty)
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		if err := watcher.Start(); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer watcher.Stop()
		idxlog.Infof("lcicore: watching %s for changes", cfg.Project.Root)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		idxlog.Infof("lcicore: serving MCP over stdio")
		errChan <- server.Start(ctx)
	}()

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		idxlog.Infof("lcicore: received %v, shutting down", sig)
		cancel()
		select {
		case err := <-errChan:
			return err
		case <-time.After(2 * time.Second):
			return nil
		}
	}
}

// loadOrCreateGraph restores the graph from snapshotPath when the file
// exists, so a prior process's index survives a restart (spec §4.10),
// or builds a fresh empty graph and registries otherwise. The bool
// return tells the caller whether to skip the initial filesystem walk.
func loadOrCreateGraph(snapshotPath string, cfg *lciconfig.Config) (*graph.SymbolGraph, *interning.FileRegistry, *interning.UsrTable, bool, error) {
	if snapshotPath != "" {
		if f, err := os.Open(snapshotPath); err == nil {
			defer f.Close()
			g, fileReg, usrTab, err := persist.ReadGraph(f)
			if err != nil {
				return nil, nil, nil, false, fmt.Errorf("read %s: %w", snapshotPath, err)
			}
			return g, fileReg, usrTab, true, nil
		} else if !os.IsNotExist(err) {
			return nil, nil, nil, false, err
		}
	}

	fileReg := interning.NewFileRegistry(cfg.Index.InternTableShards, cfg.Project.Root)
	usrTab := interning.NewUsrTable(cfg.Index.InternTableShards)
	g := graph.New(fileReg, usrTab)
	return g, fileReg, usrTab, false, nil
}

// saveSnapshot dumps the graph to snapshotPath on shutdown. A failure
// here is logged, not fatal — the process is already on its way out.
func saveSnapshot(snapshotPath string, g *graph.SymbolGraph, fileReg *interning.FileRegistry, usrTab *interning.UsrTable) {
	f, err := os.Create(snapshotPath)
	if err != nil {
		idxlog.Warnf("lcicore: create snapshot %s: %v", snapshotPath, err)
		return
	}
	defer f.Close()

	w := persist.NewWriter(f)
	if err := w.WriteGraph(g, fileReg, usrTab); err != nil {
		idxlog.Warnf("lcicore: write snapshot %s: %v", snapshotPath, err)
		return
	}
	if err := w.Flush(); err != nil {
		idxlog.Warnf("lcicore: flush snapshot %s: %v", snapshotPath, err)
	}
}

// indexProject walks cfg.Project.Root, submits every discovered file
// as an initial Parse Job, and waits for each to finish before
// returning, so the MCP server never starts serving against an empty
// graph (spec §4.4 "initial indexing" precedes query availability).
func indexProject(sched *scheduler.Scheduler, dirty *watch.DirtyController, cfg *lciconfig.Config) error {
	paths, err := discover.Files(cfg)
	if err != nil {
		return err
	}

	idxlog.Infof("lcicore: indexing %d files under %s", len(paths), cfg.Project.Root)
	jobs := make([]*scheduler.Job, 0, len(paths))
	for _, path := range paths {
		source := types.SourceInformation{Path: path}
		job, err := sched.Submit(source, types.IndexInitial)
		if err != nil {
			idxlog.Warnf("lcicore: submit %s: %v", path, err)
			continue
		}
		dirty.RegisterSource(source)
		jobs = append(jobs, job)
	}
	for _, job := range jobs {
		job.Wait()
	}
	idxlog.Infof("lcicore: initial index complete")
	return nil
}
