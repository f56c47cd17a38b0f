package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/dshills/graphsnap/internal/config/document"
	"github.com/dshills/graphsnap/internal/config/notify"
	"github.com/dshills/graphsnap/internal/config/watcher"
)

const (
	showHelp    = `  show [--json]          Print every configuration document`
	getHelp     = `  get <doc[:path]>       Print one value, e.g. settings.toml:api.Timeout`
	setHelp     = `  set <name> <value>     Change a setting (api-url, retries, snapshot-dir, timeout)`
	trackHelp   = `  track <user>...        Start snapshotting users (--label text)`
	untrackHelp = `  untrack <user>...      Stop snapshotting users`
	watchHelp   = `  watch                  Reload documents as they change on disk`
)

var (
	errArgsRequired  = errors.New("missing arguments")
	errUnknownTarget = errors.New("no such value")
	errUnknownName   = errors.New("unknown setting")
)

func newFlagSet(name string) *flag.FlagSet {
	flagSet := flag.NewFlagSet(name, flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	return flagSet
}

func cmdShow(_ context.Context, out, errOut io.Writer, a *app, args []string) int {
	flagSet := newFlagSet("show")
	asJSON := flagSet.Bool("json", false, "Print as one JSON object")
	if err := flagSet.Parse(args); err != nil {
		fprintln(errOut, "error:", err)
		return 1
	}

	store := a.engine.Store()
	if *asJSON {
		view, err := exportJSON(store)
		if err != nil {
			fprintln(errOut, "error:", err)
			return 1
		}
		fprintln(out, prettyJSON(view))
		return 0
	}

	for i, id := range store.IDs() {
		if i > 0 {
			fprintln(out)
		}
		doc, _ := store.Get(id)
		header := "# " + id
		if store.Quarantined(id) {
			header += " (unreadable, not saved)"
		}
		fprintln(out, header)
		printTable(out, "", doc.Root)
	}
	return 0
}

// printTable writes one line per leaf value, keys joined by dots.
func printTable(w io.Writer, prefix string, t *document.Table) {
	for _, e := range t.Entries() {
		if sub, ok := e.Value.AsTable(); ok {
			printTable(w, prefix+e.Key+".", sub)
			continue
		}
		line := fmt.Sprintf("%s%s = %s", prefix, e.Key, e.Value)
		if e.Comment != "" {
			line += "  # " + e.Comment
		}
		fprintln(w, line)
	}
}

func cmdGet(_ context.Context, out, errOut io.Writer, a *app, args []string) int {
	if len(args) != 1 {
		fprintln(errOut, "error:", errArgsRequired)
		fprintln(errOut, getHelp)
		return 1
	}

	view, err := exportJSON(a.engine.Store())
	if err != nil {
		fprintln(errOut, "error:", err)
		return 1
	}
	r, ok := query(view, args[0])
	if !ok {
		fprintln(errOut, "error:", fmt.Errorf("%w: %s", errUnknownTarget, args[0]))
		return 1
	}
	if r.IsObject() || r.IsArray() {
		fprintln(out, prettyJSON([]byte(r.Raw)))
		return 0
	}
	fprintln(out, r.String())
	return 0
}

func cmdSet(_ context.Context, out, errOut io.Writer, a *app, args []string) int {
	if len(args) != 2 {
		fprintln(errOut, "error:", errArgsRequired)
		fprintln(errOut, setHelp)
		return 1
	}
	name, value := args[0], args[1]
	set, ok := setters[name]
	if !ok {
		fprintln(errOut, "error:", fmt.Errorf("%w %q (valid: %s)", errUnknownName, name, strings.Join(setterNames(), ", ")))
		return 1
	}
	if err := set(a.settings, value); err != nil {
		fprintln(errOut, "error:", fmt.Errorf("%s: %w", name, err))
		return 1
	}
	if err := a.commit(); err != nil {
		fprintln(errOut, "error:", err)
		return 1
	}
	fprintln(out, "Set", name)
	return 0
}

func cmdTrack(_ context.Context, out, errOut io.Writer, a *app, args []string) int {
	flagSet := newFlagSet("track")
	label := flagSet.String("label", "", "Label stored with each user")
	if err := flagSet.Parse(args); err != nil {
		fprintln(errOut, "error:", err)
		return 1
	}
	users := flagSet.Args()
	if len(users) == 0 {
		fprintln(errOut, "error:", errArgsRequired)
		fprintln(errOut, trackHelp)
		return 1
	}

	added := a.settings.track(users...)
	if *label != "" {
		if a.settings.Labels == nil {
			a.settings.Labels = make(map[string]string)
		}
		for _, u := range users {
			a.settings.Labels[u] = *label
		}
	}
	if err := a.commit(); err != nil {
		fprintln(errOut, "error:", err)
		return 1
	}
	fprintln(out, "Tracking", added, "new user(s),", len(a.settings.Tracked), "total")
	return 0
}

func cmdUntrack(_ context.Context, out, errOut io.Writer, a *app, args []string) int {
	if len(args) == 0 {
		fprintln(errOut, "error:", errArgsRequired)
		fprintln(errOut, untrackHelp)
		return 1
	}
	removed := a.settings.untrack(args...)
	if removed == 0 {
		fprintln(out, "Nothing to untrack")
		return 0
	}
	if err := a.commit(); err != nil {
		fprintln(errOut, "error:", err)
		return 1
	}
	fprintln(out, "Untracked", removed, "user(s)")
	return 0
}

// cmdWatch reloads documents as they change until ctx is done. A document
// removed from disk is written back from the current settings.
func cmdWatch(ctx context.Context, out, errOut io.Writer, a *app, args []string) int {
	if len(args) != 0 {
		fprintln(errOut, "error: watch takes no arguments")
		return 1
	}

	events, err := a.engine.Watch(ctx)
	if err != nil {
		fprintln(errOut, "error:", err)
		return 1
	}

	sub := a.engine.Subscribe(func(c notify.Change) {
		fprintln(out, fmt.Sprintf("%s %s: %s -> %s", c.Type, c.Path, c.OldValue, c.NewValue))
	})
	defer sub.Unsubscribe()

	fprintln(out, "Watching", a.engine.Root())
	for ev := range events {
		a.logger.Debug("config document event", "document", ev.Name, "op", ev.Op)
		if ev.Op == watcher.OpRemove || ev.Op == watcher.OpRename {
			if err := a.engine.Refresh(); err != nil {
				fprintln(errOut, "error:", err)
			}
			continue
		}
		if err := a.engine.Reload(ev.Name); err != nil {
			fprintln(errOut, "error:", err)
		}
	}
	return 0
}
