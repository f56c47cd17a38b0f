package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dshills/graphsnap/internal/config/document"
	"github.com/dshills/graphsnap/internal/config/notify"
	"github.com/dshills/graphsnap/internal/config/registry"
)

// Report summarizes one discovery pass.
type Report struct {
	// Bound lists the targets bound in this pass, in registration order.
	Bound []registry.Target

	// Skipped holds one *BindError per rejected binding.
	Skipped []error

	// LoadErr holds the directory or parse fault when the pass had to load
	// the documents itself.
	LoadErr error

	// SaveErr is the result of persisting the documents after the pass.
	SaveErr error

	Elapsed time.Duration
}

// Err joins the load fault, every skip and the save fault.
func (r *Report) Err() error {
	errs := append([]error{r.LoadErr}, r.Skipped...)
	return errors.Join(append(errs, r.SaveErr)...)
}

// Discover resolves every binding registered since the previous pass, then
// saves all documents. A binding that cannot be resolved is skipped and
// listed in the report; it never stops the pass. Discover on an engine that
// has not been loaded loads it first.
func (e *Engine) Discover() *Report {
	start := time.Now()
	report := &Report{}
	if e.state == StateUninitialized {
		report.LoadErr = e.Load()
	}

	batch := e.notifier.NewBatch()

	pending := e.pending
	e.pending = nil
	for _, b := range pending {
		stored, err := e.discoverOne(b)
		if err != nil {
			bindErr := newBindError(b, err)
			e.logger.Warn("config binding skipped",
				"document", bindErr.Document, "key", bindErr.Key, "error", err)
			report.Skipped = append(report.Skipped, bindErr)
			continue
		}
		target := b.Annotation().Target()
		report.Bound = append(report.Bound, target)
		batch.Add(notify.Change{
			Path:     target.String(),
			Type:     notify.ChangeBind,
			NewValue: stored,
			Source:   "discover",
		})
	}

	report.SaveErr = e.store.Save()
	e.state = StateDiscovered
	batch.Commit()

	report.Elapsed = time.Since(start)
	e.logger.Info("config discovery complete",
		"bound", len(report.Bound),
		"skipped", len(report.Skipped),
		"elapsed", report.Elapsed)
	return report
}

// discoverOne validates one binding, reads or seeds its entry and adds it to
// the registry. It returns the value stored in the document.
func (e *Engine) discoverOne(b registry.Binding) (document.Value, error) {
	if !b.Eligible() {
		return document.Value{}, ErrIneligible
	}
	if err := b.Validate(); err != nil {
		return document.Value{}, err
	}
	ann := b.Annotation()
	if !b.TypeMatches() {
		return document.Value{}, fmt.Errorf("%w: default %T for %s variable",
			ErrTypeMismatch, ann.Default, b.TypeName())
	}
	if e.registry.Has(ann.Target()) {
		return document.Value{}, fmt.Errorf("%w: %s", ErrDuplicateBinding, ann.Target())
	}

	tbl, err := e.table(ann)
	if err != nil {
		return document.Value{}, err
	}

	stored, ok := tbl.Get(ann.Key)
	if ok {
		if err := b.Load(stored); err != nil {
			return document.Value{}, fmt.Errorf("%w: %w", ErrConversion, err)
		}
	} else {
		defaulted := b.Defaultable()
		if defaulted {
			stored, err = b.Resolve()
		} else {
			stored, err = b.Current()
		}
		if err != nil {
			return document.Value{}, fmt.Errorf("%w: %w", ErrConversion, err)
		}
		tbl.SetWithComment(ann.Key, stored, ann.Comment)
		e.logger.Debug("config entry seeded", "target", ann.Target().String(), "defaultable", defaulted)
	}

	if err := e.registry.Add(b); err != nil {
		return document.Value{}, err
	}
	return stored, nil
}

// table returns the table holding ann's entry, creating the document and
// any missing sections.
func (e *Engine) table(ann registry.Annotation) (*document.Table, error) {
	doc := e.store.GetOrCreate(ann.Document)
	tbl, ok := doc.Root.Subtable(ann.SectionPath(), true)
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s", ErrSectionConflict, ann.Section, ann.Document)
	}
	return tbl, nil
}

// Refresh writes the current value of every bound variable into its
// document and saves all documents. Existing comments are kept, including
// those inside nested tables, and unchanged entries are not rewritten; an entry
// that was removed from its document is re-added with the annotation
// comment. Per-binding encode faults and save faults are joined.
func (e *Engine) Refresh() error {
	if e.state != StateDiscovered {
		return ErrNotDiscovered
	}

	var errs []error
	batch := e.notifier.NewBatch()

	for _, b := range e.registry.All() {
		ann := b.Annotation()
		current, err := b.Current()
		if err != nil {
			errs = append(errs, newBindError(b, err))
			continue
		}
		tbl, err := e.table(ann)
		if err != nil {
			errs = append(errs, newBindError(b, err))
			continue
		}

		old, had := tbl.Get(ann.Key)
		if had {
			old = old.Clone()
			if !tbl.Update(ann.Key, current) {
				continue
			}
		} else {
			tbl.SetWithComment(ann.Key, current, ann.Comment)
		}
		batch.Add(notify.Change{
			Path:     ann.Target().String(),
			Type:     notify.ChangeSet,
			OldValue: old,
			NewValue: current,
			Source:   "refresh",
		})
	}

	if err := e.store.Save(); err != nil {
		errs = append(errs, err)
	}
	batch.Commit()

	err := errors.Join(errs...)
	if err != nil {
		e.logger.Warn("config refresh incomplete", "error", err)
	}
	return err
}

// Reload re-reads one document from disk and decodes its entries into the
// variables bound to it. A file holding exactly the bytes last read or
// written is ignored. Entries missing from the new contents are re-added
// from the current variable values and the documents are saved.
func (e *Engine) Reload(id string) error {
	if e.state != StateDiscovered {
		return ErrNotDiscovered
	}

	changed, err := e.store.Reload(id)
	if err != nil {
		e.logger.Warn("config document reload failed", "document", id, "error", err)
		return fmt.Errorf("reload %s: %w", id, err)
	}
	if !changed {
		return nil
	}

	var errs []error
	missing := false
	batch := e.notifier.NewBatch()

	for _, b := range e.registry.Document(id) {
		ann := b.Annotation()
		before, err := b.Current()
		if err != nil {
			errs = append(errs, newBindError(b, err))
			continue
		}
		tbl, err := e.table(ann)
		if err != nil {
			errs = append(errs, newBindError(b, err))
			continue
		}

		stored, ok := tbl.Get(ann.Key)
		if !ok {
			tbl.SetWithComment(ann.Key, before, ann.Comment)
			missing = true
			continue
		}
		if err := b.Load(stored); err != nil {
			errs = append(errs, newBindError(b, fmt.Errorf("%w: %w", ErrConversion, err)))
			continue
		}
		if after, err := b.Current(); err == nil && !after.Equal(before) {
			batch.Add(notify.Change{
				Path:     ann.Target().String(),
				Type:     notify.ChangeReload,
				OldValue: before,
				NewValue: after,
				Source:   "reload",
			})
		}
	}

	if missing {
		if err := e.store.Save(); err != nil {
			errs = append(errs, err)
		}
	}
	e.logger.Info("config document reloaded", "document", id, "changes", batch.Len())
	batch.Commit()
	return errors.Join(errs...)
}
