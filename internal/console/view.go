// Package console wires the tabular engine, the live feed, and the claim
// workflow into the operational views the console serves.
package console

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mailtrack/internal/api"
	"mailtrack/internal/claim"
	"mailtrack/internal/config"
	"mailtrack/internal/feed"
	"mailtrack/internal/table"
	"mailtrack/pkg/model"
)

// ViewState is the coarse lifecycle of a mounted view. Loading is shown
// until the initial fetch lands; an empty result set after that is Ready
// with an empty page, which renders as an explicit "no results" state.
type ViewState string

const (
	StateLoading ViewState = "loading"
	StateReady   ViewState = "ready"
	StateFailed  ViewState = "failed"
)

// Fetcher retrieves a resource's full record set. *api.Client satisfies it.
type Fetcher interface {
	FetchCollection(ctx context.Context, resource string) ([]model.Document, error)
}

// View owns one table's full state: the raw collection, the query
// options, the selection, and the reconciler that merges feed events.
// All mutation funnels through its mutex, so the table package below it
// stays lock-free.
type View[R model.Record] struct {
	mu sync.Mutex

	resource string
	entity   string
	schema   table.Schema[R]
	fetcher  Fetcher
	clock    func() time.Time

	collection *table.Collection[R]
	selection  *table.Selection[R]
	reconciler *feed.Reconciler[R]

	opts  table.Options[R]
	state ViewState
}

// NewView creates an unmounted view. resource names the fetch endpoint,
// entity names the key the feed wraps records under; they are usually
// the same word. A nil eligible predicate admits every record into the
// selection.
func NewView[R model.Record](resource, entity string, schema table.Schema[R], fetcher Fetcher, eligible func(R) bool, pageSize int) *View[R] {
	v := &View[R]{
		resource:   resource,
		entity:     entity,
		schema:     schema,
		fetcher:    fetcher,
		clock:      time.Now,
		collection: table.NewCollection[R](),
		selection:  table.NewSelection[R](eligible),
		state:      StateLoading,
	}
	v.opts = table.Options[R]{Page: 1, PageSize: pageSize, SortDir: table.SortAsc}
	v.reconciler = feed.NewReconciler(entity, v.collection, v.afterMutation)
	return v
}

// WithClock overrides the pipeline clock. Test hook.
func (v *View[R]) WithClock(clock func() time.Time) *View[R] {
	v.clock = clock
	return v
}

// afterMutation runs inside the view lock, after the reconciler has
// applied an event and recomputed indices. A delete or a status change
// arriving over the feed must never leave a stale identifier selected.
func (v *View[R]) afterMutation() {
	v.selection.Prune(v.collection)
}

// Mount performs the initial fetch and loads the collection. On failure
// the view lands in Failed; Mount may be called again to retry.
func (v *View[R]) Mount(ctx context.Context) error {
	v.mu.Lock()
	v.state = StateLoading
	v.mu.Unlock()

	docs, err := v.fetcher.FetchCollection(ctx, v.resource)
	if err != nil {
		v.mu.Lock()
		v.state = StateFailed
		v.mu.Unlock()
		return fmt.Errorf("mounting %s view: %w", v.resource, err)
	}

	records := make([]R, 0, len(docs))
	for _, doc := range docs {
		rec, err := feed.DecodeRecord[R](doc)
		if err != nil {
			slog.Warn("Skipping undecodable record", "resource", v.resource, "id", doc.GetID(), "error", err)
			continue
		}
		records = append(records, rec)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.collection.Load(records)
	v.selection.Prune(v.collection)
	v.state = StateReady
	slog.Info("View mounted", "resource", v.resource, "records", v.collection.Len())
	return nil
}

// HandleFeed merges one raw feed payload. It is the only entry point the
// feed transport gets, so every event is serialized against user
// interaction on this view.
func (v *View[R]) HandleFeed(data []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reconciler.HandleRaw(data)
}

// Watch pumps the event source into the view until ctx ends. It runs in
// its own goroutine and logs its exit.
func (v *View[R]) Watch(ctx context.Context, source EventSource) {
	go func() {
		if err := source.Run(ctx, v.HandleFeed); err != nil && ctx.Err() == nil {
			slog.Error("Feed source stopped", "resource", v.resource, "error", err)
		}
	}()
}

// State returns the view lifecycle state.
func (v *View[R]) State() ViewState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// SetQuery replaces the search text and resets to the first page.
func (v *View[R]) SetQuery(q string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.opts.Query != q {
		v.opts.Page = 1
	}
	v.opts.Query = q
}

// SetFilters replaces the active filter set and resets to the first page.
func (v *View[R]) SetFilters(filters ...table.Filter[R]) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.opts.Filters = filters
	v.opts.Page = 1
}

// ToggleSort sorts by the key, ascending; a repeated toggle on the same
// key flips the direction.
func (v *View[R]) ToggleSort(key string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.opts.SortKey == key {
		if v.opts.SortDir == table.SortAsc {
			v.opts.SortDir = table.SortDesc
		} else {
			v.opts.SortDir = table.SortAsc
		}
		return
	}
	v.opts.SortKey = key
	v.opts.SortDir = table.SortAsc
}

// SetPage moves to the requested page. Out-of-range values are clamped
// at render time.
func (v *View[R]) SetPage(page int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.opts.Page = page
}

// Page derives the visible page from the current options.
func (v *View[R]) Page() table.Page[R] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pageLocked(v.opts)
}

// Render derives a page from caller-supplied options without touching
// the view's own. The stateless HTTP surface uses it.
func (v *View[R]) Render(opts table.Options[R]) table.Page[R] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pageLocked(opts)
}

// pageLocked computes a page; the caller holds v.mu. A missing page size
// falls back to the view default.
func (v *View[R]) pageLocked(opts table.Options[R]) table.Page[R] {
	if opts.PageSize < 1 {
		opts.PageSize = v.opts.PageSize
	}
	return table.Compute(v.schema, v.collection.Records(), opts, v.clock())
}

// Suggest derives autocomplete suggestions for the query prefix.
func (v *View[R]) Suggest(query string) []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return table.Suggest(v.schema, v.collection.Records(), query)
}

// ToggleSelect flips selection membership for the identifier.
func (v *View[R]) ToggleSelect(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	rec, ok := v.collection.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	v.selection.Toggle(rec)
	return nil
}

// SelectAllVisible selects every eligible record on the current page.
func (v *View[R]) SelectAllVisible() {
	v.SelectAllVisibleOn(v.options())
}

// SelectAllVisibleOn selects every eligible record on the page the given
// options render. The stateless HTTP surface passes the options the
// client is actually viewing.
func (v *View[R]) SelectAllVisibleOn(opts table.Options[R]) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selection.SelectAllVisible(v.pageLocked(opts).Rows)
}

// ClearSelection empties the selection.
func (v *View[R]) ClearSelection() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selection.Clear()
}

// SelectedIDs returns the selected identifiers in sorted order.
func (v *View[R]) SelectedIDs() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selection.IDs()
}

// IsAllVisibleSelected reports whether the current page's eligible
// records are all selected.
func (v *View[R]) IsAllVisibleSelected() bool {
	return v.IsAllVisibleSelectedOn(v.options())
}

// IsAllVisibleSelectedOn reports the same for the page the given options
// render.
func (v *View[R]) IsAllVisibleSelectedOn(opts table.Options[R]) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selection.IsAllVisibleSelected(v.pageLocked(opts).Rows)
}

// options snapshots the view's own query options.
func (v *View[R]) options() table.Options[R] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.opts
}

// MailView is the mail-tracking table plus its claim workflow. The
// workflow itself is not goroutine-safe; wmu serializes it against the
// console's concurrent request goroutines. wmu is taken before v.mu
// (Submit clears the selection through the view), never the other way.
type MailView struct {
	*View[model.MailItem]
	wmu      sync.Mutex
	workflow *claim.Workflow
}

// NewMailView builds the mail view. Submitting a successful claim clears
// the selection; the resulting status changes arrive back through the
// feed, not through local mutation.
func NewMailView(client *api.Client, cfg config.ConsoleConfig, notifier claim.Notifier) *MailView {
	mv := &MailView{}
	mv.View = NewView("mail", "mail", table.MailItemSchema(), client, func(m model.MailItem) bool {
		return table.Eligible(m)
	}, cfg.PageSize)
	mv.workflow = claim.NewWorkflow(client, notifier, cfg.BranchCode, mv.ClearSelection)
	return mv
}

// Workflow exposes the claim workflow for clock injection during setup,
// before requests are served.
func (mv *MailView) Workflow() *claim.Workflow {
	return mv.workflow
}

// ComposeClaim opens the claim workflow over the current selection and
// returns the opened transaction with its generated reference code.
func (mv *MailView) ComposeClaim() (claim.Transaction, error) {
	mv.wmu.Lock()
	defer mv.wmu.Unlock()
	if err := mv.workflow.Compose(mv.SelectedIDs()); err != nil {
		return claim.Transaction{}, err
	}
	return mv.workflow.Transaction(), nil
}

// SetClaimant records the claimant fields on the open claim.
func (mv *MailView) SetClaimant(name, contact, idNumber string, outcome claim.Outcome, note string) error {
	mv.wmu.Lock()
	defer mv.wmu.Unlock()
	return mv.workflow.SetClaimant(name, contact, idNumber, outcome, note)
}

// SubmitClaim validates and submits the open claim.
func (mv *MailView) SubmitClaim(ctx context.Context) error {
	mv.wmu.Lock()
	defer mv.wmu.Unlock()
	return mv.workflow.Submit(ctx)
}

// CancelClaim discards the open claim, leaving the selection intact.
func (mv *MailView) CancelClaim() error {
	mv.wmu.Lock()
	defer mv.wmu.Unlock()
	return mv.workflow.Cancel()
}

// ClaimState returns the workflow state.
func (mv *MailView) ClaimState() claim.State {
	mv.wmu.Lock()
	defer mv.wmu.Unlock()
	return mv.workflow.State()
}

// ClaimTransaction returns the in-progress transaction.
func (mv *MailView) ClaimTransaction() claim.Transaction {
	mv.wmu.Lock()
	defer mv.wmu.Unlock()
	return mv.workflow.Transaction()
}
