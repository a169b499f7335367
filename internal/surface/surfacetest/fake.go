// Package surfacetest provides an in-memory Surface that simulates the
// product's review queue for tests.
package surfacetest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/catalog-steward/internal/model"
	"github.com/Veraticus/catalog-steward/internal/surface"
)

// Behavior scripts how the simulated product reacts to one item.
type Behavior struct {
	Banner            string // shown after approve; the item does not advance
	NotClickable      bool   // approve button cannot be clicked
	StallAfterApprove bool   // approve succeeds but the view does not move
	IgnoreApprove     bool   // approve is swallowed; the item stays pending and in view
	ProductFails      bool   // product assignment is refused
	RejectUnit        bool   // unit fields cannot be set
	StuckNavigation   bool   // forced navigation does not move off this item
	ReloadOnApprove   bool   // the page reloads onto the next item; the next read fails transiently
	StaleListing      bool   // already approved but still listed by the first filter that sees it
	RejectCategory    bool   // the category option cannot be found
	RejectLedger      bool   // the ledger code option cannot be found
}

// Item is one catalog item in the simulated product.
type Item struct {
	Snapshot model.ItemSnapshot
	Behavior Behavior
	deferred bool
	listed   bool
}

// Call records one operation invoked on the fake.
type Call struct {
	Op  string
	Arg string
}

type view int

const (
	viewList view = iota
	viewDetail
	viewComplete
	viewUnknown
	viewLibrary
)

// Surface is a scripted, in-memory surface.Surface. The review queue holds
// the pending items; the library holds every item searchable by description.
// Approving moves the view to the next item of the batch, and leaving the
// last item shows the batch completion indicator.
type Surface struct {
	failures  map[string][]error
	banner    string
	opened    *Item
	queue     []*Item
	batch     []*Item
	library   []*Item
	calls     []Call
	shots     []string
	cursor    int
	batchSize int
	view      view
	mu        sync.Mutex
	reloading bool
}

// New returns a fake whose review queue holds items, presented in batches of
// batchSize. A batchSize of zero presents everything as one batch. The fake
// starts on the list view.
func New(batchSize int, items ...*Item) *Surface {
	return &Surface{
		queue:     items,
		batchSize: batchSize,
		failures:  make(map[string][]error),
	}
}

// Pending builds a pending item with every required field filled in.
func Pending(description, vendor string) *Item {
	return &Item{Snapshot: model.ItemSnapshot{
		Description:   description,
		Vendor:        vendor,
		Category:      "Food Purchases",
		LedgerCode:    "5000",
		Unit:          model.UnitField{Label: "lb", Kind: model.UnitKindCombobox},
		InventoryUnit: model.UnitField{Label: "lb", Kind: model.UnitKindSelect},
		Size:          "1",
		HasProduct:    true,
	}}
}

// WithLibrary adds searchable items to the item library.
func (s *Surface) WithLibrary(items ...*Item) *Surface {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.library = append(s.library, items...)
	return s
}

// Open applies the pending filter and opens the first item, as an operator
// would before starting a run.
func (s *Surface) Open() *Surface {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refilter()
	if len(s.batch) > 0 {
		s.view = viewDetail
		s.cursor = 0
	}
	return s
}

// FailNext makes the next calls to op return the given errors, in order,
// before the operation runs normally again.
func (s *Surface) FailNext(op string, errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], errs...)
}

// ShowUnknownView puts the fake into a state InspectView cannot classify.
func (s *Surface) ShowUnknownView() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = viewUnknown
}

// Calls returns every recorded call.
func (s *Surface) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Count returns how many times op was called.
func (s *Surface) Count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Ops returns the recorded operation names in order.
func (s *Surface) Ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ops := make([]string, 0, len(s.calls))
	for _, c := range s.calls {
		ops = append(ops, c.Op)
	}
	return ops
}

// Screenshots returns the paths passed to Screenshot.
func (s *Surface) Screenshots() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.shots...)
}

// Item returns the queue or library item with the given description.
func (s *Surface) Item(description string) *Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range append(append([]*Item(nil), s.queue...), s.library...) {
		if it.Snapshot.Description == description {
			return it
		}
	}
	return nil
}

// Remaining returns how many queue items are still pending review.
func (s *Surface) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, it := range s.queue {
		if !it.Snapshot.Approved && !it.deferred {
			n++
		}
	}
	return n
}

func (s *Surface) record(op, arg string) error {
	s.calls = append(s.calls, Call{Op: op, Arg: arg})
	if errs := s.failures[op]; len(errs) > 0 {
		s.failures[op] = errs[1:]
		return errs[0]
	}
	return nil
}

func (s *Surface) current() *Item {
	switch s.view {
	case viewDetail:
		if s.cursor < len(s.batch) {
			return s.batch[s.cursor]
		}
	case viewLibrary:
		return s.opened
	}
	return nil
}

func (s *Surface) refilter() {
	s.batch = s.batch[:0]
	for _, it := range s.queue {
		if it.deferred || (it.Snapshot.Approved && (!it.Behavior.StaleListing || it.listed)) {
			continue
		}
		it.listed = true
		s.batch = append(s.batch, it)
		if s.batchSize > 0 && len(s.batch) == s.batchSize {
			break
		}
	}
	s.cursor = 0
	s.banner = ""
}

func (s *Surface) advance() bool {
	s.banner = ""
	if s.cursor+1 < len(s.batch) {
		s.cursor++
		return true
	}
	s.view = viewComplete
	return true
}

// ReadItem implements surface.Surface.
func (s *Surface) ReadItem(_ context.Context) (model.ItemSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("ReadItem", ""); err != nil {
		return model.ItemSnapshot{}, err
	}
	if s.reloading {
		s.reloading = false
		return model.ItemSnapshot{}, surface.Transient("read item", errors.New("execution context was destroyed"))
	}
	it := s.current()
	if it == nil {
		return model.ItemSnapshot{}, surface.NotFound("read item", errors.New("no item view"))
	}
	snap := it.Snapshot
	snap.Pending = !it.Snapshot.Approved
	snap.Banner = s.banner
	if s.view == viewDetail {
		snap.Position = model.Position{Current: s.cursor + 1, Total: len(s.batch)}
	}
	return snap, nil
}

// SetField implements surface.Surface.
func (s *Surface) SetField(_ context.Context, field surface.Field, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("SetField", string(field)+"="+value); err != nil {
		return false, err
	}
	it := s.current()
	if it == nil {
		return false, surface.NotFound("set field", errors.New("no item view"))
	}
	switch field {
	case surface.FieldSize:
		it.Snapshot.Size = value
	case surface.FieldUnit:
		if it.Behavior.RejectUnit {
			return false, nil
		}
		it.Snapshot.Unit.Label = value
	case surface.FieldInventoryUnit:
		if it.Behavior.RejectUnit {
			return false, nil
		}
		it.Snapshot.InventoryUnit.Label = value
	}
	return true, nil
}

// SetCategory implements surface.Surface.
func (s *Surface) SetCategory(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("SetCategory", name); err != nil {
		return false, err
	}
	it := s.current()
	if it == nil {
		return false, surface.NotFound("set category", errors.New("no item view"))
	}
	if it.Behavior.RejectCategory {
		return false, nil
	}
	it.Snapshot.Category = name
	return true, nil
}

// SetLedgerCode implements surface.Surface.
func (s *Surface) SetLedgerCode(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("SetLedgerCode", code); err != nil {
		return false, err
	}
	it := s.current()
	if it == nil {
		return false, surface.NotFound("set ledger code", errors.New("no item view"))
	}
	if it.Behavior.RejectLedger {
		return false, nil
	}
	it.Snapshot.LedgerCode = code
	return true, nil
}

// AssignOrCreateProduct implements surface.Surface.
func (s *Surface) AssignOrCreateProduct(_ context.Context, name string, hint model.UnitClass) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("AssignOrCreateProduct", name+"|"+string(hint)); err != nil {
		return false, err
	}
	it := s.current()
	if it == nil || it.Behavior.ProductFails {
		return false, nil
	}
	it.Snapshot.HasProduct = true
	return true, nil
}

// InvokeApprove implements surface.Surface.
func (s *Surface) InvokeApprove(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("InvokeApprove", ""); err != nil {
		return false, err
	}
	it := s.current()
	if it == nil || it.Behavior.NotClickable {
		return false, nil
	}
	switch {
	case it.Behavior.Banner != "":
		s.banner = it.Behavior.Banner
	case it.Behavior.IgnoreApprove:
	case it.Behavior.StallAfterApprove:
		it.Snapshot.Approved = true
	default:
		it.Snapshot.Approved = true
		s.advance()
		if it.Behavior.ReloadOnApprove {
			s.reloading = true
		}
	}
	return true, nil
}

// InvokeSave implements surface.Surface. Saving a blocked item defers it:
// the product keeps it out of the pending filter until a person fixes it.
func (s *Surface) InvokeSave(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("InvokeSave", ""); err != nil {
		return false, err
	}
	it := s.current()
	if it == nil {
		return false, nil
	}
	if s.view == viewDetail && !it.Snapshot.Approved {
		it.deferred = true
	}
	return true, nil
}

// ConfirmDialog implements surface.Surface. The fake never shows a prompt.
func (s *Surface) ConfirmDialog(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return false, s.record("ConfirmDialog", "")
}

// DismissDialogs implements surface.Surface.
func (s *Surface) DismissDialogs(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("DismissDialogs", ""); err != nil {
		return err
	}
	s.banner = ""
	return nil
}

// ForceAdvance implements surface.Surface.
func (s *Surface) ForceAdvance(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("ForceAdvance", ""); err != nil {
		return false, err
	}
	it := s.current()
	if it == nil || it.Behavior.StuckNavigation || s.view != viewDetail {
		return false, nil
	}
	if s.cursor+1 >= len(s.batch) {
		return false, nil
	}
	return s.advance(), nil
}

// WaitForChange implements surface.Surface. The fake never changes on its
// own, so it reports immediately.
func (s *Surface) WaitForChange(_ context.Context, prior model.ItemKey, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("WaitForChange", prior.Description); err != nil {
		return false, err
	}
	it := s.current()
	if it == nil {
		return true, nil
	}
	key := model.ItemKey{Description: it.Snapshot.Description, Position: s.cursor + 1}
	return key != prior, nil
}

// DetectBatchComplete implements surface.Surface.
func (s *Surface) DetectBatchComplete(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("DetectBatchComplete", ""); err != nil {
		return false, err
	}
	return s.view == viewComplete, nil
}

// DismissBatchComplete implements surface.Surface.
func (s *Surface) DismissBatchComplete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("DismissBatchComplete", ""); err != nil {
		return err
	}
	if s.view == viewComplete {
		s.view = viewList
	}
	return nil
}

// ApplyPendingFilter implements surface.Surface.
func (s *Surface) ApplyPendingFilter(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("ApplyPendingFilter", ""); err != nil {
		return err
	}
	s.refilter()
	s.view = viewList
	return nil
}

// OpenFirstPendingItem implements surface.Surface.
func (s *Surface) OpenFirstPendingItem(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("OpenFirstPendingItem", ""); err != nil {
		return false, err
	}
	if s.view != viewList || len(s.batch) == 0 {
		return false, nil
	}
	s.view = viewDetail
	s.cursor = 0
	return true, nil
}

// InspectView implements surface.Surface.
func (s *Surface) InspectView(_ context.Context) (surface.ViewKind, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("InspectView", ""); err != nil {
		return surface.ViewUnknown, err
	}
	switch s.view {
	case viewDetail, viewLibrary:
		return surface.ViewDetail, nil
	case viewList:
		return surface.ViewList, nil
	default:
		return surface.ViewUnknown, nil
	}
}

// OpenLibrary implements surface.Surface.
func (s *Surface) OpenLibrary(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("OpenLibrary", ""); err != nil {
		return err
	}
	s.opened = nil
	s.view = viewList
	return nil
}

// SearchItem implements surface.Surface. It opens the first library item
// whose description contains query, ignoring case.
func (s *Surface) SearchItem(_ context.Context, query string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("SearchItem", query); err != nil {
		return false, err
	}
	q := strings.ToLower(query)
	for _, it := range s.library {
		if strings.Contains(strings.ToLower(it.Snapshot.Description), q) {
			s.opened = it
			s.view = viewLibrary
			return true, nil
		}
	}
	return false, nil
}

// CloseItem implements surface.Surface.
func (s *Surface) CloseItem(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("CloseItem", ""); err != nil {
		return err
	}
	s.opened = nil
	s.view = viewList
	return nil
}

// Screenshot implements surface.Screenshotter.
func (s *Surface) Screenshot(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record("Screenshot", path); err != nil {
		return err
	}
	s.shots = append(s.shots, path)
	return nil
}

var (
	_ surface.Surface       = (*Surface)(nil)
	_ surface.Screenshotter = (*Surface)(nil)
)
