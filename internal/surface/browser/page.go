package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/Veraticus/catalog-steward/internal/common"
	"github.com/Veraticus/catalog-steward/internal/model"
	"github.com/Veraticus/catalog-steward/internal/surface"
)

// Fixed latencies of the product's widgets. Listboxes and search results
// render asynchronously after the triggering click or keystroke.
const (
	dropdownDelay  = 800 * time.Millisecond
	escapeDelay    = 300 * time.Millisecond
	productDelay   = 1500 * time.Millisecond
	unitDelay      = 500 * time.Millisecond
	filterDelay    = time.Second
	searchDelay    = 2 * time.Second
	listDelay      = 3 * time.Second
	actionTimeout  = 10 * time.Second
	searchFallback = 15
)

const (
	categoryTypeAhead   = 4
	categorySearchSel   = `input[placeholder="Search..."]`
	productInputSel     = `input[placeholder="Start typing to select a product"]`
	productUnitSel      = `input[placeholder="Select product unit"]`
	librarySearchSel    = `input[placeholder*="Search"]`
	defaultPollInterval = 500 * time.Millisecond
)

var errNoItemView = errors.New("no item view is open")

// Page drives one product tab. It implements surface.Surface and
// surface.Screenshotter.
type Page struct {
	page *rod.Page
	opts Options
}

var (
	_ surface.Surface       = (*Page)(nil)
	_ surface.Screenshotter = (*Page)(nil)
)

func newPage(p *rod.Page, opts Options) *Page {
	return &Page{page: p, opts: opts}
}

func (p *Page) eval(ctx context.Context, op, js string, args ...interface{}) (*proto.RuntimeRemoteObject, error) {
	res, err := p.page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           js,
		JSArgs:       args,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return nil, classify(op, err)
	}
	return res, nil
}

func (p *Page) evalBool(ctx context.Context, op, js string, args ...interface{}) (bool, error) {
	res, err := p.eval(ctx, op, js, args...)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (p *Page) evalInto(ctx context.Context, op, js string, out any, args ...interface{}) error {
	res, err := p.eval(ctx, op, js, args...)
	if err != nil {
		return err
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return surface.Unavailable(op, fmt.Errorf("marshal result: %w", err))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return surface.Unavailable(op, fmt.Errorf("decode result: %w", err))
	}
	return nil
}

// typeInto replaces the text of the input matching selector.
func (p *Page) typeInto(ctx context.Context, op, selector, text string) error {
	actx, cancel := context.WithTimeout(ctx, actionTimeout)
	defer cancel()

	has, el, err := p.page.Context(actx).Has(selector)
	if err != nil {
		return classify(op, err)
	}
	if !has {
		return surface.NotFound(op, fmt.Errorf("no element matches %s", selector))
	}
	if err := el.SelectAllText(); err != nil {
		return classify(op, err)
	}
	if err := el.Input(text); err != nil {
		return classify(op, err)
	}
	return nil
}

func (p *Page) press(op string, key input.Key) error {
	if err := p.page.Keyboard.Press(key); err != nil {
		return classify(op, err)
	}
	return nil
}

func (p *Page) pause(ctx context.Context, op string, d time.Duration) error {
	if err := common.Sleep(ctx, d); err != nil {
		return surface.Unavailable(op, err)
	}
	return nil
}

// waitForDetail polls until an item view is open.
func (p *Page) waitForDetail(ctx context.Context, op string) error {
	opened, err := common.Poll(ctx, p.pollInterval(), p.opts.Timing.NavigationWait, func(ctx context.Context) (bool, error) {
		view, err := p.InspectView(ctx)
		if err != nil {
			if surface.IsTransient(err) {
				return false, nil
			}
			return false, err
		}
		return view == surface.ViewDetail, nil
	})
	if err != nil {
		return classify(op, err)
	}
	if !opened {
		return surface.NotFound(op, errors.New("item view did not open"))
	}
	return nil
}

func (p *Page) pollInterval() time.Duration {
	if p.opts.Timing.PollInterval > 0 {
		return p.opts.Timing.PollInterval
	}
	return defaultPollInterval
}

func (p *Page) navigate(ctx context.Context, op, url string) error {
	nctx := ctx
	if wait := p.opts.Timing.NavigationWait; wait > 0 {
		var cancel context.CancelFunc
		nctx, cancel = context.WithTimeout(ctx, 2*wait)
		defer cancel()
	}
	page := p.page.Context(nctx)
	if err := page.Navigate(url); err != nil {
		return classify(op, err)
	}
	if err := page.WaitLoad(); err != nil {
		return classify(op, err)
	}
	return p.pause(ctx, op, listDelay)
}

// ReadItem implements surface.Surface.
func (p *Page) ReadItem(ctx context.Context) (model.ItemSnapshot, error) {
	var st itemState
	if err := p.evalInto(ctx, "read item", readItemJS, &st); err != nil {
		return model.ItemSnapshot{}, err
	}
	if !st.Found {
		return model.ItemSnapshot{}, surface.NotFound("read item", errNoItemView)
	}
	return st.snapshot(), nil
}

// SetField implements surface.Surface.
func (p *Page) SetField(ctx context.Context, field surface.Field, value string) (bool, error) {
	switch field {
	case surface.FieldSize:
		return p.evalBool(ctx, "set size", setSizeJS, value)
	case surface.FieldUnit:
		return p.setUnit(ctx, "set unit", "unit", value)
	case surface.FieldInventoryUnit:
		return p.setUnit(ctx, "set inventory unit", "inventory", value)
	default:
		return false, surface.Unavailable("set field", fmt.Errorf("unknown field %q", field))
	}
}

// setUnit prefers the combobox rendering of a unit field and falls back to a
// native select.
func (p *Page) setUnit(ctx context.Context, op, field, value string) (bool, error) {
	isCombo, err := p.evalBool(ctx, op, hasComboJS, field)
	if err != nil {
		return false, err
	}
	if isCombo {
		return p.selectCombo(ctx, op, field, value, true, "")
	}
	return p.evalBool(ctx, op, setSelectJS, field, value)
}

// selectCombo opens a combobox, optionally narrows it by typing, and clicks
// the matching option. A missing option closes the listbox again.
func (p *Page) selectCombo(ctx context.Context, op, field, value string, exact bool, typeAhead string) (bool, error) {
	opened, err := p.evalBool(ctx, op, openComboJS, field)
	if err != nil || !opened {
		return false, err
	}
	if err := p.pause(ctx, op, dropdownDelay); err != nil {
		return false, err
	}

	if typeAhead != "" {
		err := p.typeInto(ctx, op, categorySearchSel, typeAhead)
		switch {
		case surface.IsNotFound(err):
			slog.Debug("Listbox has no search input", "field", field)
		case err != nil:
			return false, err
		default:
			if err := p.pause(ctx, op, dropdownDelay); err != nil {
				return false, err
			}
		}
	}

	picked, err := p.evalBool(ctx, op, pickOptionJS, value, exact)
	if err != nil {
		return false, err
	}
	if !picked {
		slog.Warn("Option not found", "field", field, "value", value)
		if err := p.press(op, input.Escape); err != nil {
			return false, err
		}
		return false, p.pause(ctx, op, escapeDelay)
	}
	return true, nil
}

// SetCategory implements surface.Surface.
func (p *Page) SetCategory(ctx context.Context, name string) (bool, error) {
	return p.selectCombo(ctx, "set category", "category", name, false, prefix(name, categoryTypeAhead))
}

// SetLedgerCode implements surface.Surface.
func (p *Page) SetLedgerCode(ctx context.Context, code string) (bool, error) {
	return p.evalBool(ctx, "set ledger code", setLedgerJS, code)
}

// AssignOrCreateProduct implements surface.Surface. An existing product
// offered by the search wins; otherwise a new one is added with hint as its
// unit family.
func (p *Page) AssignOrCreateProduct(ctx context.Context, name string, hint model.UnitClass) (bool, error) {
	const op = "assign product"

	if err := p.typeInto(ctx, op, productInputSel, name); err != nil {
		if surface.IsNotFound(err) {
			slog.Warn("Product input not found")
			return false, nil
		}
		return false, err
	}
	if err := p.pause(ctx, op, productDelay); err != nil {
		return false, err
	}

	existing, err := p.evalBool(ctx, op, pickFirstOptionJS)
	if err != nil {
		return false, err
	}
	if existing {
		slog.Debug("Assigned existing product", "product", name)
		return true, nil
	}

	added, err := p.evalBool(ctx, op, clickAddProductJS, name)
	if err != nil || !added {
		return false, err
	}
	if err := p.pause(ctx, op, productDelay); err != nil {
		return false, err
	}

	if hint != "" {
		if err := p.setFamilyUnit(ctx, op, string(hint)); err != nil {
			return false, err
		}
	}

	created, err := p.evalBool(ctx, op, clickButtonJS, []string{"Add Product"})
	if err != nil {
		return false, err
	}
	if created {
		slog.Debug("Created product", "product", name, "unit_family", hint)
	}
	return created, nil
}

func (p *Page) setFamilyUnit(ctx context.Context, op, unit string) error {
	has, el, err := p.page.Context(ctx).Has(productUnitSel)
	if err != nil {
		return classify(op, err)
	}
	if !has {
		return nil
	}
	current, err := el.Property("value")
	if err != nil {
		return classify(op, err)
	}
	if strings.EqualFold(strings.TrimSpace(current.Str()), unit) {
		return nil
	}

	if err := p.typeInto(ctx, op, productUnitSel, unit); err != nil {
		return err
	}
	if err := p.pause(ctx, op, unitDelay); err != nil {
		return err
	}
	picked, err := p.evalBool(ctx, op, pickExactOptionJS, unit)
	if err != nil {
		return err
	}
	if !picked {
		slog.Warn("Product unit family not offered", "unit", unit)
		return nil
	}
	return p.pause(ctx, op, unitDelay)
}

// InvokeApprove implements surface.Surface.
func (p *Page) InvokeApprove(ctx context.Context) (bool, error) {
	return p.evalBool(ctx, "approve", clickButtonJS, []string{"Approve"})
}

// InvokeSave implements surface.Surface.
func (p *Page) InvokeSave(ctx context.Context) (bool, error) {
	saved, err := p.evalBool(ctx, "save", clickButtonJS, []string{"Save Changes", "Save"})
	if err != nil || !saved {
		return saved, err
	}
	return true, p.pause(ctx, "save", p.opts.Timing.AfterAction)
}

// ConfirmDialog implements surface.Surface. "Yes" is preferred over "No".
func (p *Page) ConfirmDialog(ctx context.Context) (bool, error) {
	for _, answer := range []string{"Yes", "No"} {
		clicked, err := p.evalBool(ctx, "confirm dialog", clickButtonJS, []string{answer})
		if err != nil {
			return false, err
		}
		if clicked {
			return true, p.pause(ctx, "confirm dialog", p.opts.Timing.AfterAction)
		}
	}
	return false, nil
}

// DismissDialogs implements surface.Surface.
func (p *Page) DismissDialogs(ctx context.Context) error {
	res, err := p.eval(ctx, "dismiss dialogs", dismissDialogsJS)
	if err != nil {
		return err
	}
	if n := res.Value.Int(); n > 0 {
		slog.Debug("Dismissed dialogs", "count", n)
	}
	if err := p.press("dismiss dialogs", input.Escape); err != nil {
		return err
	}
	return p.pause(ctx, "dismiss dialogs", escapeDelay)
}

// ForceAdvance implements surface.Surface. When no next control is visible
// the right arrow key is sent and false is returned.
func (p *Page) ForceAdvance(ctx context.Context) (bool, error) {
	const op = "force advance"

	clicked, err := p.evalBool(ctx, op, clickNextJS)
	if err != nil {
		return false, err
	}
	if clicked {
		return true, p.pause(ctx, op, p.opts.Timing.ApprovalSettle)
	}

	slog.Debug("No next control, trying keyboard navigation")
	if err := p.press(op, input.ArrowRight); err != nil {
		return false, err
	}
	return false, p.pause(ctx, op, p.opts.Timing.AfterAction)
}

// WaitForChange implements surface.Surface. Errors other than a reload are
// treated as a page still settling and polling continues.
func (p *Page) WaitForChange(ctx context.Context, prior model.ItemKey, maxWait time.Duration) (bool, error) {
	const op = "wait for change"

	changed, err := common.Poll(ctx, p.pollInterval(), maxWait, func(ctx context.Context) (bool, error) {
		var st keyState
		if err := p.evalInto(ctx, op, itemKeyJS, &st); err != nil {
			if surface.IsTransient(err) || ctx.Err() != nil {
				return false, err
			}
			slog.Debug("Check failed while waiting for navigation", "error", err)
			return false, nil
		}
		return st.movedFrom(prior), nil
	})
	if err != nil {
		return false, classify(op, err)
	}
	if !changed {
		slog.Warn("Timed out waiting for the item to change", "item", prior.Description, "waited", maxWait)
	}
	return changed, nil
}

// DetectBatchComplete implements surface.Surface.
func (p *Page) DetectBatchComplete(ctx context.Context) (bool, error) {
	return p.evalBool(ctx, "detect batch complete", reviewCompleteJS)
}

// DismissBatchComplete implements surface.Surface.
func (p *Page) DismissBatchComplete(ctx context.Context) error {
	clicked, err := p.evalBool(ctx, "dismiss batch complete", dismissCompleteJS)
	if err != nil {
		return err
	}
	if !clicked {
		slog.Debug("No batch complete dialog to dismiss")
		return nil
	}
	return p.pause(ctx, "dismiss batch complete", listDelay)
}

// ApplyPendingFilter implements surface.Surface. It reloads the item library
// and narrows it to items still to review.
func (p *Page) ApplyPendingFilter(ctx context.Context) error {
	const op = "apply pending filter"

	if err := p.OpenLibrary(ctx); err != nil {
		return err
	}

	opened, err := p.evalBool(ctx, op, openFiltersJS)
	if err != nil {
		return err
	}
	if !opened {
		slog.Warn("Filter panel not found, list is unfiltered")
		return nil
	}
	if err := p.pause(ctx, op, filterDelay); err != nil {
		return err
	}

	checked, err := p.evalBool(ctx, op, checkPendingFilterJS)
	if err != nil {
		return err
	}
	if !checked {
		slog.Warn("To Review filter not found")
	}
	if err := p.pause(ctx, op, unitDelay); err != nil {
		return err
	}

	if _, err := p.evalBool(ctx, op, applyFiltersJS); err != nil {
		return err
	}
	return p.pause(ctx, op, searchDelay)
}

// OpenFirstPendingItem implements surface.Surface.
func (p *Page) OpenFirstPendingItem(ctx context.Context) (bool, error) {
	const op = "open first pending item"

	clicked, err := p.evalBool(ctx, op, openFirstPendingJS)
	if err != nil || !clicked {
		return false, err
	}
	if err := p.waitForDetail(ctx, op); err != nil {
		return false, err
	}
	return true, nil
}

// InspectView implements surface.Surface. The batch complete dialog reports
// as unknown so callers reload the list.
func (p *Page) InspectView(ctx context.Context) (surface.ViewKind, error) {
	res, err := p.eval(ctx, "inspect view", inspectViewJS)
	if err != nil {
		return surface.ViewUnknown, err
	}
	return viewKind(res.Value.Str()), nil
}

// OpenLibrary implements surface.Surface.
func (p *Page) OpenLibrary(ctx context.Context) error {
	return p.navigate(ctx, "open library", p.opts.Product.ItemLibraryURL)
}

// SearchItem implements surface.Surface. The row whose cell equals query is
// opened, or failing that the first row containing its opening characters.
func (p *Page) SearchItem(ctx context.Context, query string) (bool, error) {
	const op = "search item"

	if err := p.typeInto(ctx, op, librarySearchSel, query); err != nil {
		return false, err
	}
	if err := p.pause(ctx, op, searchDelay); err != nil {
		return false, err
	}

	clicked, err := p.evalBool(ctx, op, openSearchRowJS, query, prefix(query, searchFallback))
	if err != nil || !clicked {
		return false, err
	}
	if err := p.waitForDetail(ctx, op); err != nil {
		return false, err
	}
	return true, nil
}

// CloseItem implements surface.Surface. Without a close control the library
// is reloaded instead.
func (p *Page) CloseItem(ctx context.Context) error {
	const op = "close item"

	clicked, err := p.evalBool(ctx, op, closeItemJS)
	if err != nil {
		return err
	}
	if clicked {
		return p.pause(ctx, op, searchDelay)
	}
	return p.OpenLibrary(ctx)
}

// Screenshot implements surface.Screenshotter.
func (p *Page) Screenshot(ctx context.Context, path string) error {
	data, err := p.page.Context(ctx).Screenshot(true, nil)
	if err != nil {
		return classify("screenshot", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create screenshot directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	return nil
}
