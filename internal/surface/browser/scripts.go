package browser

// The product renders its forms with a component library that hides native
// controls behind comboboxes. Everything below works from what the product
// shows: ids, placeholders, aria labels and visible text.

const helpers = `
	const norm = s => (s || '').trim().toLowerCase();
	const attrs = el => [el.getAttribute('hint'), el.getAttribute('aria-label')].map(norm);
	const combo = match => Array.from(document.querySelectorAll('button[role="combobox"]'))
		.find(b => attrs(b).some(match));
	const isCategory = a => a.includes('category');
	const isUnit = a => a === 'unit';
	const isInventory = a => a.includes('inventory');
	const options = () => Array.from(document.querySelectorAll('li[role="option"], div[role="option"]'));
	const buttons = () => Array.from(document.querySelectorAll('button'));
	const buttonByText = (...texts) => buttons().find(b => texts.includes(b.textContent.trim()));
	const labelled = (names, selector) => {
		for (const label of document.querySelectorAll('label, span, div')) {
			if (!names.includes(norm(label.textContent))) continue;
			const box = label.closest('div');
			const el = box && box.querySelector(selector);
			if (el) return el;
		}
		return null;
	};
	const unitSelects = () => {
		let unit = null, inventory = null;
		for (const sel of document.querySelectorAll('select')) {
			const id = norm(sel.id), name = norm(sel.name);
			if (id.includes('unit') && !id.includes('inv')) unit = sel;
			else if (id.includes('inventory') || id.includes('inv_unit') || id.includes('invunit')) inventory = sel;
			else if (name.includes('unit') && !name.includes('inventory')) unit = sel;
			else if (name.includes('inventory')) inventory = sel;
		}
		if (!unit && !inventory) {
			unit = labelled(['unit', 'unit*'], 'select');
			inventory = labelled(['inventory unit', 'inventory unit*'], 'select');
		}
		return { unit, inventory };
	};
	const sizeInput = () => document.getElementById('size') ||
		document.querySelector('input[name="size"]') ||
		labelled(['size', 'size*'], 'input[type="text"], input[type="number"], input:not([type])');
	const setValue = (el, value) => {
		const setter = Object.getOwnPropertyDescriptor(window.HTMLInputElement.prototype, 'value').set;
		setter.call(el, value);
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
	};
	const reviewComplete = () => {
		const dialogs = document.querySelectorAll('[role="dialog"], .modal, [class*="modal"], [class*="dialog"]');
		for (const d of dialogs) {
			if (d.textContent.includes('Review complete')) return true;
		}
		const library = buttons().find(b => b.textContent.includes('View item library'));
		return !!library && document.body.innerText.includes('Review complete');
	};
`

func script(params, body string) string {
	return "(" + params + ") => {" + helpers + body + "}"
}

var (
	readItemJS = script("", `
		const desc = document.getElementById('item_description');
		const gl = document.getElementById('gl_code');
		const selects = unitSelects();
		const unitField = (button, select) => {
			if (button) return { label: button.textContent.trim(), kind: 'combobox' };
			if (select) {
				const opt = select.options[select.selectedIndex];
				return { label: (opt && opt.text) || select.value || '', kind: 'select' };
			}
			return { label: '', kind: 'none' };
		};
		const category = combo(isCategory);
		const size = sizeInput();
		const spans = Array.from(document.querySelectorAll('span'));
		const checks = Array.from(document.querySelectorAll('p, span, div'))
			.filter(el => el.textContent.includes('Check your work'));
		return {
			found: !!desc,
			description: desc ? desc.value : '',
			ledgerCode: gl ? gl.value : '',
			category: category ? category.textContent.trim() : '',
			unit: unitField(combo(isUnit), selects.unit),
			inventoryUnit: unitField(combo(isInventory), selects.inventory),
			size: size ? size.value : '',
			hasProduct: spans.some(s => s.textContent.trim() === 'View product'),
			approved: spans.some(s => s.textContent.includes('APPROVED')),
			pending: spans.some(s => s.textContent.trim() === 'TO REVIEW'),
			checkWork: checks.length ? checks[checks.length - 1].textContent.trim() : '',
			text: document.body.innerText,
		};
	`)

	// itemKeyJS is the cheap read used while polling for navigation.
	itemKeyJS = script("", `
		const desc = document.getElementById('item_description');
		return {
			found: !!desc,
			description: desc ? desc.value : '',
			text: document.body.innerText,
			complete: reviewComplete(),
		};
	`)

	setSizeJS = script("value", `
		const el = sizeInput();
		if (!el) return false;
		setValue(el, value);
		return true;
	`)

	setLedgerJS = script("value", `
		const el = document.getElementById('gl_code');
		if (!el) return false;
		setValue(el, value);
		return true;
	`)

	// openComboJS clicks the combobox for field: "category", "unit" or "inventory".
	openComboJS = script("field", `
		const match = { category: isCategory, unit: isUnit, inventory: isInventory }[field];
		const btn = match && combo(match);
		if (!btn) return false;
		btn.click();
		return true;
	`)

	hasComboJS = script("field", `
		const match = { category: isCategory, unit: isUnit, inventory: isInventory }[field];
		return !!(match && combo(match));
	`)

	// pickOptionJS clicks the open listbox option equal to value, then one
	// containing it. With exact false only containment is tried.
	pickOptionJS = script("value, exact", `
		const want = norm(value);
		const opts = options();
		let match = exact ? opts.find(o => norm(o.textContent) === want) : null;
		if (!match) match = opts.find(o => norm(o.textContent).includes(want));
		if (!match) return false;
		match.click();
		return true;
	`)

	pickExactOptionJS = script("value", `
		const match = options().find(o => norm(o.textContent) === norm(value));
		if (!match) return false;
		match.click();
		return true;
	`)

	pickFirstOptionJS = script("", `
		const opts = options();
		if (!opts.length) return false;
		opts[0].click();
		return true;
	`)

	// setSelectJS sets the native select for field ("unit" or "inventory")
	// by option text or value.
	setSelectJS = script("field, value", `
		const sel = unitSelects()[field];
		if (!sel) return false;
		const want = norm(value);
		const opt = Array.from(sel.options).find(o => norm(o.text) === want || norm(o.value) === want) ||
			Array.from(sel.options).find(o => norm(o.text).includes(want));
		if (!opt) return false;
		sel.value = opt.value;
		sel.dispatchEvent(new Event('change', { bubbles: true }));
		sel.dispatchEvent(new Event('input', { bubbles: true }));
		return true;
	`)

	clickAddProductJS = script("name", `
		const all = buttons();
		const btn = all.find(b => norm(b.textContent).includes('add "' + norm(name) + '"')) ||
			all.find(b => norm(b.textContent).includes('add "'));
		if (!btn) return false;
		btn.click();
		return true;
	`)

	// clickButtonJS clicks the first button whose trimmed text is one of texts.
	clickButtonJS = script("texts", `
		const btn = buttonByText(...texts);
		if (!btn) return false;
		btn.click();
		return true;
	`)

	dismissDialogsJS = script("", `
		let clicked = 0;
		for (const d of document.querySelectorAll('[role="dialog"], [role="alertdialog"]')) {
			const btn = Array.from(d.querySelectorAll('button'))
				.find(b => ['ok', 'close', 'dismiss', 'cancel'].includes(norm(b.textContent)) ||
					norm(b.getAttribute('aria-label')) === 'close');
			if (btn) { btn.click(); clicked++; }
		}
		return clicked;
	`)

	clickNextJS = script("", `
		const candidates = Array.from(document.querySelectorAll('button, a, span'));
		let next = candidates.find(el => {
			const label = norm(el.getAttribute('aria-label'));
			return label.includes('next') || label.includes('forward');
		});
		if (!next) {
			const arrows = ['›', '→', '>', 'chevron_right', 'navigate_next', 'arrow_forward'];
			next = candidates.find(el => arrows.includes(el.textContent.trim()));
		}
		if (!next) {
			const nav = buttons().filter(b => b.querySelector('svg') &&
				b.closest('[class*="nav"], [class*="arrow"], [class*="pagination"]'));
			if (nav.length >= 2) next = nav[1];
		}
		if (!next) return false;
		next.click();
		return true;
	`)

	reviewCompleteJS = script("", `return reviewComplete();`)

	dismissCompleteJS = script("", `
		const btn = buttons().find(b => b.textContent.includes('View item library'));
		if (!btn) return false;
		btn.click();
		return true;
	`)

	openFiltersJS = script("", `
		const btn = buttons().find(b => b.textContent.includes('More Filters') || b.textContent.includes('more_filters'));
		if (!btn) return false;
		btn.click();
		return true;
	`)

	checkPendingFilterJS = script("", `
		const label = Array.from(document.querySelectorAll('label, span'))
			.find(l => l.textContent.trim() === 'To Review');
		if (!label) return false;
		const wrapper = label.closest('label');
		const box = (wrapper && wrapper.querySelector('input[type="checkbox"]')) || label.previousElementSibling;
		if (box && box.checked) return true;
		(box || label).click();
		return true;
	`)

	applyFiltersJS = script("", `
		const btn = buttons().find(b => b.textContent.includes('Apply'));
		if (!btn) return false;
		btn.click();
		return true;
	`)

	openFirstPendingJS = script("", `
		const row = Array.from(document.querySelectorAll('tr')).find(r => r.textContent.includes('TO REVIEW'));
		if (!row) return false;
		row.click();
		return true;
	`)

	// openSearchRowJS clicks the row with a cell equal to query, falling back
	// to a row containing its first characters.
	openSearchRowJS = script("query, partial", `
		const rows = Array.from(document.querySelectorAll('tr'));
		let row = rows.find(r => Array.from(r.querySelectorAll('td'))
			.some(c => norm(c.textContent) === norm(query)));
		if (!row) row = rows.find(r => norm(r.textContent).includes(norm(partial)));
		if (!row) return false;
		row.click();
		return true;
	`)

	closeItemJS = script("", `
		let btn = document.querySelector('button[aria-label="Close"], button[aria-label="close"]');
		if (!btn) btn = buttons().find(b => ['×', 'X', 'close', '✕'].includes(b.textContent.trim()));
		if (!btn) {
			btn = Array.from(document.querySelectorAll('button, a')).find(el => {
				const label = norm(el.getAttribute('aria-label'));
				return label.includes('back') || label.includes('close');
			});
		}
		if (!btn) return false;
		btn.click();
		return true;
	`)

	inspectViewJS = script("", `
		if (document.getElementById('item_description')) return 'detail';
		if (reviewComplete()) return 'complete';
		if (document.querySelector('table tr, [role="grid"], [role="table"]')) return 'list';
		return 'unknown';
	`)
)
