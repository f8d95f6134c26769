package chromedriver

import (
	"encoding/json"
	"fmt"

	"github.com/forgo/admin-e2e/internal/browser"
)

// resolver is a JavaScript expression prefix. Applied to a JSON step list it
// evaluates to the array of matched elements.
const resolver = `((steps) => {
	const norm = (s) => (s || '').replace(/\s+/g, ' ').trim();
	const textMatch = (t, v) => {
		t = norm(t);
		if (v.length >= 2 && v.startsWith('"') && v.endsWith('"')) return t === v.slice(1, -1);
		return t.toLowerCase().includes(norm(v).toLowerCase());
	};
	const textOf = (el) => el.innerText ?? el.textContent;
	let cur = [document];
	for (const s of steps) {
		const out = [];
		if (s.kind === 'css') {
			for (const root of cur) for (const el of root.querySelectorAll(s.value)) if (!out.includes(el)) out.push(el);
		} else if (s.kind === 'text') {
			for (const root of cur) for (const el of root.querySelectorAll('*')) {
				if (out.includes(el) || !textMatch(textOf(el), s.value)) continue;
				if ([...el.children].some((c) => textMatch(textOf(c), s.value))) continue;
				out.push(el);
			}
		} else if (s.kind === 'nth') {
			if (cur[s.index]) out.push(cur[s.index]);
		}
		cur = out;
	}
	return cur;
})`

// observe evaluates to the observation object for the first match
const observe = `((els) => {
	const e = els[0];
	const visible = (el) => {
		if (!el || !el.isConnected) return false;
		const style = getComputedStyle(el);
		if (style.visibility === 'hidden' || style.display === 'none') return false;
		return !!(el.offsetWidth || el.offsetHeight || el.getClientRects().length);
	};
	return {
		count: els.length,
		text: e ? (e.innerText ?? e.textContent ?? '') : '',
		value: e && 'value' in e ? String(e.value) : '',
		visible: visible(e),
		url: location.href,
	};
})`

// holds evaluates to the observation when it satisfies the condition and
// to null otherwise
const holds = `((obs, c) => {
	const norm = (s) => (s || '').replace(/\s+/g, ' ').trim();
	let ok = false;
	switch (c.kind) {
	case %d: ok = obs.count === c.count; break;
	case %d: ok = obs.count > 0 && norm(obs.text) === norm(c.text); break;
	case %d: ok = obs.count > 0 && norm(obs.text).includes(norm(c.text)); break;
	case %d: ok = obs.count > 0 && obs.value === c.text; break;
	case %d: ok = obs.count > 0 && obs.visible; break;
	case %d: ok = obs.url.includes(c.text); break;
	case %d: ok = !obs.url.includes(c.text); break;
	}
	return ok ? obs : null;
})`

type jsStep struct {
	Kind  string `json:"kind"`
	Value string `json:"value,omitempty"`
	Index int    `json:"index"`
}

type jsCondition struct {
	Kind  int    `json:"kind"`
	Count int    `json:"count"`
	Text  string `json:"text"`
}

// observation mirrors browser.Observation on the JavaScript side
type observation struct {
	Count   int    `json:"count"`
	Text    string `json:"text"`
	Value   string `json:"value"`
	Visible bool   `json:"visible"`
	URL     string `json:"url"`
}

func (o observation) toBrowser() browser.Observation {
	return browser.Observation{
		Count:   o.Count,
		Text:    browser.NormalizeText(o.Text),
		Value:   o.Value,
		Visible: o.Visible,
		URL:     o.URL,
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func stepsJSON(sel browser.Selector) string {
	steps := make([]jsStep, 0, len(sel.Steps()))
	for _, s := range sel.Steps() {
		switch s.Kind {
		case browser.StepCSS:
			steps = append(steps, jsStep{Kind: "css", Value: s.Value})
		case browser.StepText:
			steps = append(steps, jsStep{Kind: "text", Value: s.Value})
		case browser.StepNth:
			steps = append(steps, jsStep{Kind: "nth", Index: s.Index})
		}
	}
	return mustJSON(steps)
}

// elements evaluates to the matched element array
func elements(sel browser.Selector) string {
	return fmt.Sprintf("%s(%s)", resolver, stepsJSON(sel))
}

// countScript evaluates to the number of matches
func countScript(sel browser.Selector) string {
	return elements(sel) + ".length"
}

// observeScript evaluates to the observation for sel
func observeScript(sel browser.Selector) string {
	return fmt.Sprintf("%s(%s)", observe, elements(sel))
}

// awaitScript evaluates to the observation once cond holds, else null
func awaitScript(sel browser.Selector, cond browser.Condition) string {
	check := fmt.Sprintf(holds,
		browser.CondCount, browser.CondText, browser.CondContainsText, browser.CondValue,
		browser.CondVisible, browser.CondURLContains, browser.CondURLNotContains)
	c := jsCondition{Kind: int(cond.Kind), Count: cond.Count, Text: cond.Text}
	return fmt.Sprintf("%s(%s, %s)", check, observeScript(sel), mustJSON(c))
}

// pointScript scrolls the first match into view and evaluates to its
// center, or null while it is missing or has no box
func pointScript(sel browser.Selector) string {
	return fmt.Sprintf(`((els) => {
	const e = els[0];
	if (!e) return null;
	e.scrollIntoView({block: 'center', inline: 'center'});
	const r = e.getBoundingClientRect();
	if (!r.width && !r.height) return null;
	return {x: r.left + r.width / 2, y: r.top + r.height / 2};
})(%s)`, elements(sel))
}

// fillScript sets the value of the first match through the native setter so
// frameworks observing input events see the change
func fillScript(sel browser.Selector, value string) string {
	return fmt.Sprintf(`((els, v) => {
	const e = els[0];
	if (!e) return false;
	e.focus();
	const proto = e instanceof HTMLTextAreaElement ? HTMLTextAreaElement.prototype
		: e instanceof HTMLSelectElement ? HTMLSelectElement.prototype : HTMLInputElement.prototype;
	Object.getOwnPropertyDescriptor(proto, 'value').set.call(e, v);
	e.dispatchEvent(new Event('input', {bubbles: true}));
	e.dispatchEvent(new Event('change', {bubbles: true}));
	return true;
})(%s, %s)`, elements(sel), mustJSON(value))
}
