// File: internal/browser/scripts.go
package browser

// clickScript resolves a target descriptor and clicks the first match in
// document order. A CSS selector is tried literally first; text matching
// prefers exact over partial, visible elements only. Returns true on success.
const clickScript = `
(function(target) {
    const visible = (el) => {
        const rect = el.getBoundingClientRect();
        const style = window.getComputedStyle(el);
        return rect.width > 0 && rect.height > 0 &&
            style.display !== 'none' && style.visibility !== 'hidden' && style.opacity !== '0';
    };
    const fire = (el) => {
        el.scrollIntoView({block: 'center', inline: 'center'});
        el.click();
        return true;
    };

    // 1. Literal CSS selector.
    try {
        const el = document.querySelector(target);
        if (el && visible(el)) return fire(el);
    } catch (e) { /* not a valid selector, fall through to text matching */ }

    // 2. Accessible-text match over interactable elements, document order.
    const candidates = document.querySelectorAll(
        'a, button, input, [role="button"], [role="checkbox"], [role="link"], [onclick], label, summary');
    const needle = target.trim().toLowerCase();
    let exact = null, partial = null;
    for (const el of candidates) {
        if (!visible(el)) continue;
        const text = (el.innerText || el.value || el.getAttribute('aria-label') || '').trim();
        if (!text) continue;
        if (text.toLowerCase() === needle) { exact = exact || el; break; }
        if (text.toLowerCase().includes(needle)) { partial = partial || el; }
    }
    const hit = exact || partial;
    return hit ? fire(hit) : false;
})(%s);
`

// fillScript resolves an input field and sets its value, dispatching the
// input/change events frameworks listen for. Resolution order: CSS selector,
// placeholder/name/aria-label text, then the first visible text input.
// Returns true on success.
const fillScript = `
(function(target, text) {
    const visible = (el) => {
        const rect = el.getBoundingClientRect();
        const style = window.getComputedStyle(el);
        return rect.width > 0 && rect.height > 0 &&
            style.display !== 'none' && style.visibility !== 'hidden';
    };
    const fill = (el) => {
        el.scrollIntoView({block: 'center', inline: 'center'});
        el.focus();
        const proto = el instanceof HTMLTextAreaElement
            ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
        const setter = Object.getOwnPropertyDescriptor(proto, 'value');
        if (setter && setter.set) { setter.set.call(el, text); } else { el.value = text; }
        el.dispatchEvent(new Event('input', {bubbles: true}));
        el.dispatchEvent(new Event('change', {bubbles: true}));
        return true;
    };
    const fillable = (el) => el && visible(el) &&
        (el instanceof HTMLInputElement || el instanceof HTMLTextAreaElement);

    // 1. Literal CSS selector.
    try {
        const el = document.querySelector(target);
        if (fillable(el)) return fill(el);
    } catch (e) { /* not a valid selector */ }

    // 2. Placeholder, name, or label text.
    const needle = target.trim().toLowerCase();
    for (const el of document.querySelectorAll('input, textarea')) {
        if (!fillable(el)) continue;
        const hints = [el.placeholder, el.name, el.getAttribute('aria-label')];
        if (hints.some(h => h && h.trim().toLowerCase().includes(needle))) return fill(el);
    }

    // 3. Last resort: first visible text-entry field.
    for (const el of document.querySelectorAll(
            'input[type="text"], input[type="search"], input:not([type]), textarea')) {
        if (fillable(el)) return fill(el);
    }
    return false;
})(%s, %s);
`
