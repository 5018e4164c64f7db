package browser

import "encoding/json"

// autoAttr is the attribute node snapshots write so mutation scripts can
// re-resolve an exact element later. It is separate from dom.MarkerAttr,
// which carries the externally visible resolution handle.
const autoAttr = "data-applypilot-node"

// candidateSelector matches the interactive controls field discovery
// considers.
const candidateSelector = `input, textarea, select, [contenteditable="true"], [role="textbox"]`

// jsArg encodes a value for safe injection into a script template.
func jsArg(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// frameHelpers resolves a document from a path of iframe indexes. Frames
// that cannot be read (cross-origin) resolve to null.
const frameHelpers = `
    function docFor(path) {
        let doc = document;
        for (const idx of path) {
            const iframes = doc.querySelectorAll('iframe');
            if (idx >= iframes.length) return null;
            let child = null;
            try { child = iframes[idx].contentDocument; } catch (e) { return null; }
            if (!child) return null;
            doc = child;
        }
        return doc;
    }
`

// framesScript enumerates accessible frame paths, root first, in traversal
// order. Cross-origin frames are skipped silently.
const framesScript = `(function() {
    const paths = [];
    function walk(doc, path) {
        paths.push(path);
        const iframes = doc.querySelectorAll('iframe');
        for (let i = 0; i < iframes.length; i++) {
            let child = null;
            try { child = iframes[i].contentDocument; } catch (e) { continue; }
            if (child) walk(child, path.concat(i));
        }
    }
    walk(document, []);
    return paths;
})()`

// scrollToFirstControlScript brings the first visible interactive control
// into view. Arguments: selector.
const scrollToFirstControlScript = `(function(selector) {
    for (const el of document.querySelectorAll(selector)) {
        const rect = el.getBoundingClientRect();
        if (rect.width > 0 && rect.height > 0) {
            el.scrollIntoView({ block: 'center' });
            return true;
        }
    }
    return false;
})(%s)`

// pageTextScript returns the rendered text of the main document.
const pageTextScript = `(function() {
    return document.body ? document.body.innerText : '';
})()`

// frameTextScript returns the rendered text of one frame's document.
// Arguments: framePath.
const frameTextScript = `(function(path) {` + frameHelpers + `
    const doc = docFor(path);
    if (!doc || !doc.body) return '';
    return doc.body.innerText;
})(%s)`

// snapshotScript queries a frame for interactive controls, tags each with a
// stable per-element attribute, and extracts everything the engine needs in
// one atomic pass inside the browser's main thread. This avoids racing the
// devtools node cache. Arguments: framePath, selector, autoAttr.
const snapshotScript = `(function(path, selector, autoAttr) {` + frameHelpers + `
    const doc = docFor(path);
    if (doc === null) return null;
    const win = doc.defaultView;

    function visible(el) {
        const rect = el.getBoundingClientRect();
        const style = win.getComputedStyle(el);
        return rect.width > 0 && rect.height > 0 &&
            style.display !== 'none' && style.visibility !== 'hidden';
    }

    function labelFor(el) {
        if (el.id) {
            const lab = doc.querySelector('label[for="' + CSS.escape(el.id) + '"]');
            if (lab) return lab.textContent.trim();
        }
        const wrapper = el.closest('label');
        return wrapper ? wrapper.textContent.trim() : '';
    }

    function ariaName(el) {
        const direct = el.getAttribute('aria-label');
        if (direct && direct.trim() !== '') return direct.trim();
        const refs = el.getAttribute('aria-labelledby');
        if (!refs) return '';
        const parts = [];
        for (const id of refs.split(/\s+/)) {
            const ref = doc.getElementById(id);
            if (ref) parts.push(ref.textContent.trim());
        }
        return parts.join(' ').trim();
    }

    function questionText(el) {
        const fieldset = el.closest('fieldset');
        if (!fieldset) return '';
        const legend = fieldset.querySelector('legend');
        return legend ? legend.textContent.trim() : '';
    }

    const results = [];
    let elements;
    try {
        elements = doc.querySelectorAll(selector);
    } catch (e) {
        return results;
    }

    elements.forEach((el, index) => {
        try {
            let autoId = el.getAttribute(autoAttr);
            if (!autoId) {
                autoId = 'n-' + index + '-' + Math.random().toString(36).substring(2, 10);
                el.setAttribute(autoAttr, autoId);
            }

            const attrs = {};
            for (const attr of el.attributes) {
                attrs[attr.name] = attr.value;
            }

            const tag = el.tagName.toLowerCase();
            const editable = el.isContentEditable ||
                (el.getAttribute('role') || '').toLowerCase() === 'textbox';
            const type = tag === 'input' ? (el.type || '').toLowerCase() : '';

            const options = [];
            if (tag === 'select') {
                for (const opt of el.options) {
                    options.push({ value: opt.value, label: opt.textContent.trim() });
                }
            }

            results.push({
                autoId: autoId,
                tag: tag,
                type: type,
                attrs: attrs,
                label: labelFor(el),
                ariaName: ariaName(el),
                questionText: questionText(el),
                visible: visible(el),
                disabled: el.disabled === true ||
                    (el.getAttribute('aria-disabled') || '').toLowerCase() === 'true',
                required: el.required === true ||
                    (el.getAttribute('aria-required') || '').toLowerCase() === 'true',
                editable: editable,
                checkable: tag === 'input' && (type === 'checkbox' || type === 'radio'),
                options: options
            });
        } catch (e) {
            /* keep going; one bad element never aborts the pass */
        }
    });
    return results;
})(%s, %s, %s)`

// mutateScript applies one operation to a tagged element and dispatches the
// synthetic events forms frameworks listen for. Returns false when the
// element is gone. Arguments: framePath, autoAttr, autoId, op, value.
const mutateScript = `(function(path, autoAttr, autoId, op, value) {` + frameHelpers + `
    const doc = docFor(path);
    if (!doc) return false;
    const el = doc.querySelector('[' + autoAttr + '="' + autoId + '"]');
    if (!el) return false;

    function fire(name) {
        el.dispatchEvent(new Event(name, { bubbles: true }));
    }

    try {
        switch (op) {
        case 'marker':
            el.setAttribute(value.name, value.value);
            return true;
        case 'value':
            el.value = value;
            fire('input');
            fire('change');
            return true;
        case 'text':
            el.textContent = value;
            fire('input');
            fire('change');
            return true;
        case 'option':
            el.value = value;
            fire('change');
            return true;
        case 'checked':
            if (el.checked !== value) {
                el.checked = value;
                fire('change');
            }
            return true;
        case 'click':
            el.click();
            return true;
        }
    } catch (e) {
        return false;
    }
    return false;
})(%s, %s, %s, %s, %s)`
