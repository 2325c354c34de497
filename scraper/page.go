package scraper

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// Page is the slice of browser functionality the scrape flow needs.
// The production implementation wraps a Rod page; tests substitute a
// scripted fake.
type Page interface {
	// Navigate loads the URL, bounded by the configured navigation
	// timeout. It returns once the navigation is committed, before the
	// page has necessarily finished rendering.
	Navigate(url string) error

	// WaitStable blocks until the DOM stops mutating or the timeout
	// elapses.
	WaitStable(timeout time.Duration) error

	// Title returns document.title.
	Title() (string, error)

	// HTML returns the current serialized DOM.
	HTML() (string, error)

	// Count reports how many elements match the selector.
	Count(selector string) (int, error)

	// FirstVisible reports whether the first matching element is
	// visible. Errors when nothing matches.
	FirstVisible(selector string) (bool, error)

	// FirstText returns the rendered text of the first matching
	// element. Errors when nothing matches.
	FirstText(selector string) (string, error)

	// FirstHTML returns the outer HTML of the first matching element.
	FirstHTML(selector string) (string, error)

	// Click clicks the first element matching the selector.
	Click(selector string) error

	// PressEscape sends the Escape key to the page.
	PressEscape() error

	// Eval runs JavaScript in the page, discarding the result.
	Eval(js string) error

	// WaitFor blocks until at least one element matches the selector
	// or the timeout elapses.
	WaitFor(selector string, timeout time.Duration) error
}

// rodPage adapts a context-bound Rod page to the Page interface.
type rodPage struct {
	p          *rod.Page
	navTimeout time.Duration
}

func (r *rodPage) Navigate(url string) error {
	return r.p.Timeout(r.navTimeout).Navigate(url)
}

func (r *rodPage) WaitStable(timeout time.Duration) error {
	return r.p.Timeout(timeout).WaitDOMStable(300*time.Millisecond, 0.1)
}

func (r *rodPage) Title() (string, error) {
	res, err := r.p.Eval(`() => document.title`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (r *rodPage) HTML() (string, error) {
	return r.p.HTML()
}

func (r *rodPage) Count(selector string) (int, error) {
	els, err := r.p.Elements(selector)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

// first returns the first element matching the selector. Unlike
// rod's Element it never blocks waiting for one to appear.
func (r *rodPage) first(selector string) (*rod.Element, error) {
	els, err := r.p.Elements(selector)
	if err != nil {
		return nil, err
	}
	el := els.First()
	if el == nil {
		return nil, fmt.Errorf("no elements match %q", selector)
	}
	return el, nil
}

func (r *rodPage) FirstVisible(selector string) (bool, error) {
	el, err := r.first(selector)
	if err != nil {
		return false, err
	}
	return el.Visible()
}

func (r *rodPage) FirstText(selector string) (string, error) {
	el, err := r.first(selector)
	if err != nil {
		return "", err
	}
	return el.Text()
}

func (r *rodPage) FirstHTML(selector string) (string, error) {
	el, err := r.first(selector)
	if err != nil {
		return "", err
	}
	return el.HTML()
}

func (r *rodPage) Click(selector string) error {
	el, err := r.first(selector)
	if err != nil {
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (r *rodPage) PressEscape() error {
	return r.p.Keyboard.Press(input.Escape)
}

func (r *rodPage) Eval(js string) error {
	_, err := r.p.Eval(js)
	return err
}

func (r *rodPage) WaitFor(selector string, timeout time.Duration) error {
	return r.p.Timeout(timeout).WaitElementsMoreThan(selector, 0)
}
