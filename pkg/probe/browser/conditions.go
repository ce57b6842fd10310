package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/vigil/pkg/wait"
)

// The conditions below mirror the expected-condition vocabulary of classic
// browser waits: title and URL checks, element presence, visibility, text,
// and collection size. Element lookups that find nothing report
// ErrNoSuchElement, which callers whitelist to keep polling.

// TitleIs waits for the page title to equal title exactly.
func TitleIs(title string) wait.Condition[*Session] {
	return wait.New(fmt.Sprintf("page title is %q", title), func(ctx context.Context, s *Session) wait.Outcome {
		var got string
		if err := s.run(ctx, chromedp.Title(&got)); err != nil {
			return wait.Failed(err)
		}
		if got != title {
			return wait.NotYetBecause("title is %q", got)
		}
		return wait.Satisfied(got)
	})
}

// TitleContains waits for the page title to contain the given substring.
func TitleContains(substr string) wait.Condition[*Session] {
	return wait.New(fmt.Sprintf("page title contains %q", substr), func(ctx context.Context, s *Session) wait.Outcome {
		var got string
		if err := s.run(ctx, chromedp.Title(&got)); err != nil {
			return wait.Failed(err)
		}
		if !strings.Contains(got, substr) {
			return wait.NotYetBecause("title is %q", got)
		}
		return wait.Satisfied(got)
	})
}

// URLContains waits for the current location to contain the given substring.
func URLContains(substr string) wait.Condition[*Session] {
	return wait.New(fmt.Sprintf("URL contains %q", substr), func(ctx context.Context, s *Session) wait.Outcome {
		var got string
		if err := s.run(ctx, chromedp.Location(&got)); err != nil {
			return wait.Failed(err)
		}
		if !strings.Contains(got, substr) {
			return wait.NotYetBecause("URL is %q", got)
		}
		return wait.Satisfied(got)
	})
}

// ElementPresent waits for at least one element matching the CSS selector to
// exist in the DOM. The satisfied value is the first matching node.
func ElementPresent(selector string) wait.Condition[*Session] {
	return wait.New(fmt.Sprintf("element %q present", selector), func(ctx context.Context, s *Session) wait.Outcome {
		nodes, err := queryNodes(ctx, s, selector)
		if err != nil {
			return wait.Failed(err)
		}
		if len(nodes) == 0 {
			return wait.Failed(fmt.Errorf("%w: %s", ErrNoSuchElement, selector))
		}
		return wait.Satisfied(nodes[0])
	})
}

// ElementCount waits for exactly n elements matching the CSS selector. The
// satisfied value is the slice of matching nodes.
func ElementCount(selector string, n int) wait.Condition[*Session] {
	return wait.New(fmt.Sprintf("%d elements match %q", n, selector), func(ctx context.Context, s *Session) wait.Outcome {
		nodes, err := queryNodes(ctx, s, selector)
		if err != nil {
			return wait.Failed(err)
		}
		if len(nodes) != n {
			return wait.NotYetBecause("found %d elements", len(nodes))
		}
		return wait.Satisfied(nodes)
	})
}

// ElementVisible waits for the first element matching the CSS selector to be
// rendered with a non-empty box and not hidden via CSS. A missing element is
// the transient ErrNoSuchElement.
func ElementVisible(selector string) wait.Condition[*Session] {
	return wait.New(fmt.Sprintf("element %q visible", selector), func(ctx context.Context, s *Session) wait.Outcome {
		var state string
		if err := s.run(ctx, chromedp.Evaluate(visibilityScript(selector), &state)); err != nil {
			return wait.Failed(err)
		}
		switch state {
		case "missing":
			return wait.Failed(fmt.Errorf("%w: %s", ErrNoSuchElement, selector))
		case "visible":
			return wait.Satisfied(true)
		default:
			return wait.NotYetBecause("element is %s", state)
		}
	})
}

// ElementText waits for the first element matching the CSS selector to have
// the exact text content. A missing element is the transient
// ErrNoSuchElement.
func ElementText(selector, text string) wait.Condition[*Session] {
	return wait.New(fmt.Sprintf("element %q has text %q", selector, text), func(ctx context.Context, s *Session) wait.Outcome {
		var got *string
		if err := s.run(ctx, chromedp.Evaluate(textScript(selector), &got)); err != nil {
			return wait.Failed(err)
		}
		if got == nil {
			return wait.Failed(fmt.Errorf("%w: %s", ErrNoSuchElement, selector))
		}
		if strings.TrimSpace(*got) != text {
			return wait.NotYetBecause("text is %q", strings.TrimSpace(*got))
		}
		return wait.Satisfied(*got)
	})
}

// queryNodes resolves the selector without blocking: chromedp.Nodes normally
// waits for a match, AtLeast(0) makes it return whatever is there now.
func queryNodes(ctx context.Context, s *Session, selector string) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	return nodes, nil
}

func visibilityScript(selector string) string {
	return fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) return "missing";
		const rect = el.getBoundingClientRect();
		const style = window.getComputedStyle(el);
		if (rect.width > 0 && rect.height > 0 && style.visibility !== "hidden" && style.display !== "none") {
			return "visible";
		}
		return "hidden";
	})()`, selector)
}

func textScript(selector string) string {
	return fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		return el ? el.textContent : null;
	})()`, selector)
}
