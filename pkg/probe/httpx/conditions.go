package httpx

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	jsoniter "github.com/json-iterator/go"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/vigil/pkg/wait"
)

// StatusIs waits for the endpoint to answer with the given status code. The
// satisfied value is the snapshot of the matching response.
func StatusIs(code int) wait.Condition[*Endpoint] {
	return wait.New(fmt.Sprintf("endpoint returns %d", code), func(ctx context.Context, e *Endpoint) wait.Outcome {
		snap, err := e.fetch(ctx)
		if err != nil {
			return wait.Failed(err)
		}
		if snap.Status != code {
			return wait.NotYetBecause("status is %d", snap.Status)
		}
		return wait.Satisfied(snap)
	})
}

// BodyContains waits for the response body to contain the given substring.
func BodyContains(substr string) wait.Condition[*Endpoint] {
	return wait.New(fmt.Sprintf("response body contains %q", substr), func(ctx context.Context, e *Endpoint) wait.Outcome {
		snap, err := e.fetch(ctx)
		if err != nil {
			return wait.Failed(err)
		}
		if !bytes.Contains(snap.Body, []byte(substr)) {
			return wait.NotYetBecause("%d byte body without match", len(snap.Body))
		}
		return wait.Satisfied(snap)
	})
}

// HeaderIs waits for a response header to have an exact value.
func HeaderIs(key, value string) wait.Condition[*Endpoint] {
	return wait.New(fmt.Sprintf("response header %s is %q", key, value), func(ctx context.Context, e *Endpoint) wait.Outcome {
		snap, err := e.fetch(ctx)
		if err != nil {
			return wait.Failed(err)
		}
		if got := snap.Header.Get(key); got != value {
			return wait.NotYetBecause("header is %q", got)
		}
		return wait.Satisfied(snap)
	})
}

// JSONField waits for the JSON response body to carry the given value at a
// dot-separated path ("data.items.0.state"). Numeric path segments index
// into arrays. Values are compared by their string rendering, so
// JSONField("count", "10") matches the number 10.
func JSONField(path, want string) wait.Condition[*Endpoint] {
	keys := parseJSONPath(path)
	return wait.New(fmt.Sprintf("JSON field %s is %q", path, want), func(ctx context.Context, e *Endpoint) wait.Outcome {
		snap, err := e.fetch(ctx)
		if err != nil {
			return wait.Failed(err)
		}
		value := jsoniter.Get(snap.Body, keys...)
		if value.ValueType() == jsoniter.InvalidValue {
			return wait.NotYetBecause("field %s absent", path)
		}
		if got := value.ToString(); got != want {
			return wait.NotYetBecause("field is %q", got)
		}
		return wait.Satisfied(snap)
	})
}

// XMLElement waits for the XML response body to contain an element at the
// given etree path ("./urlset/url"). The satisfied value is the element's
// text.
func XMLElement(path string) wait.Condition[*Endpoint] {
	return wait.New(fmt.Sprintf("XML element %s present", path), func(ctx context.Context, e *Endpoint) wait.Outcome {
		snap, err := e.fetch(ctx)
		if err != nil {
			return wait.Failed(err)
		}
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(snap.Body); err != nil {
			return wait.NotYetBecause("body is not parseable XML: %v", err)
		}
		el := doc.FindElement(path)
		if el == nil {
			return wait.NotYetBecause("no element at %s", path)
		}
		return wait.Satisfied(el.Text())
	})
}

// HTMLElement waits for the HTML response body to contain an element with
// the given tag name, optionally constrained to a specific id. This is the
// browserless cousin of an element-presence wait: good enough for static
// markup, no JavaScript execution.
func HTMLElement(tag, id string) wait.Condition[*Endpoint] {
	desc := fmt.Sprintf("HTML element <%s>", tag)
	if id != "" {
		desc = fmt.Sprintf("HTML element <%s id=%q>", tag, id)
	}
	return wait.New(desc, func(ctx context.Context, e *Endpoint) wait.Outcome {
		snap, err := e.fetch(ctx)
		if err != nil {
			return wait.Failed(err)
		}
		doc, err := html.Parse(bytes.NewReader(snap.Body))
		if err != nil {
			return wait.NotYetBecause("body is not parseable HTML: %v", err)
		}
		if node := findHTMLElement(doc, tag, id); node != nil {
			return wait.Satisfied(node)
		}
		return wait.NotYetBecause("element absent")
	})
}

func findHTMLElement(n *html.Node, tag, id string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		if id == "" || htmlAttr(n, "id") == id {
			return n
		}
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findHTMLElement(child, tag, id); found != nil {
			return found
		}
	}
	return nil
}

func htmlAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func parseJSONPath(path string) []any {
	segments := strings.Split(path, ".")
	keys := make([]any, 0, len(segments))
	for _, seg := range segments {
		if idx, err := strconv.Atoi(seg); err == nil {
			keys = append(keys, idx)
			continue
		}
		keys = append(keys, seg)
	}
	return keys
}
