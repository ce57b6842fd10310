package cmd

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/vigil/internal/config"
	"github.com/xkilldash9x/vigil/internal/observability"
	"github.com/xkilldash9x/vigil/pkg/probe/httpx"
	"github.com/xkilldash9x/vigil/pkg/wait"
)

// newEndpointCommand builds the "endpoint" subcommand: poll one or more HTTP
// URLs until each satisfies the requested conditions.
func newEndpointCommand(cfg *config.Config) *cobra.Command {
	var (
		wf           waitFlags
		urls         []string
		status       int
		bodyContains string
		jsonField    string
		xmlElement   string
		htmlTag      string
		htmlID       string
		headers      []string
		maxRPS       float64
	)

	cmd := &cobra.Command{
		Use:   "endpoint",
		Short: "Wait for HTTP endpoints to reach a desired state",
		Long: `Endpoint polls each --url until it satisfies every requested condition.
With multiple URLs the waits run concurrently and the command succeeds
only when all of them do. Typical readiness gate:

  vigil endpoint --url http://api:8080/healthz --status 200 --timeout 60s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(urls) == 0 {
				return fmt.Errorf("at least one --url is required")
			}
			logger := observability.GetLogger().Named("endpoint")

			var conds []wait.Condition[*httpx.Endpoint]
			if cmd.Flags().Changed("status") {
				conds = append(conds, httpx.StatusIs(status))
			}
			if bodyContains != "" {
				conds = append(conds, httpx.BodyContains(bodyContains))
			}
			if jsonField != "" {
				path, want, ok := strings.Cut(jsonField, "=")
				if !ok {
					return fmt.Errorf("--json-field must be path=value, got %q", jsonField)
				}
				conds = append(conds, httpx.JSONField(path, want))
			}
			if xmlElement != "" {
				conds = append(conds, httpx.XMLElement(xmlElement))
			}
			if htmlTag != "" {
				conds = append(conds, httpx.HTMLElement(htmlTag, htmlID))
			}
			if len(conds) == 0 {
				conds = append(conds, httpx.StatusIs(http.StatusOK))
			}
			cond := conds[0]
			if len(conds) > 1 {
				cond = wait.And(conds...)
			}

			opts := []wait.Option[*httpx.Endpoint]{wait.WithLogger[*httpx.Endpoint](logger)}
			if maxRPS > 0 {
				// One limiter shared by every concurrent wait so the aggregate
				// request rate stays bounded.
				opts = append(opts, wait.WithLimiter[*httpx.Endpoint](rate.NewLimiter(rate.Limit(maxRPS), 1)))
			}
			eng, err := wait.NewEngine(wf.spec(cmd, cfg, httpx.ErrUnreachable), opts...)
			if err != nil {
				return err
			}

			client := &http.Client{Timeout: cfg.HTTP.RequestTimeout}
			if cfg.HTTP.InsecureSkipVerify {
				client.Transport = &http.Transport{
					TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
				}
			}

			endpointOpts := []httpx.Option{httpx.WithClient(client), httpx.WithLogger(logger)}
			for _, h := range headers {
				key, value, ok := strings.Cut(h, ":")
				if !ok {
					return fmt.Errorf("--header must be key:value, got %q", h)
				}
				endpointOpts = append(endpointOpts, httpx.WithHeader(strings.TrimSpace(key), strings.TrimSpace(value)))
			}

			start := time.Now()
			if len(urls) == 1 {
				value, err := eng.Until(cmd.Context(), httpx.New(urls[0], endpointOpts...), cond)
				if err != nil {
					return err
				}
				reportSuccess(logger, cond.Description(), value, start)
				return nil
			}

			waits := make([]func(ctx context.Context) error, 0, len(urls))
			for _, u := range urls {
				waits = append(waits, eng.Waiter(httpx.New(u, endpointOpts...), cond))
			}
			if err := wait.All(cmd.Context(), waits...); err != nil {
				return err
			}
			reportSuccess(logger, fmt.Sprintf("%s on %d endpoints", cond.Description(), len(urls)), true, start)
			return nil
		},
	}

	wf.register(cmd)
	cmd.Flags().StringSliceVar(&urls, "url", nil, "endpoint URL to poll (repeatable)")
	cmd.Flags().IntVar(&status, "status", 0, "wait for this HTTP status code (default 200 when no other condition is given)")
	cmd.Flags().StringVar(&bodyContains, "body-contains", "", "wait for the response body to contain this substring")
	cmd.Flags().StringVar(&jsonField, "json-field", "", "wait for a JSON field, as path=value (e.g. status.ready=true)")
	cmd.Flags().StringVar(&xmlElement, "xml-element", "", "wait for an XML element at this path to be present")
	cmd.Flags().StringVar(&htmlTag, "html-tag", "", "wait for an HTML element with this tag to be present")
	cmd.Flags().StringVar(&htmlID, "html-id", "", "restrict --html-tag to an element with this id")
	cmd.Flags().StringSliceVar(&headers, "header", nil, "request header, as key:value (repeatable)")
	cmd.Flags().Float64Var(&maxRPS, "max-rps", 0, "cap total requests per second across all URLs (0 = unlimited)")
	return cmd
}
