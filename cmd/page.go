package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vigil/internal/config"
	"github.com/xkilldash9x/vigil/internal/observability"
	"github.com/xkilldash9x/vigil/pkg/probe/browser"
	"github.com/xkilldash9x/vigil/pkg/wait"
)

// newPageCommand builds the "page" subcommand: launch a headless browser,
// navigate, and wait for the page to reach a desired state.
func newPageCommand(cfg *config.Config) *cobra.Command {
	var (
		wf            waitFlags
		title         string
		titleContains string
		urlContains   string
		selector      string
		visible       bool
		text          string
		count         int
	)

	cmd := &cobra.Command{
		Use:   "page <url>",
		Short: "Wait for a web page to reach a desired state",
		Long: `Page opens the URL in a headless browser and polls it until every
requested condition holds. Conditions are combined with AND, so

  vigil page https://app.local --selector "#status" --text "ready"

waits until an element matching #status exists and its text is "ready".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger().Named("page")

			var conds []wait.Condition[*browser.Session]
			if cmd.Flags().Changed("title") {
				conds = append(conds, browser.TitleIs(title))
			}
			if titleContains != "" {
				conds = append(conds, browser.TitleContains(titleContains))
			}
			if urlContains != "" {
				conds = append(conds, browser.URLContains(urlContains))
			}
			if cmd.Flags().Changed("count") {
				if selector == "" {
					return fmt.Errorf("--count requires --selector")
				}
				conds = append(conds, browser.ElementCount(selector, count))
			}
			if cmd.Flags().Changed("text") {
				if selector == "" {
					return fmt.Errorf("--text requires --selector")
				}
				conds = append(conds, browser.ElementText(selector, text))
			}
			if visible {
				if selector == "" {
					return fmt.Errorf("--visible requires --selector")
				}
				conds = append(conds, browser.ElementVisible(selector))
			}
			if selector != "" && !cmd.Flags().Changed("count") && !cmd.Flags().Changed("text") && !visible {
				conds = append(conds, browser.ElementPresent(selector))
			}
			if len(conds) == 0 {
				return fmt.Errorf("no condition given; use --title, --title-contains, --url-contains or --selector")
			}

			cond := conds[0]
			if len(conds) > 1 {
				cond = wait.And(conds...)
			}

			eng, err := wait.NewEngine(
				wf.spec(cmd, cfg, browser.ErrNoSuchElement),
				wait.WithLogger[*browser.Session](logger),
			)
			if err != nil {
				return err
			}

			session, err := browser.NewSession(cmd.Context(), browser.Options{
				Headless:        cfg.Browser.Headless,
				IgnoreTLSErrors: cfg.Browser.IgnoreTLSErrors,
				UserAgent:       cfg.Browser.UserAgent,
				ExtraFlags:      cfg.Browser.ExtraFlags,
				Logger:          logger,
			})
			if err != nil {
				return err
			}
			defer func() {
				if cerr := session.Close(); cerr != nil {
					logger.Debug("closing browser session", zap.Error(cerr))
				}
			}()

			if err := session.Navigate(args[0]); err != nil {
				return err
			}

			start := time.Now()
			value, err := eng.Until(cmd.Context(), session, cond)
			if err != nil {
				return err
			}
			reportSuccess(logger, cond.Description(), value, start)
			return nil
		},
	}

	wf.register(cmd)
	cmd.Flags().StringVar(&title, "title", "", "wait for the page title to equal this value")
	cmd.Flags().StringVar(&titleContains, "title-contains", "", "wait for the page title to contain this substring")
	cmd.Flags().StringVar(&urlContains, "url-contains", "", "wait for the page URL to contain this substring")
	cmd.Flags().StringVar(&selector, "selector", "", "CSS selector of the element to wait for")
	cmd.Flags().BoolVar(&visible, "visible", false, "require the selected element to be visible, not just present")
	cmd.Flags().StringVar(&text, "text", "", "require the selected element to have this exact text")
	cmd.Flags().IntVar(&count, "count", 0, "require exactly this many elements to match the selector")
	return cmd
}
