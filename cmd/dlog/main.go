package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"decidelog/internal/analytics"
	"decidelog/internal/app"
	"decidelog/internal/domain"
	"decidelog/internal/draft"
)

var rootCmd = &cobra.Command{
	Use:   "dlog",
	Short: "Decidelog CLI",
	Long: `Decidelog records strategic decisions, rates them, and reviews outcomes.

The CLI keeps a local cache of your workspace, applies edits optimistically,
and syncs them against the Decidelog API. Drafts are autosaved locally and
survive restarts; everything else is refetched on demand.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("DECIDELOG")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().String("state-dir", "", "local state directory (default ~/.decidelog)")
	rootCmd.PersistentFlags().String("token", "", "API bearer token")
	rootCmd.PersistentFlags().String("base-url", "", "API base URL")
	rootCmd.PersistentFlags().StringP("workspace", "w", "", "workspace id (overrides config)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging")
	_ = viper.BindPFlag("state-dir", rootCmd.PersistentFlags().Lookup("state-dir"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("base-url", rootCmd.PersistentFlags().Lookup("base-url"))
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func registerCommands() {
	rootCmd.AddCommand(authCmd())
	rootCmd.AddCommand(workspaceCmd())
	rootCmd.AddCommand(decisionCmd())
	rootCmd.AddCommand(inboxCmd())
	rootCmd.AddCommand(flagCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(streakCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(draftCmd())
	rootCmd.AddCommand(upgradeCmd())
}

func buildApp() (*app.App, error) {
	return app.Build(app.Options{
		StateDir:  viper.GetString("state-dir"),
		BaseURL:   viper.GetString("base-url"),
		Token:     viper.GetString("token"),
		Workspace: viper.GetString("workspace"),
		Verbose:   viper.GetBool("verbose"),
	})
}

func withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- auth ---

func authCmd() *cobra.Command {
	auth := &cobra.Command{Use: "auth", Short: "Manage the API session"}
	var token string
	login := &cobra.Command{
		Use:   "login",
		Short: "Store the API token locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				return fmt.Errorf("--token required")
			}
			a, err := app.Build(app.Options{StateDir: viper.GetString("state-dir"), Token: token})
			if err != nil {
				return err
			}
			defer a.Close()
			a.Config.API.Token = token
			if a.Session.UserID != "" {
				a.Config.User = a.Session.UserID
			}
			if err := a.Config.Save(a.StateDir); err != nil {
				return err
			}
			fmt.Println("logged in as", a.Session.UserID)
			return nil
		},
	}
	login.Flags().StringVar(&token, "token", "", "bearer token")
	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return printJSON(map[string]any{
					"user":       a.Session.UserID,
					"email":      a.Session.Email,
					"workspace":  a.Cache.ActiveWorkspace(),
					"expires_at": a.Session.ExpiresAt,
				})
			})
		},
	}
	auth.AddCommand(login, status)
	return auth
}

// --- workspace ---

func workspaceCmd() *cobra.Command {
	ws := &cobra.Command{Use: "workspace", Short: "Manage workspaces"}
	list := &cobra.Command{
		Use:   "list",
		Short: "List workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Cache.FetchWorkspaces(ctx); err != nil {
					return err
				}
				items := a.Cache.Workspaces()
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Plan"})
				for _, w := range items {
					marker := ""
					if w.ID == a.Cache.ActiveWorkspace() {
						marker = " *"
					}
					tw.AppendRow(table.Row{w.ID + marker, w.Name, w.PlanTier})
				}
				tw.Render()
				return nil
			})
		},
	}
	use := &cobra.Command{
		Use:   "use <workspace-id>",
		Short: "Switch the active workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Cache.SwitchWorkspace(ctx, args[0]); err != nil {
					// The switch took effect even if the refetch did not.
					fmt.Fprintln(os.Stderr, "warning: refetch failed:", err)
				}
				a.Config.Workspace = args[0]
				if err := a.Config.Save(a.StateDir); err != nil {
					return err
				}
				fmt.Println("active workspace:", args[0])
				return nil
			})
		},
	}
	rename := &cobra.Command{
		Use:   "rename <workspace-id> <name>",
		Short: "Rename a workspace",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Cache.FetchWorkspaces(ctx); err != nil {
					return err
				}
				w, err := a.Cache.RenameWorkspace(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return printJSON(w)
			})
		},
	}
	ws.AddCommand(list, use, rename)
	return ws
}

// --- decisions ---

func decisionCmd() *cobra.Command {
	dec := &cobra.Command{Use: "decision", Short: "Record and review decisions"}
	dec.AddCommand(decisionListCmd())
	dec.AddCommand(decisionShowCmd())
	dec.AddCommand(decisionAddCmd())
	dec.AddCommand(decisionStatusCmd())
	dec.AddCommand(decisionLinkCmd())
	dec.AddCommand(decisionCommentCmd())
	dec.AddCommand(decisionBlindspotCmd())
	dec.AddCommand(decisionTagsCmd())
	return dec
}

func fetchActive(ctx context.Context, a *app.App) error {
	return a.Cache.FetchDecisions(ctx, a.Cache.ActiveWorkspace())
}

func decisionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List decisions in the active workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := fetchActive(ctx, a); err != nil {
					return err
				}
				items := a.Cache.Decisions()
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Category", "Status", "Made On", "Risk"})
				for _, d := range items {
					risk := "-"
					if d.AIRiskScore != nil {
						risk = fmt.Sprintf("%d", *d.AIRiskScore)
					}
					tw.AppendRow(table.Row{d.ID, d.Title, d.Category, d.Status, d.MadeOn.Format("2006-01-02"), risk})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func decisionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one decision with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := fetchActive(ctx, a); err != nil {
					return err
				}
				if err := a.Cache.FetchComments(ctx, args[0]); err != nil {
					fmt.Fprintln(os.Stderr, "warning: comments unavailable:", err)
				}
				d, ok := a.Cache.Decision(args[0])
				if !ok {
					return fmt.Errorf("decision %s not found", args[0])
				}
				return printJSON(d)
			})
		},
	}
}

func decisionAddCmd() *cobra.Command {
	var title, category, decisionText, contextText string
	var assumptions, criteria, alternatives []string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a decision (prefilled from the saved draft)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				input := domain.DecisionInput{
					Title:           title,
					Category:        domain.Category(strings.ToUpper(category)),
					Decision:        decisionText,
					Context:         contextText,
					Assumptions:     assumptions,
					SuccessCriteria: criteria,
				}
				for _, alt := range alternatives {
					name, why, _ := strings.Cut(alt, ":")
					input.Alternatives = append(input.Alternatives, domain.Alternative{Name: name, WhyRejected: why})
				}
				user := a.Cache.User()
				if input.Title == "" {
					if d, ok, err := a.Drafts.Get(ctx, user.ID, a.Cache.ActiveWorkspace()); err == nil && ok {
						input = draftToInput(d)
						fmt.Fprintln(os.Stderr, "using draft saved", d.SavedAt.Format(time.RFC3339))
					}
				}
				created, err := a.Cache.AddDecision(ctx, input)
				if err != nil {
					return err
				}
				// A successful submit destroys the draft.
				if err := a.Drafts.Delete(ctx, user.ID, a.Cache.ActiveWorkspace()); err != nil {
					fmt.Fprintln(os.Stderr, "warning: draft not cleared:", err)
				}
				return printJSON(created)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "decision title")
	cmd.Flags().StringVar(&category, "category", string(domain.CategoryOther), "category")
	cmd.Flags().StringVar(&decisionText, "decision", "", "what was decided")
	cmd.Flags().StringVar(&contextText, "context", "", "situation and constraints")
	cmd.Flags().StringArrayVar(&assumptions, "assumption", nil, "assumption (repeatable)")
	cmd.Flags().StringArrayVar(&criteria, "criterion", nil, "success criterion (repeatable)")
	cmd.Flags().StringArrayVar(&alternatives, "alternative", nil, "alternative as name:why-rejected (repeatable)")
	return cmd
}

func draftToInput(d domain.Draft) domain.DecisionInput {
	return domain.DecisionInput{
		Title:           d.Title,
		Category:        d.Category,
		Decision:        d.Decision,
		Context:         d.Context,
		Alternatives:    d.Alternatives,
		Assumptions:     d.Assumptions,
		SuccessCriteria: d.SuccessCriteria,
		Privacy:         d.Privacy,
	}
}

func decisionStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <new-status>",
		Short: "Move a decision forward (ACTIVE, SUCCEEDED, FAILED, REVERSED)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := fetchActive(ctx, a); err != nil {
					return err
				}
				updated, err := a.Cache.UpdateDecisionStatus(ctx, args[0], domain.Status(strings.ToUpper(args[1])))
				if err != nil {
					return err
				}
				return printJSON(updated)
			})
		},
	}
}

func decisionLinkCmd() *cobra.Command {
	var linkType string
	cmd := &cobra.Command{
		Use:   "link <source-id> <target-id>",
		Short: "Link two decisions",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := fetchActive(ctx, a); err != nil {
					return err
				}
				updated, err := a.Cache.LinkDecision(ctx, args[0], args[1], linkType)
				if err != nil {
					return err
				}
				return printJSON(updated)
			})
		},
	}
	cmd.Flags().StringVar(&linkType, "type", "relates_to", "link type")
	return cmd
}

func decisionCommentCmd() *cobra.Command {
	var anonymous bool
	cmd := &cobra.Command{
		Use:   "comment <decision-id> <text>",
		Short: "Comment on a decision",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := fetchActive(ctx, a); err != nil {
					return err
				}
				comment, err := a.Cache.AddComment(ctx, args[0], args[1], anonymous)
				if err != nil {
					return err
				}
				return printJSON(comment)
			})
		},
	}
	cmd.Flags().BoolVar(&anonymous, "anonymous", false, "post anonymously")
	return cmd
}

func decisionBlindspotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "blindspot <id>",
		Short: "Request an AI risk analysis for a decision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := fetchActive(ctx, a); err != nil {
					return err
				}
				res, err := a.Cache.RequestBlindspot(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(res)
			})
		},
	}
}

func decisionTagsCmd() *cobra.Command {
	var title, contextText string
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Suggest tags for a decision being drafted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if title == "" {
					user := a.Cache.User()
					if d, ok, err := a.Drafts.Get(ctx, user.ID, a.Cache.ActiveWorkspace()); err == nil && ok {
						title, contextText = d.Title, d.Context
					}
				}
				tags, err := a.Cache.SuggestTags(ctx, title, contextText)
				if err != nil {
					return err
				}
				return printJSON(tags)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "decision title (default: saved draft)")
	cmd.Flags().StringVar(&contextText, "context", "", "situation and constraints")
	return cmd
}

// --- notifications ---

func inboxCmd() *cobra.Command {
	inbox := &cobra.Command{Use: "inbox", Short: "Notifications"}
	list := &cobra.Command{
		Use:   "list",
		Short: "List notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Cache.FetchNotifications(ctx); err != nil {
					return err
				}
				items := a.Cache.Notifications()
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Type", "Title", "Read"})
				for _, n := range items {
					tw.AppendRow(table.Row{n.ID, n.Type, n.Title, n.IsRead})
				}
				tw.Render()
				fmt.Printf("%d unread\n", a.Cache.UnreadCount())
				return nil
			})
		},
	}
	read := &cobra.Command{
		Use:   "read <id>",
		Short: "Mark a notification read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.Cache.FetchNotifications(ctx); err != nil {
					return err
				}
				return a.Cache.MarkNotificationRead(ctx, args[0])
			})
		},
	}
	inbox.AddCommand(list, read)
	return inbox
}

// --- feature flags ---

func flagCmd() *cobra.Command {
	flags := &cobra.Command{Use: "flag", Short: "Feature flags"}
	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Fetch a flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				flag, err := a.Cache.Flags().Fetch(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(flag)
			})
		},
	}
	toggle := &cobra.Command{
		Use:   "toggle <key> <on|off>",
		Short: "Toggle a flag and confirm server state",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				flag, err := a.Cache.Flags().Toggle(ctx, args[0], args[1] == "on")
				if err != nil {
					return err
				}
				return printJSON(flag)
			})
		},
	}
	flags.AddCommand(get, toggle)
	return flags
}

// --- analytics ---

func reportCmd() *cobra.Command {
	var month, year int
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Monthly report for the active workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := fetchActive(ctx, a); err != nil {
					return err
				}
				now := time.Now()
				if month == 0 {
					month = int(now.Month())
				}
				if year == 0 {
					year = now.Year()
				}
				r := analytics.Report(a.Cache.Decisions(), time.Month(month), year)
				if viper.GetBool("json") {
					return printJSON(r)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Category", "Count"})
				for _, c := range domain.Categories {
					if n, ok := r.ByCategory[c]; ok {
						tw.AppendRow(table.Row{c, n})
					}
				}
				tw.Render()
				fmt.Printf("total: %d  top: %s", r.TotalDecisions, r.TopCategory)
				if r.AvgRiskScore != nil {
					fmt.Printf("  avg risk: %.1f", *r.AvgRiskScore)
				}
				fmt.Println()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (default current)")
	cmd.Flags().IntVar(&year, "year", 0, "year (default current)")
	return cmd
}

func streakCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "streak",
		Short: "Weekly decision streak",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				if err := fetchActive(ctx, a); err != nil {
					return err
				}
				n := analytics.Streak(a.Cache.Decisions(), time.Now())
				if viper.GetBool("json") {
					return printJSON(map[string]int{"streak_weeks": n})
				}
				fmt.Printf("%d week streak\n", n)
				return nil
			})
		},
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Risk, quality, and failure-pattern check of the saved draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				user := a.Cache.User()
				d, ok, err := a.Drafts.Get(ctx, user.ID, a.Cache.ActiveWorkspace())
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no draft saved; use 'dlog draft set' first")
				}
				if err := fetchActive(ctx, a); err != nil {
					return err
				}
				asDecision := domain.Decision{
					Title:           d.Title,
					Decision:        d.Decision,
					Context:         d.Context,
					Alternatives:    d.Alternatives,
					Assumptions:     d.Assumptions,
					SuccessCriteria: d.SuccessCriteria,
				}
				risk := analytics.RiskScore(asDecision)
				score, grade := analytics.QualityGrade(asDecision)
				match := analytics.MatchFailurePattern(d.Title, d.Context, a.Cache.Decisions())
				out := map[string]any{
					"risk_score":    risk,
					"quality_score": score,
					"quality_grade": grade,
				}
				if match != nil {
					out["failure_pattern"] = match
				}
				return printJSON(out)
			})
		},
	}
}

// --- drafts ---

func draftCmd() *cobra.Command {
	dr := &cobra.Command{Use: "draft", Short: "Manage the local decision draft"}
	var title, category, decisionText, contextText string
	set := &cobra.Command{
		Use:   "set",
		Short: "Save the working draft locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				user := a.Cache.User()
				d := domain.Draft{
					Title:    title,
					Category: domain.Category(strings.ToUpper(category)),
					Decision: decisionText,
					Context:  contextText,
					SavedAt:  time.Now().UTC(),
				}
				saver := draft.NewAutosaver(a.Drafts, user.ID, a.Cache.ActiveWorkspace(), a.Log)
				saver.Observe(d)
				return saver.Flush(ctx)
			})
		},
	}
	set.Flags().StringVar(&title, "title", "", "draft title")
	set.Flags().StringVar(&category, "category", string(domain.CategoryOther), "category")
	set.Flags().StringVar(&decisionText, "decision", "", "what is being decided")
	set.Flags().StringVar(&contextText, "context", "", "situation and constraints")
	show := &cobra.Command{
		Use:   "show",
		Short: "Show the saved draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				user := a.Cache.User()
				d, ok, err := a.Drafts.Get(ctx, user.ID, a.Cache.ActiveWorkspace())
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("no draft")
					return nil
				}
				return printJSON(d)
			})
		},
	}
	clear := &cobra.Command{
		Use:   "clear",
		Short: "Discard the saved draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				user := a.Cache.User()
				return a.Drafts.Delete(ctx, user.ID, a.Cache.ActiveWorkspace())
			})
		},
	}
	dr.AddCommand(set, show, clear)
	return dr
}

// --- billing ---

func upgradeCmd() *cobra.Command {
	var plan string
	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Start a plan upgrade checkout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				session, err := a.Cache.CreateCheckoutSession(ctx, domain.PlanTier(strings.ToUpper(plan)))
				if err != nil {
					return err
				}
				fmt.Println("open to complete checkout:", session.URL)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&plan, "plan", string(domain.PlanPro), "target plan (PRO, TEAM, ENTERPRISE)")
	return cmd
}
