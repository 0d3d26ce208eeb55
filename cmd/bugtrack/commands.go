package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/tgienger/bugtrack/internal/api"
	"github.com/tgienger/bugtrack/internal/auth"
	"github.com/tgienger/bugtrack/internal/category"
	"github.com/tgienger/bugtrack/internal/config"
	"github.com/tgienger/bugtrack/internal/models"
	"github.com/tgienger/bugtrack/internal/ui/styles"
)

var (
	// Credential flags
	loginEmail    string
	loginPassword string
	signupName    string

	// Search flags
	searchCategory string
	searchPriority string
	searchLimit    int
	dbmsFlag       int64
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session tokens",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, password, err := credentials(cmd)
		if err != nil {
			return err
		}
		user, err := authService.Login(cmd.Context(), email, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s <%s>\n", user.Name, user.Email)
		return nil
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and sign in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name := signupName
		if name == "" {
			var err error
			if name, err = prompt(cmd, "Name: "); err != nil {
				return err
			}
		}
		if strings.TrimSpace(name) == "" {
			return errors.New("name is required")
		}
		email, password, err := credentials(cmd)
		if err != nil {
			return err
		}
		user, err := authService.Signup(cmd.Context(), name, email, password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s\n", user.Name)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session tokens",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := authService.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := authService.CurrentUser()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s <%s> (id %d)\n", user.Name, user.Email, user.ID)
		if !user.ExpiresAt.IsZero() {
			fmt.Fprintf(out, "Access token expires %s\n", user.ExpiresAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var dbmsCmd = &cobra.Command{
	Use:   "dbms",
	Short: "Work with the tracked database systems",
}

var dbmsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tracked database systems",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		if err := tenants.Load(cmd.Context()); err != nil {
			return err
		}
		current, _ := tenants.Current()

		t := newTable("", "ID", "Name")
		for _, d := range tenants.Tenants() {
			marker := ""
			if d.ID == current.ID {
				marker = "*"
			}
			t.Row(marker, strconv.FormatInt(d.ID, 10), d.Name)
		}
		fmt.Fprintln(cmd.OutOrStdout(), t.Render())
		return nil
	},
}

var dbmsUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Select the database system the dashboard opens with",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid dbms id %q", args[0])
		}
		if err := requireLogin(); err != nil {
			return err
		}
		if err := tenants.Load(cmd.Context()); err != nil {
			return err
		}
		if err := tenants.SetCurrent(id); err != nil {
			return err
		}
		current, _ := tenants.Current()
		fmt.Fprintf(cmd.OutOrStdout(), "Now tracking %s\n", current.Name)
		return nil
	},
}

var dbmsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show bug totals, the trend and the AI summary of a database system",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveDbms(cmd.Context())
		if err != nil {
			return err
		}

		var (
			detail  *models.DbmsDetail
			trend   []int
			summary *models.AiSummary
		)
		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() (err error) {
			detail, err = client.GetDbms(ctx, id)
			return err
		})
		g.Go(func() (err error) {
			trend, err = client.BugTrend(ctx, id, api.DefaultTrendDays)
			return err
		})
		g.Go(func() error {
			s, err := client.DbmsAiSummary(ctx, id)
			if err != nil {
				if api.IsAuthError(err) {
					return err
				}
				logger.Debug("dbms summary unavailable", zap.Int64("dbms_id", id), zap.Error(err))
				return nil
			}
			summary = s
			return nil
		})
		if err := g.Wait(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d bugs\n\n", detail.Name, detail.BugCount)

		t := newTable("Category", "Bugs")
		for _, c := range detail.BugCategories {
			if c.Count == 0 {
				continue
			}
			t.Row(c.Name, strconv.Itoa(c.Count))
		}
		fmt.Fprintln(out, t.Render())

		total := 0
		for _, n := range trend {
			total += n
		}
		fmt.Fprintf(out, "\n%d bugs opened in the last %d days\n", total, len(trend))

		if summary != nil && strings.TrimSpace(summary.Summary) != "" {
			fmt.Fprintf(out, "\n%s\n", strings.TrimSpace(summary.Summary))
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search bug reports, grouped by category",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := parseFilters(searchCategory, searchPriority)
		if err != nil {
			return err
		}
		id, err := resolveDbms(cmd.Context())
		if err != nil {
			return err
		}

		resp, err := client.SearchBugReports(cmd.Context(), id, api.SearchParams{
			Search:     strings.Join(args, " "),
			Limit:      searchLimit,
			CategoryID: filters.CategoryID(),
		})
		if err != nil {
			return err
		}

		var matched []models.BugReport
		for _, bug := range resp.BugReports {
			if filters.MatchesPriority(bug) {
				matched = append(matched, bug)
			}
		}

		out := cmd.OutOrStdout()
		if len(matched) == 0 {
			fmt.Fprintln(out, "No bugs found.")
			return nil
		}
		heading := lipgloss.NewStyle().Bold(true)
		for _, bucket := range category.GroupSearchResults(matched, category.Labels).Ordered() {
			fmt.Fprintln(out, heading.Render(string(bucket.Title)))
			for _, bug := range bucket.Bugs {
				fmt.Fprintf(out, "  #%d  %s\n", bug.BugReportID, category.Truncate(bug.Display, 70))
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

var bugCmd = &cobra.Command{
	Use:   "bug",
	Short: "Work with a single bug report",
}

var bugShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print a bug report with its discussions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid bug id %q", args[0])
		}
		if err := requireLogin(); err != nil {
			return err
		}

		var (
			bug         *models.BugReport
			discussions []models.Discussion
		)
		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() (err error) {
			bug, err = client.GetBugReport(ctx, id)
			return err
		})
		g.Go(func() (err error) {
			discussions, err = client.ListDiscussions(ctx, id)
			return err
		})
		if err := g.Wait(); err != nil {
			return err
		}
		if err := database.RecordRecentBug(*bug); err != nil {
			logger.Warn("failed to record recent bug", zap.Int64("bug_id", id), zap.Error(err))
		}

		printBug(cmd.OutOrStdout(), bug, discussions)
		return nil
	},
}

var themeCmd = &cobra.Command{
	Use:       "theme [dark|light]",
	Short:     "Show or set the colour theme",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{styles.Dark.Name, styles.Light.Name},
	RunE: func(cmd *cobra.Command, args []string) error {
		store := styles.NewThemeStore(database, cfg.Theme)
		if len(args) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), store.Load().Name)
			return nil
		}
		theme := styles.ThemeByName(args[0])
		if err := store.Save(theme); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Theme set to %s\n", theme.Name)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or edit the config file",
	// Works on the file alone so a broken config can still be fixed
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the config file with defaults filled in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFile()
		c, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "# %s\n", path)
		return yaml.NewEncoder(out).Encode(c)
	},
}

var configSetCmd = &cobra.Command{
	Use:       "set <key> <value>",
	Short:     "Change one setting in the config file",
	Args:      cobra.ExactArgs(2),
	ValidArgs: config.Keys,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFile()
		c, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		if err := c.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := c.Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s in %s\n", args[0], path)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	// No config, database or network needed
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "bugtrack %s (commit %s, built %s)\n", version, commit, date)
	},
}

func addCommands(root *cobra.Command) {
	for _, c := range []*cobra.Command{loginCmd, signupCmd} {
		c.Flags().StringVar(&loginEmail, "email", "", "Account email")
		c.Flags().StringVar(&loginPassword, "password", "", "Account password (prompted when omitted)")
	}
	signupCmd.Flags().StringVar(&signupName, "name", "", "Display name")

	for _, c := range []*cobra.Command{dbmsShowCmd, searchCmd} {
		c.Flags().Int64Var(&dbmsFlag, "dbms", 0, "DBMS id (default: the selected one)")
	}
	searchCmd.Flags().StringVarP(&searchCategory, "category", "c", "", "Category id or name")
	searchCmd.Flags().StringVarP(&searchPriority, "priority", "p", "", "Low, Medium, High or Unassigned")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 20, "Maximum number of results")

	dbmsCmd.AddCommand(dbmsListCmd, dbmsShowCmd, dbmsUseCmd)
	bugCmd.AddCommand(bugShowCmd)
	configCmd.AddCommand(configShowCmd, configSetCmd)
	root.AddCommand(loginCmd, signupCmd, logoutCmd, whoamiCmd, dbmsCmd, searchCmd, bugCmd, themeCmd, configCmd, versionCmd)
}

func requireLogin() error {
	if !authService.IsLoggedIn() {
		return fmt.Errorf("%w: run `bugtrack login` first", auth.ErrNotLoggedIn)
	}
	return nil
}

// resolveDbms returns --dbms or the stored selection
func resolveDbms(ctx context.Context) (int64, error) {
	if err := requireLogin(); err != nil {
		return 0, err
	}
	if dbmsFlag != 0 {
		return dbmsFlag, nil
	}
	if err := tenants.Load(ctx); err != nil {
		return 0, err
	}
	current, ok := tenants.Current()
	if !ok {
		return 0, errors.New("no database systems are tracked yet")
	}
	return current.ID, nil
}

// parseFilters turns the search flags into dashboard filter settings
func parseFilters(cat, priority string) (category.FilterSettings, error) {
	filters := category.DefaultFilters()

	if cat != "" {
		label, ok := matchLabel(cat)
		if !ok {
			return filters, fmt.Errorf("unknown category %q", cat)
		}
		filters.Category = label
	}

	if priority != "" {
		found := false
		for _, p := range models.Priorities {
			if strings.EqualFold(string(p), priority) {
				filters.Priority = category.PriorityFilter(p)
				found = true
				break
			}
		}
		if !found {
			return filters, fmt.Errorf("unknown priority %q", priority)
		}
	}
	return filters, nil
}

func matchLabel(s string) (category.Label, bool) {
	if id, err := strconv.Atoi(s); err == nil {
		return category.LabelOf(id)
	}
	for _, l := range category.Labels {
		if strings.EqualFold(string(l), s) {
			return l, true
		}
	}
	// Prefix match so "crash" finds "Crash / Segmentation Fault"
	for _, l := range category.Labels {
		if strings.HasPrefix(strings.ToLower(string(l)), strings.ToLower(s)) {
			return l, true
		}
	}
	return "", false
}

func credentials(cmd *cobra.Command) (string, string, error) {
	email := loginEmail
	var err error
	if email == "" {
		if email, err = prompt(cmd, "Email: "); err != nil {
			return "", "", err
		}
	}
	if !strings.Contains(email, "@") {
		return "", "", errors.New("please enter a valid email")
	}

	password := loginPassword
	if password == "" {
		if password, err = promptPassword(cmd, "Password: "); err != nil {
			return "", "", err
		}
	}
	if password == "" {
		return "", "", errors.New("password is required")
	}
	return email, password, nil
}

func prompt(cmd *cobra.Command, label string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), label)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func promptPassword(cmd *cobra.Command, label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if cmd.InOrStdin() != os.Stdin || !term.IsTerminal(fd) {
		return prompt(cmd, label)
	}
	fmt.Fprint(cmd.ErrOrStderr(), label)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

func newTable(headers ...string) *table.Table {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
}

func printBug(w io.Writer, bug *models.BugReport, discussions []models.Discussion) {
	bold := lipgloss.NewStyle().Bold(true)

	state := "open"
	if bug.IsClosed {
		state = "closed"
	}
	fmt.Fprintf(w, "%s\n", bold.Render(fmt.Sprintf("#%d %s", bug.ID, bug.Title)))
	fmt.Fprintf(w, "%s · %s · %s · %s\n", bug.Dbms, state, bug.Priority, orDash(bug.CategoryName()))
	if bug.VersionsAffected != "" {
		fmt.Fprintf(w, "Versions affected: %s\n", bug.VersionsAffected)
	}
	fmt.Fprintf(w, "Opened %s\n", bug.IssueCreatedAt.Local().Format("2006-01-02 15:04"))
	if bug.IssueClosedAt != nil {
		fmt.Fprintf(w, "Closed %s\n", bug.IssueClosedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(w, bug.URL)

	if desc := strings.TrimSpace(bug.DescriptionText()); desc != "" {
		fmt.Fprintf(w, "\n%s\n", desc)
	}

	if len(discussions) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", bold.Render(fmt.Sprintf("Discussions (%d)", len(discussions))))
	for _, d := range discussions {
		fmt.Fprintf(w, "\n%s · %s\n%s\n", d.Author.Name, d.CreatedAt.Local().Format("2006-01-02 15:04"), d.Content)
		for _, r := range d.Replies {
			fmt.Fprintf(w, "    ↳ %s · %s\n      %s\n", r.Author.Name, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Content)
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
