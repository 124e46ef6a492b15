package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/staffkit/staff-matcher/internal/ai"
	"github.com/staffkit/staff-matcher/internal/filtering"
	"github.com/staffkit/staff-matcher/internal/logger"
	"github.com/staffkit/staff-matcher/internal/roster"
	"github.com/staffkit/staff-matcher/internal/session"
	"github.com/staffkit/staff-matcher/internal/store"
)

const (
	PromptShowTable = "Show process table"
	PromptFilter    = "Filter process table"
	PromptAdd       = "Add a new employee"
	PromptEmployees = "List employees"
	PromptHistory   = "Show assignment history"
	PromptExport    = "Export process table"
	PromptQuit      = "Quit"

	PromptYes = "Yes"
	PromptNo  = "No"
	PromptAll = "All"

	defaultExportFile = "process_data.csv"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Choose an action",
	Items: []string{
		PromptShowTable, PromptFilter, PromptAdd, PromptEmployees,
		PromptHistory, PromptExport, PromptQuit,
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the interactive matcher session",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("data", "f", "", "process table CSV to load. Overrides the config value.")

	viper.BindPFlag("data", runCmd.Flags().Lookup("data"))
}

// run is the main command for the cli.
func run(_ *cobra.Command) {
	ctx := context.Background()

	zlog, err := newLogger()
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zlog.Fatal("getting a config", zap.Error(err))
	}

	zlog.Info("starting the staff-matcher", zap.String("version", version))

	sess, closeStore, err := newSession(ctx, config, zlog)
	if err != nil {
		zlog.Fatal("creating a session", zap.Error(err))
	}
	defer closeStore()

	dataPath := strings.TrimSpace(viper.GetString("data"))
	if dataPath == "" {
		dataPath = strings.TrimSpace(config.Data)
	}

	if dataPath != "" {
		if err := sess.Load(dataPath); err != nil {
			zlog.Fatal("loading process table", zap.Error(err))
		}
	} else {
		restored, err := sess.Restore()
		if err != nil {
			zlog.Fatal("restoring process table", zap.Error(err))
		}
		if !restored {
			zlog.Fatal("no process table available",
				zap.String("hint", "pass --data or set 'data' in the configuration file"),
			)
		}
		zlog.Info("restored process table from database", zap.Int("processes", sess.Table().Len()))
	}

	advisor, err := newAdvisor(ctx, config.AI, zlog)
	if err != nil {
		zlog.Warn("skipping ai advisor", zap.Error(err))
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			zlog.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(ctx, action, sess, advisor, zlog); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			zlog.Fatal("exiting", zap.Error(err))
		}
	}
}

func newLogger() (*zap.Logger, error) {
	return logger.New(viper.GetBool("json"), viper.GetBool("debug"))
}

func newSession(ctx context.Context, config *Config, zlog *zap.Logger) (*session.Session, func(), error) {
	st, err := store.NewSQLiteStore(config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}

	sess, err := session.New(ctx, st, zlog)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}

	return sess, func() { _ = st.Close() }, nil
}

func handleAction(ctx context.Context, action string, sess *session.Session, advisor ai.Advisor, zlog *zap.Logger) error {
	switch action {
	case PromptShowTable:
		printTable(sess.Table())
		return nil
	case PromptFilter:
		return filterTable(sess, zlog)
	case PromptAdd:
		return addEmployee(ctx, sess, advisor, zlog)
	case PromptEmployees:
		return printEmployees(sess)
	case PromptHistory:
		return printHistory(sess)
	case PromptExport:
		return exportTable(sess)
	case PromptQuit:
		zlog.Info("exiting", zap.String("reason", "quit requested"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func printTable(t *roster.Table) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROCESS\tPOTENTIAL\tCOMMUNICATION\tVACANCY")
	for _, p := range t.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", p.Name, p.Potential, p.Communication, p.Vacancy)
	}
	w.Flush()
	fmt.Printf("%d processes, %d open vacancies\n", t.Len(), t.TotalVacancies())
}

func filterTable(sess *session.Session, zlog *zap.Logger) error {
	potential, err := selectCategory("Filter by potential", potentialItems())
	if err != nil {
		return err
	}

	communication, err := selectCategory("Filter by communication", communicationItems())
	if err != nil {
		return err
	}

	_, vacantOnly, err := (&promptui.Select{
		Label: "Only processes with open vacancies?",
		Items: []string{PromptNo, PromptYes},
	}).Run()
	if err != nil {
		return err
	}

	var potentials []roster.Potential
	if potential != PromptAll {
		potentials = append(potentials, roster.Potential(potential))
	}

	var communications []roster.Communication
	if communication != PromptAll {
		communications = append(communications, roster.Communication(communication))
	}

	steps := []filtering.Filter{
		filtering.NewPotential(potentials),
		filtering.NewCommunication(communications),
		filtering.NewVacantOnly(vacantOnly == PromptYes),
	}

	filtered, err := filtering.Run(steps, sess.Table(), zlog)
	if err != nil {
		return err
	}

	printTable(filtered)
	return nil
}

func addEmployee(ctx context.Context, sess *session.Session, advisor ai.Advisor, zlog *zap.Logger) error {
	name, err := (&promptui.Prompt{
		Label:    "Employee name",
		Validate: notEmpty("name"),
	}).Run()
	if err != nil {
		return err
	}

	email, err := (&promptui.Prompt{
		Label: "Employee email",
		Validate: func(s string) error {
			if !strings.Contains(s, "@") {
				return errors.New("email must contain @")
			}
			return nil
		},
	}).Run()
	if err != nil {
		return err
	}

	potential, err := selectCategory("Potential", categoryItems(potentialItems()))
	if err != nil {
		return err
	}

	communication, err := selectCategory("Communication", categoryItems(communicationItems()))
	if err != nil {
		return err
	}

	showSuggestions(ctx, sess, advisor,
		roster.Potential(potential), roster.Communication(communication), name, zlog)

	result, err := sess.AddEmployee(name, email,
		roster.Potential(potential), roster.Communication(communication), false)
	if err != nil {
		var invalid *roster.InvalidCategoryError
		if errors.As(err, &invalid) || errors.Is(err, store.ErrDuplicateEmail) {
			fmt.Println(err)
			return nil
		}
		return err
	}

	if result.Matched {
		fmt.Printf("Assigned %s to %q (%s match, %d vacancies left)\n",
			name, result.Process.Name, result.Outcome, result.Process.Vacancy)
		return nil
	}

	fmt.Println("No Match Found")

	_, unassigned, err := (&promptui.Select{
		Label: "Add the employee without an assignment?",
		Items: []string{PromptNo, PromptYes},
	}).Run()
	if err != nil {
		return err
	}

	if unassigned != PromptYes {
		return nil
	}

	// The no-match outcome was already reported above; record without
	// running the matcher again.
	if _, err := sess.AddUnassigned(name, email,
		roster.Potential(potential), roster.Communication(communication)); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			fmt.Println(err)
			return nil
		}
		return err
	}

	fmt.Printf("Added %s without a process assignment\n", name)
	return nil
}

func showSuggestions(ctx context.Context, sess *session.Session, advisor ai.Advisor, potential roster.Potential, communication roster.Communication, name string, zlog *zap.Logger) {
	suggestions, err := sess.Suggestions(potential, communication)
	if err != nil || len(suggestions) == 0 {
		return
	}

	fmt.Println("Closest processes with open vacancies:")
	for _, s := range suggestions {
		fmt.Printf("  %s (potential %s, communication %s, vacancy %d)\n",
			s.Process.Name, s.Process.Potential, s.Process.Communication, s.Process.Vacancy)
	}

	if advisor == nil {
		return
	}

	placement := &ai.Placement{
		EmployeeName:  name,
		Potential:     potential,
		Communication: communication,
	}

	recommendation, err := advisor.Advise(ctx, placement, suggestions)
	if err != nil {
		zlog.Warn("advisor failed", zap.Error(err))
		return
	}

	fmt.Printf("Advisor note: %s\n", recommendation.Note)
}

func printEmployees(sess *session.Session) error {
	employees, err := sess.Employees()
	if err != nil {
		return err
	}

	if employees.Len() == 0 {
		fmt.Println("No employees recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tEMAIL\tPOTENTIAL\tCOMMUNICATION\tPROCESS")
	for _, e := range employees.Items {
		process := e.AssignedProcess
		if process == "" {
			process = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.Name, e.Email, e.Potential, e.Communication, process)
	}
	return w.Flush()
}

func printHistory(sess *session.Session) error {
	history, err := sess.History()
	if err != nil {
		return err
	}

	if len(history) == 0 {
		fmt.Println("No assignments recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tASSIGNMENTS\tMATCHED\tNO MATCH")
	for _, entry := range history {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", entry.Date, entry.Assignments, entry.Matched, entry.Unmatched)
	}
	return w.Flush()
}

func exportTable(sess *session.Session) error {
	path, err := (&promptui.Prompt{
		Label:   "Export file",
		Default: defaultExportFile,
	}).Run()
	if err != nil {
		return err
	}

	if err := sess.Export(path); err != nil {
		return err
	}

	fmt.Printf("Exported to %s\n", path)
	return nil
}

func selectCategory(label string, items []string) (string, error) {
	_, selected, err := (&promptui.Select{Label: label, Items: items}).Run()
	return selected, err
}

func potentialItems() []string {
	items := []string{PromptAll}
	for _, p := range roster.Potentials() {
		items = append(items, string(p))
	}
	return items
}

func communicationItems() []string {
	items := []string{PromptAll}
	for _, c := range roster.Communications() {
		items = append(items, string(c))
	}
	return items
}

// categoryItems strips the leading All entry for prompts that require a
// concrete category.
func categoryItems(items []string) []string {
	return items[1:]
}

func notEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s must not be empty", field)
		}
		return nil
	}
}
