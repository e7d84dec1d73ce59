package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"loan-tracker/library"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries the wired-up manager between cobra hooks and handlers.
type app struct {
	cfg *library.Config
	log zerolog.Logger
	mgr *library.LoanManager
}

func (a *app) init() error {
	// A .env file is optional; the environment alone is fine.
	_ = godotenv.Load()

	cfg, err := library.LoadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = library.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	store, err := library.OpenStore(cfg)
	if err != nil {
		a.log.Error().Err(err).Msg("opening store")
		return err
	}
	mgr, err := library.NewLoanManager(store, cfg, a.log)
	if err != nil {
		store.Close()
		a.log.Error().Err(err).Msg("loading state")
		return err
	}
	a.mgr = mgr
	return nil
}

func (a *app) close() {
	if a.mgr != nil {
		if err := a.mgr.Close(); err != nil {
			a.log.Error().Err(err).Msg("closing store")
		}
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "loan-tracker",
		Short:        "Track library members, materials and loans",
		Long:         "A single-user library loan tracker. Run without arguments for an interactive session, or use the subcommands for scripted one-shot operations.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSession()
		},
	}

	root.AddCommand(
		newMemberCmd(a),
		newMaterialCmd(a),
		newLendCmd(a),
		newReturnCmd(a),
		newReportCmd(a),
	)
	return root
}

// ------------------ One-shot subcommands ------------------

func newMemberCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "member", Short: "Manage members"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <id> <name>",
			Short: "Register a member",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := a.mgr.RegisterMember(strings.Join(args[1:], " "), args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Registered member %s (id %s)\n", m.Name, m.ID)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List members",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a.printMembers()
				return nil
			},
		},
	)
	return cmd
}

func newMaterialCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "material", Short: "Manage the catalogue"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <title> <category> <stock>",
			Short: "Register a material",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				stock, err := strconv.Atoi(args[2])
				if err != nil {
					return fmt.Errorf("invalid stock %q: %w", args[2], err)
				}
				m, err := a.mgr.RegisterMaterial(args[0], args[1], stock)
				if err != nil {
					return err
				}
				fmt.Printf("Registered %s: %s (stock %d)\n", m.Category, m.Title, m.Stock)
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List the catalogue",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a.printMaterials()
				return nil
			},
		},
	)
	return cmd
}

func newLendCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lend <member-id> <title>",
		Short: "Lend a copy to a member",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			loan, err := a.mgr.Lend(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Lent '%s' to member %s\n", loan.Title, loan.MemberID)
			return nil
		},
	}
}

func newReturnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return <member-id> <title>",
		Short: "Return a copy and compute the fine",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fine, err := a.mgr.Return(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Return recorded. Fine: $%d\n", fine)
			return nil
		},
	}
}

func newReportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "report", Short: "Loan reports"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "active",
			Short: "List open loans",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a.printActiveLoans()
				return nil
			},
		},
		&cobra.Command{
			Use:   "overdue",
			Short: "List overdue loans with fines",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				a.printOverdueLoans()
				return nil
			},
		},
	)
	return cmd
}

// ------------------ Interactive session ------------------

func (a *app) runSession() error {
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("Library Loan Tracker")
	fmt.Println("Available commands:")
	fmt.Println("  Members:   add member, list members")
	fmt.Println("  Catalogue: add material, list materials")
	fmt.Println("  Loans:     lend, return")
	fmt.Println("  Reports:   report active, report overdue")
	fmt.Println("  System:    exit")

	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		cmd := strings.TrimSpace(scanner.Text())

		switch cmd {
		case "add member":
			a.handleAddMember(scanner)
		case "list members":
			a.printMembers()
		case "add material":
			a.handleAddMaterial(scanner)
		case "list materials":
			a.printMaterials()
		case "lend":
			a.handleLend(scanner)
		case "return":
			a.handleReturn(scanner)
		case "report active":
			a.printActiveLoans()
		case "report overdue":
			a.printOverdueLoans()
		case "exit":
			fmt.Println("Goodbye!")
			return nil
		case "":
		default:
			fmt.Println("Unknown command. Type one of the available commands listed above.")
		}
	}
	return scanner.Err()
}

func (a *app) handleAddMember(sc *bufio.Scanner) {
	name, ok := promptLine(sc, "Name: ")
	if !ok {
		return
	}
	id, ok := promptLine(sc, "Document id: ")
	if !ok {
		return
	}
	member, err := a.mgr.RegisterMember(name, id)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Member %s registered.\n", member.Name)
}

func (a *app) handleAddMaterial(sc *bufio.Scanner) {
	title, ok := promptLine(sc, "Title: ")
	if !ok {
		return
	}
	category, ok := promptLine(sc, "Category (Book/Magazine): ")
	if !ok {
		return
	}
	stock, ok := promptInt(sc, "Copies: ")
	if !ok {
		return
	}
	material, err := a.mgr.RegisterMaterial(title, category, stock)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Material '%s' registered.\n", material.Title)
}

func (a *app) handleLend(sc *bufio.Scanner) {
	memberID, ok := promptLine(sc, "Member id: ")
	if !ok {
		return
	}
	title, ok := promptLine(sc, "Title: ")
	if !ok {
		return
	}
	if _, err := a.mgr.Lend(memberID, title); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("Loan recorded.")
}

func (a *app) handleReturn(sc *bufio.Scanner) {
	memberID, ok := promptLine(sc, "Member id: ")
	if !ok {
		return
	}
	title, ok := promptLine(sc, "Title: ")
	if !ok {
		return
	}
	fine, err := a.mgr.Return(memberID, title)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("Return recorded. Fine: $%d\n", fine)
}

// ------------------ Rendering ------------------

func (a *app) printMembers() {
	members := a.mgr.Members()
	if len(members) == 0 {
		fmt.Println("No members registered.")
		return
	}
	fmt.Printf("%-15s %-30s\n", "ID", "Name")
	fmt.Println(strings.Repeat("-", 46))
	for _, m := range members {
		fmt.Printf("%-15s %-30s\n", m.ID, m.Name)
	}
}

func (a *app) printMaterials() {
	materials := a.mgr.Materials()
	if len(materials) == 0 {
		fmt.Println("Catalogue is empty.")
		return
	}
	fmt.Printf("%-30s %-15s %6s\n", "Title", "Category", "Stock")
	fmt.Println(strings.Repeat("-", 53))
	for _, m := range materials {
		fmt.Printf("%-30s %-15s %6d\n", truncateString(m.Title, 30), truncateString(m.Category, 15), m.Stock)
	}
}

func (a *app) printActiveLoans() {
	loans := a.mgr.ActiveLoans()
	if len(loans) == 0 {
		fmt.Println("(no active loans)")
		return
	}
	for _, loan := range loans {
		fmt.Printf("- %s has '%s' since %s\n", a.memberName(loan.MemberID), loan.Title, loan.LentAt.Format("2006-01-02"))
	}
}

func (a *app) printOverdueLoans() {
	overdue := a.mgr.OverdueLoans()
	if len(overdue) == 0 {
		fmt.Println("(no overdue loans)")
		return
	}
	for _, entry := range overdue {
		fmt.Printf("- %s owes $%d for '%s'\n", a.memberName(entry.Loan.MemberID), entry.Fine, entry.Loan.Title)
	}
}

func (a *app) memberName(id string) string {
	if member, err := a.mgr.MemberByID(id); err == nil {
		return member.Name
	}
	return id
}

// ------------------ Prompt helpers ------------------

func promptLine(sc *bufio.Scanner, prompt string) (string, bool) {
	fmt.Print(prompt)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

// promptInt re-prompts until the input parses as a whole number.
func promptInt(sc *bufio.Scanner, prompt string) (int, bool) {
	for {
		fmt.Print(prompt)
		if !sc.Scan() {
			return 0, false
		}
		n, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
		if err != nil {
			fmt.Println("Please enter a valid whole number.")
			continue
		}
		return n, true
	}
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}
