package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nbrandt/espalier"
	"github.com/nbrandt/espalier/pkg/adapters/memory"
	"github.com/nbrandt/espalier/pkg/adapters/skillfile"
	"github.com/nbrandt/espalier/pkg/domain"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interactive conversation in the terminal",
	Long:  `Loads the skills directory and starts a single-channel conversation on stdin/stdout. Use /start <package> to launch a skill, /cancel to abandon it and /quit to leave.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("skills")
		if len(args) > 0 {
			dir = args[0]
		}
		plain, _ := cmd.Flags().GetBool("plain")

		if err := runSession(dir, plain); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("plain", false, "Disable banner and markdown rendering")
}

func runSession(dir string, plain bool) error {
	eng := espalier.New()

	skills, err := skillfile.LoadDir(dir, eng.Registry())
	if err != nil {
		return err
	}
	if len(skills) == 0 {
		return fmt.Errorf("no skill files found in %s", dir)
	}

	bd := memory.NewBinder("local", "cli", "terminal")
	for _, skill := range skills {
		bd.AddSkill(skill)
	}

	interactive := !plain && term.IsTerminal(int(os.Stdout.Fd()))
	if interactive {
		printBanner(espalier.Version)
	}
	render := newRenderer(interactive)

	fmt.Printf("Loaded %d skill(s):\n", len(skills))
	for _, skill := range skills {
		fmt.Printf("  /start %s\n", skill.Package)
	}
	fmt.Println()

	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		st := &domain.InputStatement{UserID: "local", Text: line}
		switch {
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/cancel":
			st.Flag = domain.FlagCancelSkill
			st.Text = ""
		case strings.HasPrefix(line, "/start "):
			st.Flag = domain.FlagStartSkill
			st.Text = ""
			st.Input = strings.TrimSpace(strings.TrimPrefix(line, "/start "))
		case line == "":
			continue
		}

		if err := eng.Handle(ctx, bd, st); err != nil {
			fmt.Printf("! %v\n", err)
			continue
		}
		for _, out := range bd.Drain() {
			printReply(out, render)
		}
	}
}

// newRenderer returns the text printer: glamour markdown in an
// interactive terminal, plain passthrough otherwise.
func newRenderer(interactive bool) func(string) string {
	if !interactive {
		return func(s string) string { return s + "\n" }
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle())
	if err != nil {
		return func(s string) string { return s + "\n" }
	}
	return func(s string) string {
		rendered, err := r.Render(s)
		if err != nil {
			return s + "\n"
		}
		return rendered
	}
}

func printReply(out *domain.OutputStatement, render func(string) string) {
	for _, node := range out.Nodes {
		switch node.Kind {
		case domain.NodeText, domain.NodeNotification:
			fmt.Print(render(node.Text()))
		case domain.NodeOAuth:
			fmt.Printf("[authorize] %s\n", node.Text())
		case domain.NodePayment:
			if urls, ok := node.Data.(map[string]string); ok {
				for component, u := range urls {
					fmt.Printf("[pay via %s] %s\n", component, u)
				}
			}
		case domain.NodeSearch:
			if inner, ok := node.Inner(); ok {
				fmt.Printf("  - %s\n", labelOr(node, inner))
			}
		default:
			fmt.Printf("[%s] %v\n", node.Kind, node.Data)
		}
	}
}

func labelOr(wrapper, inner domain.Node) string {
	if label := wrapper.Label(); label != "" {
		return label
	}
	return inner.Text()
}
