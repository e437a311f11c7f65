package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/vidrag/internal/adapters/driving/tui"
	"github.com/custodia-labs/vidrag/internal/core/ports/driving"
)

var chatPlain bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Long: `Opens an interactive chat over the stored support content.

On a terminal this launches the full-screen chat UI:
  Enter      - Send question
  PgUp/PgDn  - Scroll transcript
  Ctrl+L     - Clear transcript
  Esc        - Quit

When input is not a terminal, or with --plain, each input line is answered
in turn and an empty line or "exit" ends the session.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "line-based chat without the full-screen UI")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	chat, err := deps.Chat(cmd.Context())
	if err != nil {
		return err
	}

	if chatPlain || !isTerminal() {
		return chatLines(cmd, chat)
	}

	model := ""
	if llm, err := deps.LLM(); err == nil {
		model = llm.ModelName()
	}
	app, err := tui.NewApp(&tui.Ports{Chat: chat, ModelName: model})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	if err := app.WithContext(cmd.Context()).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// chatLines answers one question per input line until EOF, a blank line or "exit".
func chatLines(cmd *cobra.Command, chat driving.ChatService) error {
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			cmd.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line == "exit" {
			return nil
		}
		if err := streamAnswer(cmd, chat, line); err != nil {
			cmd.PrintErrln(err)
		}
	}
}
