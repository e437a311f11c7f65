package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vidrag/internal/core/ports/driving"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question from the stored support content",
	Long: `Retrieves the chunks most relevant to the question and asks the language
model to answer using only them. The answer is printed as it is generated.
When nothing relevant is stored, the fallback message is printed instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	chat, err := deps.Chat(cmd.Context())
	if err != nil {
		return err
	}
	return streamAnswer(cmd, chat, strings.Join(args, " "))
}

// streamAnswer prints the answer to query fragment by fragment.
func streamAnswer(cmd *cobra.Command, chat driving.ChatService, query string) error {
	stream, err := chat.AnswerStream(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}
	defer stream.Close()

	out := cmd.OutOrStdout()
	for {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Fprintln(out)
			return fmt.Errorf("answer failed: %w", err)
		}
		fmt.Fprint(out, fragment)
	}
	fmt.Fprintln(out)
	return nil
}
