package cmds

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/go-go-golems/parley/pkg/api"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Browse past interview sessions",
}

var (
	sessionStatus string
	sessionTopic  string
	sessionLimit  int
	sessionOffset int
)

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newEngineClient()
		if err != nil {
			return err
		}
		listing, err := client.ListSessions(cmd.Context(), cfg.Engine.UserID, api.SessionFilters{
			Status:  sessionStatus,
			TopicID: sessionTopic,
			Limit:   sessionLimit,
			Offset:  sessionOffset,
		})
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SESSION\tTOPIC\tSTARTED\tSTATUS\tTECH\tGRAMMAR")
		for _, s := range listing.Sessions {
			tech, grammar := "-", "-"
			if s.TechnicalScore != nil {
				tech = fmt.Sprintf("%d", *s.TechnicalScore)
			}
			if s.GrammaticalScore != nil {
				grammar = fmt.Sprintf("%d", *s.GrammaticalScore)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				s.SessionID, s.TopicName, s.StartedAt, s.Status, tech, grammar)
		}
		return w.Flush()
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one past session with its conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newEngineClient()
		if err != nil {
			return err
		}
		detail, err := client.GetSession(cmd.Context(), cfg.Engine.UserID, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Session %s — %s (%s)\n", detail.SessionID, detail.TopicName, detail.Status)
		fmt.Printf("Started %s", detail.StartedAt)
		if detail.EndedAt != "" {
			fmt.Printf(", ended %s", detail.EndedAt)
		}
		fmt.Println()
		for _, msg := range detail.Conversation {
			fmt.Printf("\n[%s] %s\n", msg.Sender, msg.Text)
		}
		if detail.Summary != nil {
			fmt.Printf("\nTechnical %d/10, grammatical %d/10, off-topic answers: %d\n",
				detail.Summary.TechnicalScore, detail.Summary.GrammaticalScore, detail.Summary.OffTopicCount)
		}
		return nil
	},
}

func init() {
	sessionsListCmd.Flags().StringVar(&sessionStatus, "status", "", "filter by status")
	sessionsListCmd.Flags().StringVar(&sessionTopic, "topic", "", "filter by topic id")
	sessionsListCmd.Flags().IntVar(&sessionLimit, "limit", 10, "page size")
	sessionsListCmd.Flags().IntVar(&sessionOffset, "offset", 0, "page offset")

	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
}
