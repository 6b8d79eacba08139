package cmds

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/go-go-golems/parley/pkg/api"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Manage the question pool",
}

var (
	questionTopicID string
	questionTags    []string
	questionText    string
	questionMinutes int
)

var questionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List questions, optionally narrowed to a topic or tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newEngineClient()
		if err != nil {
			return err
		}
		questions, err := client.ListQuestions(cmd.Context(), cfg.Engine.UserID, questionTopicID, questionTags)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tMINUTES\tTAGS\tQUESTION")
		for _, q := range questions {
			mins := "-"
			if q.TimeMinutes != nil {
				mins = fmt.Sprintf("%d", *q.TimeMinutes)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", q.ID, mins, strings.Join(q.Tags, ","), q.Text)
		}
		return w.Flush()
	},
}

var questionsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Add a question to a topic's pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		if questionTopicID == "" || questionText == "" {
			return fmt.Errorf("--topic and --text are required")
		}
		client, err := newEngineClient()
		if err != nil {
			return err
		}
		req := api.QuestionCreateRequest{
			TopicID:  questionTopicID,
			Question: questionText,
			Tags:     questionTags,
		}
		if questionMinutes > 0 {
			req.TimeMinutes = &questionMinutes
		}
		q, err := client.CreateQuestion(cmd.Context(), cfg.Engine.UserID, req)
		if err != nil {
			return err
		}
		fmt.Printf("created question %s\n", q.ID)
		return nil
	},
}

var questionsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a question",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newEngineClient()
		if err != nil {
			return err
		}
		req := api.QuestionUpdateRequest{Tags: questionTags}
		if questionText != "" {
			req.Question = &questionText
		}
		if questionTopicID != "" {
			req.TopicID = &questionTopicID
		}
		if questionMinutes > 0 {
			req.TimeMinutes = &questionMinutes
		}
		q, err := client.UpdateQuestion(cmd.Context(), cfg.Engine.UserID, args[0], req)
		if err != nil {
			return err
		}
		fmt.Printf("updated question %s\n", q.ID)
		return nil
	},
}

var questionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a question",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newEngineClient()
		if err != nil {
			return err
		}
		if err := client.DeleteQuestion(cmd.Context(), cfg.Engine.UserID, args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted question %s\n", args[0])
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{questionsListCmd, questionsCreateCmd, questionsUpdateCmd} {
		c.Flags().StringVar(&questionTopicID, "topic", "", "topic id")
		c.Flags().StringSliceVar(&questionTags, "tags", nil, "question tags")
	}
	for _, c := range []*cobra.Command{questionsCreateCmd, questionsUpdateCmd} {
		c.Flags().StringVar(&questionText, "text", "", "question text")
		c.Flags().IntVar(&questionMinutes, "minutes", 0, "answer allowance in minutes")
	}

	questionsCmd.AddCommand(questionsListCmd)
	questionsCmd.AddCommand(questionsCreateCmd)
	questionsCmd.AddCommand(questionsUpdateCmd)
	questionsCmd.AddCommand(questionsDeleteCmd)
}
