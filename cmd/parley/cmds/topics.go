package cmds

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/go-go-golems/parley/pkg/api"
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "Manage interview topics",
}

var topicsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newEngineClient()
		if err != nil {
			return err
		}
		topics, err := client.ListTopics(cmd.Context(), cfg.Engine.UserID)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTOPIC")
		for _, t := range topics {
			fmt.Fprintf(w, "%s\t%s\n", t.ID, t.Topic)
		}
		return w.Flush()
	},
}

var topicsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newEngineClient()
		if err != nil {
			return err
		}
		topic, err := client.CreateTopic(cmd.Context(), cfg.Engine.UserID, api.TopicCreateRequest{Topic: args[0]})
		if err != nil {
			return err
		}
		fmt.Printf("created topic %s (%s)\n", topic.Topic, topic.ID)
		return nil
	},
}

func init() {
	topicsCmd.AddCommand(topicsListCmd)
	topicsCmd.AddCommand(topicsCreateCmd)
}
