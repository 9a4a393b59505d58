package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sidekick/internal/config"
	"sidekick/internal/history"
	"sidekick/internal/identity"
	"sidekick/internal/storage"
	"sidekick/internal/transcript"
)

var importMerge bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage stored chat history",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored chats for the configured account",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, account, closeFn, err := openHistory()
		if err != nil {
			return err
		}
		defer closeFn()

		chats, err := store.ListChats(account)
		if err != nil {
			return err
		}
		if len(chats) == 0 {
			fmt.Println("No stored chats.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tCREATED\tMESSAGES\tTITLE")
		for _, c := range chats {
			title := c.Title
			if title == "" {
				title = "(untitled)"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
				c.ID, c.CreatedAt.Local().Format("2006-01-02 15:04"), len(c.Messages), title)
		}
		return w.Flush()
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete [chat-id]",
	Short: "Delete one stored chat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, account, closeFn, err := openHistory()
		if err != nil {
			return err
		}
		defer closeFn()
		return store.DeleteChat(account, args[0])
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export all stored chats as JSON (stdout when no file is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, account, closeFn, err := openHistory()
		if err != nil {
			return err
		}
		defer closeFn()

		chats, err := store.ListChats(account)
		if err != nil {
			return err
		}
		out := io.Writer(os.Stdout)
		if len(args) == 1 {
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(chats)
	},
}

var historyImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import chats from a JSON export",
	Long: `Reads a JSON export produced by "sidekick history export" and stores
its chats under the configured account. By default the account's stored
history is replaced with the export; --merge keeps existing chats,
overwriting only those whose id also appears in the export.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var sessions []*transcript.Transcript
		if err := json.Unmarshal(data, &sessions); err != nil {
			return fmt.Errorf("parse export %s: %w", args[0], err)
		}

		store, account, closeFn, err := openHistory()
		if err != nil {
			return err
		}
		defer closeFn()

		if err := store.ImportHistory(account, sessions, importMerge); err != nil {
			return err
		}
		fmt.Printf("Imported %d chats.\n", len(sessions))
		return nil
	},
}

func init() {
	historyImportCmd.Flags().BoolVar(&importMerge, "merge", false, "keep existing chats with the same id")
	historyCmd.AddCommand(historyListCmd, historyDeleteCmd, historyExportCmd, historyImportCmd)
}

// openHistory wires just enough of the graph for the history subcommands.
func openHistory() (*history.Store, identity.Account, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, identity.Anonymous, nil, err
	}
	path := cfg.Storage.Path
	if dbPath != "" {
		path = dbPath
	}
	kv, err := storage.OpenSQLite(path, logger)
	if err != nil {
		return nil, identity.Anonymous, nil, fmt.Errorf("open history database: %w", err)
	}
	account := identity.Account{
		Authenticated: cfg.Account.Endpoint != "" && cfg.Account.Username != "",
		Endpoint:      cfg.Account.Endpoint,
		Username:      cfg.Account.Username,
	}
	if !account.Authenticated {
		kv.Close()
		return nil, identity.Anonymous, nil, fmt.Errorf("no account configured; set account.endpoint and account.username in %s", configPath)
	}
	store := history.New(kv, cfg.Storage.BudgetKB*1024, logger)
	return store, account, func() { _ = kv.Close() }, nil
}
