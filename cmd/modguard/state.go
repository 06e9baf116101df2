package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/quailyquaily/modguard/internal/clifmt"
	"github.com/quailyquaily/modguard/internal/configutil"
	"github.com/quailyquaily/modguard/internal/logutil"
	"github.com/quailyquaily/modguard/internal/modstore"
	"github.com/quailyquaily/modguard/internal/pathutil"
	"github.com/quailyquaily/modguard/internal/statepaths"
	"github.com/spf13/cobra"
)

func newStateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect the moderation state",
	}
	cmd.AddCommand(newStateShowCmd())
	return cmd
}

func newStateShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print moderated chats, warning counters and keywords",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := statepaths.StatePath()
			if p := strings.TrimSpace(configutil.FlagOrViperString(cmd, "state-path", "")); p != "" {
				path = pathutil.ExpandHomePath(p)
			}
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			store, err := modstore.Open(path, modstore.Options{Logger: logger})
			if err != nil {
				return err
			}
			defer store.Close()

			if configutil.FlagOrViperBool(cmd, "json", "") {
				return writeStateJSON(cmd.OutOrStdout(), store)
			}
			writeStateTables(cmd.OutOrStdout(), store)
			return nil
		},
	}
	cmd.Flags().String("state-path", "", "State snapshot path (defaults to <file_state_dir>/moderation_state.json).")
	cmd.Flags().Bool("json", false, "Print JSON instead of tables.")
	return cmd
}

type stateView struct {
	Chats    []chatView `json:"moderated_chats"`
	Keywords []string   `json:"global_keywords"`
}

type chatView struct {
	ID       int64          `json:"id"`
	Title    string         `json:"title"`
	Warnings map[string]int `json:"warnings"`
}

func buildStateView(store *modstore.Store) stateView {
	chats := store.ListChats()
	ids := make([]int64, 0, len(chats))
	for id := range chats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	view := stateView{Chats: make([]chatView, 0, len(ids)), Keywords: store.ListKeywords()}
	for _, id := range ids {
		warnings := make(map[string]int, len(chats[id].Warnings))
		for uid, n := range chats[id].Warnings {
			warnings[strconv.FormatInt(uid, 10)] = n
		}
		view.Chats = append(view.Chats, chatView{ID: id, Title: chats[id].Title, Warnings: warnings})
	}
	if view.Keywords == nil {
		view.Keywords = []string{}
	}
	return view
}

func writeStateJSON(out io.Writer, store *modstore.Store) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(buildStateView(store))
}

func writeStateTables(out io.Writer, store *modstore.Store) {
	view := buildStateView(store)
	rows := make([][]string, 0, len(view.Chats))
	for _, c := range view.Chats {
		rows = append(rows, []string{strconv.FormatInt(c.ID, 10), c.Title, formatWarnings(c.Warnings)})
	}
	clifmt.PrintTable(out, clifmt.TableOptions{
		Title:     "Moderated chats",
		Headers:   []string{"CHAT", "TITLE", "WARNINGS"},
		Rows:      rows,
		EmptyText: "No moderated chats.",
	})
	_, _ = fmt.Fprintln(out)

	kwRows := make([][]string, 0, len(view.Keywords))
	for i, kw := range view.Keywords {
		kwRows = append(kwRows, []string{strconv.Itoa(i + 1), kw})
	}
	clifmt.PrintTable(out, clifmt.TableOptions{
		Title:     "Keywords",
		Headers:   []string{"#", "KEYWORD"},
		Rows:      kwRows,
		EmptyText: "No keywords.",
	})
}

// formatWarnings renders "user:count" pairs ordered by user id.
func formatWarnings(w map[string]int) string {
	if len(w) == 0 {
		return "-"
	}
	users := make([]int64, 0, len(w))
	for k := range w {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		users = append(users, id)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	parts := make([]string, 0, len(users))
	for _, id := range users {
		parts = append(parts, fmt.Sprintf("%d:%d", id, w[strconv.FormatInt(id, 10)]))
	}
	return strings.Join(parts, " ")
}
