package admin

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/quailyquaily/modguard/internal/keywords"
	"github.com/quailyquaily/modguard/internal/session"
)

const helpText = `Choose a section: Chats or Words. Commands:
/add_chat <chat_id> [title]
/remove_chat <chat_id>
/list_chats
/add_keyword <words, comma separated>
/remove_keyword <words, comma separated>
/list_keywords
/warnings <chat_id> [user_id]
/reset_warning <chat_id> <user_id>
/menu`

// runStep interprets text under the pending session state.
func (r *Router) runStep(ctx context.Context, sess session.Session, text string) (string, keyboardMode, error) {
	args := strings.Fields(text)
	switch sess.State {
	case session.AwaitAddChat:
		return r.addChat(args)
	case session.AwaitRemoveChat:
		if len(args) == 0 {
			return "", keyboardChats, invalidf("chat_id is required")
		}
		id, err := parseID(args[0], "chat_id")
		if err != nil {
			return "", keyboardChats, err
		}
		return r.removeChat(id)
	case session.AwaitAddKeyword:
		return r.addKeywords(text)
	case session.AwaitRemoveKeyword:
		return r.removeKeywords(text)
	case session.AwaitWarningsQuery:
		return r.warnings(args)
	case session.AwaitResetWarning:
		return r.resetWarning(args)
	case session.AwaitAddChatChoose, session.AwaitRemoveChatChoose:
		return "", keyboardChats, invalidf("pick a chat with the keyboard button")
	default:
		return "", keyboardRoot, invalidf("nothing to do")
	}
}

// runCommand executes a slash command. Commands that need arguments and get
// none ask for them instead.
func (r *Router) runCommand(ctx context.Context, logger *slog.Logger, chat int64, cmd string, args []string) {
	var (
		reply string
		mode  keyboardMode
		err   error
	)
	switch cmd {
	case "/add_chat":
		if len(args) == 0 {
			r.prompt(ctx, chat, session.AwaitAddChat)
			return
		}
		reply, mode, err = r.addChat(args)
	case "/remove_chat":
		if len(args) == 0 {
			r.prompt(ctx, chat, session.AwaitRemoveChat)
			return
		}
		var id int64
		if id, err = parseID(args[0], "chat_id"); err == nil {
			reply, mode, err = r.removeChat(id)
		}
	case "/list_chats":
		reply, mode = r.listChats(ctx, logger), keyboardChats
	case "/add_keyword":
		if len(args) == 0 {
			r.prompt(ctx, chat, session.AwaitAddKeyword)
			return
		}
		reply, mode, err = r.addKeywords(strings.Join(args, " "))
	case "/remove_keyword":
		if len(args) == 0 {
			r.prompt(ctx, chat, session.AwaitRemoveKeyword)
			return
		}
		reply, mode, err = r.removeKeywords(strings.Join(args, " "))
	case "/list_keywords":
		reply, mode = r.listKeywords(), keyboardWords
	case "/warnings":
		if len(args) == 0 {
			r.prompt(ctx, chat, session.AwaitWarningsQuery)
			return
		}
		reply, mode, err = r.warnings(args)
	case "/reset_warning":
		if len(args) == 0 {
			r.prompt(ctx, chat, session.AwaitResetWarning)
			return
		}
		reply, mode, err = r.resetWarning(args)
	default:
		logger.Debug("admin_unknown_command", "command", cmd)
		r.showRootMenu(ctx, chat, "Unknown command. Press Help or Menu.")
		return
	}
	r.respond(ctx, logger, chat, reply, mode, err)
}

func (r *Router) addChat(args []string) (string, keyboardMode, error) {
	if len(args) == 0 {
		return "", keyboardChats, invalidf("chat_id is required: <chat_id> [title]")
	}
	id, err := parseID(args[0], "chat_id")
	if err != nil {
		return "", keyboardChats, err
	}
	created, err := r.store.AddChat(id, joinTitle(args[1:]))
	if err != nil {
		return "", keyboardChats, err
	}
	if created {
		return fmt.Sprintf("Chat %d added.", id), keyboardChats, nil
	}
	return fmt.Sprintf("Chat %d is already listed. Details updated.", id), keyboardChats, nil
}

// addSharedChat registers a chat picked through a request_chat button and
// captures its title when the chat is reachable.
func (r *Router) addSharedChat(ctx context.Context, logger *slog.Logger, id int64) (string, keyboardMode, error) {
	created, err := r.store.AddChat(id, "")
	if err != nil {
		return "", keyboardChats, err
	}
	if info, err := r.api.GetChat(ctx, id); err != nil {
		logger.Debug("admin_get_chat_failed", "chat_id", id, "error", err.Error())
	} else if err := r.store.UpdateTitle(id, info.Title); err != nil {
		logger.Warn("admin_update_title_failed", "chat_id", id, "error", err.Error())
	}
	if created {
		return fmt.Sprintf("Chat %d added.", id), keyboardChats, nil
	}
	return fmt.Sprintf("Chat %d is already listed.", id), keyboardChats, nil
}

func (r *Router) removeChat(id int64) (string, keyboardMode, error) {
	present, err := r.store.RemoveChat(id)
	if err != nil {
		return "", keyboardChats, err
	}
	if present {
		return fmt.Sprintf("Chat %d removed.", id), keyboardChats, nil
	}
	return fmt.Sprintf("Chat %d not found.", id), keyboardChats, nil
}

func (r *Router) addKeywords(raw string) (string, keyboardMode, error) {
	words := keywords.ParseList(raw)
	if len(words) == 0 {
		return "", keyboardWords, invalidf("send words separated by commas")
	}
	added, err := r.store.AddKeywords(words)
	if err != nil {
		return "", keyboardWords, err
	}
	if added == 0 {
		return "No new words found.", keyboardWords, nil
	}
	return fmt.Sprintf("Words added: %d.", added), keyboardWords, nil
}

func (r *Router) removeKeywords(raw string) (string, keyboardMode, error) {
	words := keywords.ParseList(raw)
	if len(words) == 0 {
		return "", keyboardWords, invalidf("send words separated by commas")
	}
	removed, err := r.store.RemoveKeywords(words)
	if err != nil {
		return "", keyboardWords, err
	}
	if removed == 0 {
		return "No matching words to remove.", keyboardWords, nil
	}
	return fmt.Sprintf("Words removed: %d.", removed), keyboardWords, nil
}

func (r *Router) warnings(args []string) (string, keyboardMode, error) {
	if len(args) == 0 {
		return "", keyboardRoot, invalidf("chat_id is required: <chat_id> [user_id]")
	}
	chat, err := parseID(args[0], "chat_id")
	if err != nil {
		return "", keyboardRoot, err
	}
	if len(args) > 1 {
		user, err := parseID(args[1], "user_id")
		if err != nil {
			return "", keyboardRoot, err
		}
		return fmt.Sprintf("User %d has %d warnings in chat %d.", user, r.store.Warning(chat, user), chat), keyboardRoot, nil
	}

	all := r.store.AllWarnings(chat)
	if len(all) == 0 {
		return fmt.Sprintf("No warnings in chat %d.", chat), keyboardRoot, nil
	}
	users := make([]int64, 0, len(all))
	for uid := range all {
		users = append(users, uid)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	var b strings.Builder
	fmt.Fprintf(&b, "Warnings in chat %d:", chat)
	for _, uid := range users {
		fmt.Fprintf(&b, "\n%d: %d", uid, all[uid])
	}
	return b.String(), keyboardRoot, nil
}

func (r *Router) resetWarning(args []string) (string, keyboardMode, error) {
	if len(args) < 2 {
		return "", keyboardRoot, invalidf("chat_id and user_id are required: <chat_id> <user_id>")
	}
	chat, err := parseID(args[0], "chat_id")
	if err != nil {
		return "", keyboardRoot, err
	}
	user, err := parseID(args[1], "user_id")
	if err != nil {
		return "", keyboardRoot, err
	}
	present, err := r.store.ResetWarning(chat, user)
	if err != nil {
		return "", keyboardRoot, err
	}
	if !present {
		return fmt.Sprintf("No warnings found for user %d in chat %d.", user, chat), keyboardRoot, nil
	}
	return fmt.Sprintf("Warning counter of user %d reset.", user), keyboardRoot, nil
}

// listChats renders the moderated chats sorted by id, refreshing titles from
// getChat on the way.
func (r *Router) listChats(ctx context.Context, logger *slog.Logger) string {
	chats := r.store.ListChats()
	if len(chats) == 0 {
		return "No moderated chats."
	}
	ids := make([]int64, 0, len(chats))
	for id := range chats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var b strings.Builder
	b.WriteString("Moderated chats:")
	for _, id := range ids {
		title, handle := chats[id].Title, ""
		if info, err := r.api.GetChat(ctx, id); err == nil {
			handle = info.Username
			if info.Title != "" && info.Title != title {
				title = info.Title
				if err := r.store.UpdateTitle(id, title); err != nil {
					logger.Warn("admin_update_title_failed", "chat_id", id, "error", err.Error())
				}
			}
		}
		display := title
		switch {
		case display != "":
		case handle != "":
			display = "@" + handle
		default:
			display = "Untitled"
		}
		fmt.Fprintf(&b, "\n%s (%d), warned users: %d", display, id, len(chats[id].Warnings))
	}
	return b.String()
}

func (r *Router) listKeywords() string {
	list := r.store.ListKeywords()
	if len(list) == 0 {
		return "The keyword list is empty."
	}
	return "Keywords:\n" + strings.Join(list, "\n")
}

// splitCommand returns the normalized command word ("/cmd" without a
// "@bot" suffix, lowercased) and its arguments. cmd is empty for empty text.
func splitCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	cmd := fields[0]
	if strings.HasPrefix(cmd, "/") {
		if at := strings.IndexByte(cmd, '@'); at > 0 {
			cmd = cmd[:at]
		}
		cmd = strings.ToLower(cmd)
	}
	return cmd, fields[1:]
}

func parseID(raw, field string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, invalidf("invalid number for %s: %s", field, raw)
	}
	return id, nil
}

// joinTitle joins the remaining words and drops one pair of surrounding
// quotes.
func joinTitle(args []string) string {
	title := strings.TrimSpace(strings.Join(args, " "))
	if len(title) >= 2 {
		first, last := title[0], title[len(title)-1]
		if (first == '"' || first == '\'') && first == last {
			title = strings.TrimSpace(title[1 : len(title)-1])
		}
	}
	return title
}
