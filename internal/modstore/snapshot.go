package modstore

import (
	"strings"

	"github.com/quailyquaily/modguard/internal/keywords"
)

// snapshot is the on-disk document. Integer map keys are written as JSON
// object keys in decimal form.
type snapshot struct {
	ModeratedChats map[int64]chatRecord `json:"moderated_chats"`
	GlobalKeywords []string             `json:"global_keywords"`
}

type chatRecord struct {
	Title    string        `json:"title"`
	Warnings map[int64]int `json:"warnings"`
}

func emptySnapshot() snapshot {
	return snapshot{
		ModeratedChats: map[int64]chatRecord{},
		GlobalKeywords: []string{},
	}
}

func (s snapshot) clone() snapshot {
	out := snapshot{
		ModeratedChats: make(map[int64]chatRecord, len(s.ModeratedChats)),
		GlobalKeywords: append(make([]string, 0, len(s.GlobalKeywords)), s.GlobalKeywords...),
	}
	for id, rec := range s.ModeratedChats {
		out.ModeratedChats[id] = chatRecord{Title: rec.Title, Warnings: copyWarnings(rec.Warnings)}
	}
	return out
}

// normalized fills missing collections, drops non-positive counters and
// collapses keywords that fold to the same value.
func (s snapshot) normalized() snapshot {
	out := emptySnapshot()
	for id, rec := range s.ModeratedChats {
		warnings := make(map[int64]int, len(rec.Warnings))
		for uid, n := range rec.Warnings {
			if n > 0 {
				warnings[uid] = n
			}
		}
		out.ModeratedChats[id] = chatRecord{Title: strings.TrimSpace(rec.Title), Warnings: warnings}
	}
	seen := make(map[string]struct{}, len(s.GlobalKeywords))
	for _, kw := range s.GlobalKeywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		key := keywords.Fold(kw)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out.GlobalKeywords = append(out.GlobalKeywords, kw)
	}
	return out
}

func copyWarnings(in map[int64]int) map[int64]int {
	out := make(map[int64]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
