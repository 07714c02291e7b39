package sync

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/clinic-chat/internal/model"
)

// compareTimestamps orders two server timestamps. RFC 3339 values are
// compared as instants; anything else falls back to string order.
func compareTimestamps(a, b string) int {
	ta, errA := time.Parse(time.RFC3339Nano, a)
	tb, errB := time.Parse(time.RFC3339Nano, b)
	if errA == nil && errB == nil {
		return ta.Compare(tb)
	}
	return strings.Compare(a, b)
}

// sortMessages orders messages ascending by timestamp. Ties are broken by
// server sequence when both messages carry one, and by arrival order
// otherwise.
func sortMessages(msgs []model.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		if c := compareTimestamps(msgs[i].Timestamp, msgs[j].Timestamp); c != 0 {
			return c < 0
		}
		if msgs[i].Seq > 0 && msgs[j].Seq > 0 {
			return msgs[i].Seq < msgs[j].Seq
		}
		return false
	})
}

// maxTimestamp returns the greatest non-empty timestamp in msgs.
func maxTimestamp(msgs []model.Message) (string, bool) {
	var best string
	found := false
	for _, m := range msgs {
		if m.Timestamp == "" {
			continue
		}
		if !found || compareTimestamps(m.Timestamp, best) > 0 {
			best = m.Timestamp
			found = true
		}
	}
	return best, found
}

// messageKeys returns the server identities of a message: its id and its
// sequence number.
func messageKeys(m model.Message) []string {
	keys := make([]string, 0, 2)
	if m.ID != "" {
		keys = append(keys, "id:"+m.ID)
	}
	if m.Seq > 0 {
		keys = append(keys, "seq:"+strconv.FormatInt(m.Seq, 10))
	}
	return keys
}

// contentKey identifies a message by what it says and when. Two messages
// with server identities never collapse on it; it only matches messages
// that carry none.
func contentKey(m model.Message) string {
	return m.Timestamp + "\x00" + m.Sender + "\x00" + m.Text
}

// mergeMessages appends the incoming messages not already present in
// existing and returns the ordered result. existing is not modified.
func mergeMessages(existing, incoming []model.Message) []model.Message {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	contents := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]model.Message, 0, len(existing)+len(incoming))

	add := func(m model.Message) {
		keys := messageKeys(m)
		content := contentKey(m)
		if len(keys) == 0 {
			if _, dup := contents[content]; dup {
				return
			}
		}
		for _, k := range keys {
			if _, dup := seen[k]; dup {
				return
			}
		}
		for _, k := range keys {
			seen[k] = struct{}{}
		}
		contents[content] = struct{}{}
		out = append(out, m)
	}

	for _, m := range existing {
		add(m)
	}
	for _, m := range incoming {
		add(m)
	}
	sortMessages(out)
	return out
}

// laterCursor returns whichever of current and candidate is newer.
func laterCursor(current *string, candidate string) *string {
	if current != nil && compareTimestamps(*current, candidate) >= 0 {
		return current
	}
	return &candidate
}
