package store

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/rileyhilliard/statuspage/internal/api"
)

// StatusKey derives the UI identifier of a status record from
// (checkKey, server, time). Each part is length-prefixed before encoding so
// no two distinct triples share a key.
func StatusKey(checkKey, server, time string) string {
	var b strings.Builder
	for _, part := range []string{checkKey, server, time} {
		b.WriteString(strconv.Itoa(len(part)))
		b.WriteByte(':')
		b.WriteString(part)
	}
	return base64.RawURLEncoding.EncodeToString([]byte(b.String()))
}

// assignKeys stamps every status of every check with its StatusKey.
// Records repeating an earlier time in the same history get an occurrence
// suffix; '~' is outside the base64url alphabet so suffixed keys cannot
// collide with plain ones.
func assignKeys(checks []api.Check) {
	for i := range checks {
		check := &checks[i]
		for server, statuses := range check.CheckStatuses {
			seen := make(map[string]int, len(statuses))
			for j := range statuses {
				st := &statuses[j]
				key := StatusKey(check.Key, server, st.Time)
				if n := seen[st.Time]; n > 0 {
					key += "~" + strconv.Itoa(n)
				}
				seen[st.Time]++
				st.Key = key
			}
		}
	}
}
