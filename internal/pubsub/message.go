package pubsub

import "encoding/json"

// UpdateMessage builds the {"update": "<content-HTML string>"} payload
// published after a non-draft article is re-materialized.
func UpdateMessage(contentHTML string) Message {
	return mustMarshal(map[string]string{"update": contentHTML})
}

// RedirectMessage builds the {"redirect": "<relative URL>"} payload
// published when an article becomes a draft or is removed.
func RedirectMessage(target string) Message {
	return mustMarshal(map[string]string{"redirect": target})
}

func mustMarshal(v map[string]string) Message {
	b, err := json.Marshal(v)
	if err != nil {
		// Both callers pass a single string field; Marshal cannot fail here.
		panic(err)
	}
	return Message(b)
}
