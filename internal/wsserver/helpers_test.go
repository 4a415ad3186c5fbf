package wsserver

import (
	"testing"

	"github.com/OmarEhab007/notification-hub/internal/topic"
)

func mustTopic(t *testing.T, s string) topic.Name {
	t.Helper()
	n, err := topic.New(s)
	if err != nil {
		t.Fatalf("invalid test topic %q: %v", s, err)
	}
	return n
}

func mustPayload(s string) topic.Payload {
	return topic.NewPayload(s)
}
