package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTurnCompleted(t *testing.T) {
	ok := TurnCompleted("u1", "s1", "t1", "English", false)
	assert.Equal(t, TypeTurnResolved, ok.EventType())
	assert.Equal(t, "s1", ok.Payload()["session_id"])
	assert.False(t, ok.Timestamp().IsZero())

	failed := TurnCompleted("u1", "s1", "t2", "Amharic", true)
	assert.Equal(t, TypeTurnFailed, failed.EventType())
	assert.NotContains(t, failed.Payload(), "content")
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), SessionCreated("u1", "s1")))
}
