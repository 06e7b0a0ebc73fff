package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParticipantFields(t *testing.T) {
	fields := participantFields()

	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f["name"].(string))
	}
	assert.Equal(t, []string{"srn", "entry", "dinner", "snacks", "breakfast"}, names)
	assert.Equal(t, []string{"done"}, fields[1]["values"])
}

func TestMissingFields(t *testing.T) {
	existing := []map[string]interface{}{
		{"name": "id", "type": "text"},
		{"name": "srn", "type": "text"},
		{"name": "entry", "type": "select"},
	}

	missing := missingFields(existing, participantFields())

	var names []string
	for _, f := range missing {
		names = append(names, f["name"].(string))
	}
	assert.Equal(t, []string{"dinner", "snacks", "breakfast"}, names)
}
