package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/tend/internal/core/domain"
)

func TestCoalesce(t *testing.T) {
	tests := []struct {
		name string
		seq  []domain.EventKind
		want domain.EventKind
	}{
		{"single write", []domain.EventKind{domain.EventModified}, domain.EventModified},
		{"create then writes", []domain.EventKind{domain.EventCreated, domain.EventModified, domain.EventModified}, domain.EventCreated},
		{"write then delete", []domain.EventKind{domain.EventModified, domain.EventDeleted}, domain.EventDeleted},
		{"delete then create", []domain.EventKind{domain.EventDeleted, domain.EventCreated}, domain.EventModified},
		{"create then delete", []domain.EventKind{domain.EventCreated, domain.EventDeleted}, domain.EventDeleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind := tt.seq[0]
			for _, next := range tt.seq[1:] {
				kind = domain.Coalesce(kind, next)
			}
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestChangeEvent_Paths(t *testing.T) {
	ev := domain.ChangeEvent{Path: "/vault/Notes/Daily/today.MD", Root: "/vault"}

	assert.Equal(t, "Notes/Daily/today.MD", ev.Rel())
	assert.Equal(t, ".md", ev.Ext())
	assert.True(t, ev.Under("Notes"))
	assert.True(t, ev.Under("Notes/Daily/"))
	assert.True(t, ev.Under(""))
	assert.False(t, ev.Under("Note"))
	assert.False(t, ev.Under("Inbox"))

	outside := domain.ChangeEvent{Path: "/elsewhere/x.md", Root: "/vault"}
	assert.False(t, outside.Under(""))
}

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "created", domain.EventCreated.String())
	assert.Equal(t, "modified", domain.EventModified.String())
	assert.Equal(t, "deleted", domain.EventDeleted.String())
	assert.Equal(t, "unknown", domain.EventKind(42).String())
}
