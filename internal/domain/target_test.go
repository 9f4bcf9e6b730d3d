package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTargetKind(t *testing.T) {
	for _, s := range []string{"task", "tasks"} {
		kind, err := ParseTargetKind(s)
		assert.NoError(t, err)
		assert.Equal(t, KindTask, kind)
	}

	_, err := ParseTargetKind("studio")
	assert.Error(t, err)
}

func TestTargetRefString(t *testing.T) {
	ref := TargetRef{Kind: KindProject, ID: 12}
	assert.Equal(t, "project#12", ref.String())
	assert.False(t, ref.IsZero())
	assert.True(t, TargetRef{Kind: KindTask}.IsZero())
}
