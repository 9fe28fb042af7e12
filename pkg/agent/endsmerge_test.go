package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holon-run/talkd/pkg/talk"
)

// ended marks the daemon of m as ended with the given code.
func ended(t *testing.T, m *talk.Memory, code string) *talk.Memory {
	t.Helper()
	require.NoError(t, m.Modify(new(talk.Directives).
		XPath("/talk/daemon").
		Add("ended").Set(talk.FormatTime(now)).Up().
		Add("code").Set(code).Up().
		Add("tail").Set("..."), "daemon ended"))
	return m
}

func TestEndsMerge(t *testing.T) {
	tests := []struct {
		code    string
		success string
	}{
		{"0", "true"},
		{"1", "false"},
		{"127", "false"},
	}
	for _, tt := range tests {
		t.Run("code "+tt.code, func(t *testing.T) {
			m := ended(t, withMerge(t, daemonTalk(t, longAgo)), tt.code)
			audits := len(m.Audit())

			require.NoError(t, EndsMerge{}.Execute(context.Background(), m))

			doc := read(t, m)
			assert.Equal(t, []string{tt.success}, doc.Strings("/talk/merge-request-git/success/text()"))
			assert.False(t, doc.Exists("/talk/daemon"))
			assert.True(t, doc.Exists("/talk/shell"))
			assert.Len(t, m.Audit(), audits+1, "success and daemon removal are one edit set")
		})
	}
}

func TestEndsMerge_NoOps(t *testing.T) {
	tests := []struct {
		name string
		talk func(t *testing.T) *talk.Memory
	}{
		{"no merge request", func(t *testing.T) *talk.Memory { return ended(t, daemonTalk(t, longAgo), "0") }},
		{"daemon running", func(t *testing.T) *talk.Memory { return withMerge(t, daemonTalk(t, longAgo)) }},
		{"no daemon yet", func(t *testing.T) *talk.Memory { return withMerge(t, talk.NewMemory("t")) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.talk(t)
			before := read(t, m)
			require.NoError(t, EndsMerge{}.Execute(context.Background(), m))
			assert.Equal(t, before, read(t, m))
		})
	}
}

func TestEndsMerge_Idempotent(t *testing.T) {
	m := ended(t, withMerge(t, daemonTalk(t, longAgo)), "0")
	require.NoError(t, EndsMerge{}.Execute(context.Background(), m))
	audits := len(m.Audit())

	require.NoError(t, EndsMerge{}.Execute(context.Background(), m))

	assert.Len(t, m.Audit(), audits)
	assert.Equal(t, []string{"true"}, read(t, m).Strings("/talk/merge-request-git/success/text()"))
}

func TestEndsMerge_MalformedCode(t *testing.T) {
	m := withMerge(t, daemonTalk(t, longAgo))
	require.NoError(t, m.Modify(new(talk.Directives).XPath("/talk/daemon").Add("ended").Set(talk.FormatTime(now)), "ended"))

	assert.Error(t, EndsMerge{}.Execute(context.Background(), m))
	assert.False(t, read(t, m).Exists("/talk/merge-request-git/success"))

	require.NoError(t, m.Modify(new(talk.Directives).XPath("/talk/daemon").Add("code").Set("zero"), "bad code"))
	assert.Error(t, EndsMerge{}.Execute(context.Background(), m))
}
