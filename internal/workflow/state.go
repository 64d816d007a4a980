// SPDX-License-Identifier: AGPL-3.0-only
package workflow

import "github.com/aegirops/formation-langgraph/internal/llm"

// TestInfo describes the test under analysis.
type TestInfo struct {
	Name string `json:"name"`
	Log  string `json:"log"`
}

// FileInfo describes the source file related to the test.
type FileInfo struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// State is threaded through the nodes of a run. It is created fresh for
// every run and dropped afterwards.
type State struct {
	Messages           []llm.Message
	Output             string
	Test               *TestInfo
	File               *FileInfo
	LogAnalysis        string
	NotificationStatus string
}

// NewState creates a state seeded with the given conversation.
func NewState(messages ...llm.Message) State {
	return State{Messages: cloneMessages(messages)}
}

// Patch is a partial state update returned by a node. Nil fields are left
// untouched by Merge; set fields replace the previous value wholesale.
type Patch struct {
	Messages           *[]llm.Message
	Output             *string
	Test               *TestInfo
	File               *FileInfo
	LogAnalysis        *string
	NotificationStatus *string
}

func (p Patch) WithMessages(m []llm.Message) Patch {
	c := cloneMessages(m)
	p.Messages = &c
	return p
}

func (p Patch) WithOutput(s string) Patch {
	p.Output = &s
	return p
}

func (p Patch) WithTest(t TestInfo) Patch {
	p.Test = &t
	return p
}

func (p Patch) WithFile(f FileInfo) Patch {
	p.File = &f
	return p
}

func (p Patch) WithLogAnalysis(s string) Patch {
	p.LogAnalysis = &s
	return p
}

func (p Patch) WithNotificationStatus(s string) Patch {
	p.NotificationStatus = &s
	return p
}

// Merge applies p to s by shallow key replacement and returns the new state.
// s itself is not modified.
func Merge(s State, p Patch) State {
	out := State{
		Messages:           cloneMessages(s.Messages),
		Output:             s.Output,
		Test:               cloneTest(s.Test),
		File:               cloneFile(s.File),
		LogAnalysis:        s.LogAnalysis,
		NotificationStatus: s.NotificationStatus,
	}
	if p.Messages != nil {
		out.Messages = cloneMessages(*p.Messages)
	}
	if p.Output != nil {
		out.Output = *p.Output
	}
	if p.Test != nil {
		out.Test = cloneTest(p.Test)
	}
	if p.File != nil {
		out.File = cloneFile(p.File)
	}
	if p.LogAnalysis != nil {
		out.LogAnalysis = *p.LogAnalysis
	}
	if p.NotificationStatus != nil {
		out.NotificationStatus = *p.NotificationStatus
	}
	return out
}

func cloneMessages(m []llm.Message) []llm.Message {
	if m == nil {
		return nil
	}
	out := make([]llm.Message, len(m))
	copy(out, m)
	return out
}

func cloneTest(t *TestInfo) *TestInfo {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneFile(f *FileInfo) *FileInfo {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}
