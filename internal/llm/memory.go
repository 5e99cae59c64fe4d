package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// maxTurnPairs bounds ConversationMemory to the last N=10 user/assistant
// turn-pairs (spec.md §4.B).
const maxTurnPairs = 10

// maxEstimatedTokens is the soft token budget checked with tiktoken-go
// each time Append records a pair; when exceeded the oldest pairs are
// dropped even if the turn-pair cap has not been reached yet.
const maxEstimatedTokens = 6000

// turnPair is one user message plus the assistant's reply to it.
type turnPair struct {
	user      Message
	assistant Message
}

// session is a single external caller's conversation state.
type session struct {
	pairs []turnPair
}

// ConversationMemory is a mutex-guarded map keyed by external caller id
// (chat user id, API caller id), grounded on the teacher's
// store/memory/memory.go map-of-structs style (plain Go map behind a
// sync.RWMutex, no ORM). Unlike the teacher's store, entries here are
// transient conversation turns, not persisted records.
type ConversationMemory struct {
	mu       sync.RWMutex
	sessions map[string]*session
	encoding *tiktoken.Tiktoken
}

// NewConversationMemory builds an empty memory. The tiktoken encoding used
// for budget estimation is resolved here, once, and estimation falls back to
// a characters-per-token heuristic if the encoding cannot be loaded (no
// network access to fetch the BPE ranks file in some environments).
func NewConversationMemory() *ConversationMemory {
	enc, _ := tiktoken.GetEncoding("cl100k_base")
	return &ConversationMemory{
		sessions: make(map[string]*session),
		encoding: enc,
	}
}

// Append records a new user/assistant turn-pair for externalID, dropping the
// oldest pair(s) when the N=10 window or the token budget is exceeded.
func (c *ConversationMemory) Append(externalID string, user, assistant Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[externalID]
	if !ok {
		s = &session{}
		c.sessions[externalID] = s
	}

	s.pairs = append(s.pairs, turnPair{user: user, assistant: assistant})
	if len(s.pairs) > maxTurnPairs {
		s.pairs = s.pairs[len(s.pairs)-maxTurnPairs:]
	}

	for len(s.pairs) > 1 && c.estimateTokens(s.pairs) > maxEstimatedTokens {
		s.pairs = s.pairs[1:]
	}
}

// History returns the current windowed turn-pairs for externalID as a flat
// message slice (oldest first), ready to prepend to a fresh user message.
func (c *ConversationMemory) History(externalID string) []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.sessions[externalID]
	if !ok {
		return nil
	}

	messages := make([]Message, 0, len(s.pairs)*2)
	for _, p := range s.pairs {
		messages = append(messages, p.user, p.assistant)
	}
	return messages
}

// Clear removes externalID's session entirely. Called on explicit
// unlink/logout or when the tool registry is replaced (spec.md §4.B).
func (c *ConversationMemory) Clear(externalID string) {
	c.mu.Lock()
	delete(c.sessions, externalID)
	c.mu.Unlock()
}

func (c *ConversationMemory) estimateTokens(pairs []turnPair) int {
	var total int
	for _, p := range pairs {
		total += c.estimateMessageTokens(p.user) + c.estimateMessageTokens(p.assistant)
	}
	return total
}

func (c *ConversationMemory) estimateMessageTokens(m Message) int {
	text, ok := m.Content.(string)
	if !ok {
		return 0
	}
	if c.encoding != nil {
		return len(c.encoding.Encode(text, nil, nil))
	}
	// Fallback heuristic: ~4 characters per token, matching the common
	// rule of thumb for English/Arabic mixed text when the BPE ranks
	// table could not be loaded.
	return len(text) / 4
}
