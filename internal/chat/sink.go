package chat

import "chatdesk/internal/domain"

// Sink receives the state changes a send produces, in order. Methods are
// called from the sending goroutine; the conversation passed to Conversation
// is reused by the next call and must not be retained.
type Sink interface {
	Loading(on bool)
	Streaming(on bool)
	Status(status domain.Status)
	ResetStatus()
	Conversation(conv *domain.Conversation)
	Alert(message string)
	// Confirm asks whether to go ahead with an expensive request.
	Confirm(est CostEstimate) bool
}

// NopSink discards updates and confirms every request.
type NopSink struct{}

func (NopSink) Loading(bool)                      {}
func (NopSink) Streaming(bool)                    {}
func (NopSink) Status(domain.Status)              {}
func (NopSink) ResetStatus()                      {}
func (NopSink) Conversation(*domain.Conversation) {}
func (NopSink) Alert(string)                      {}
func (NopSink) Confirm(CostEstimate) bool         { return true }
