package opendata

import "fmt"

// Notifier receives human-readable progress messages while a fetch is in
// flight. It is a side channel for live UI feedback and never influences
// control flow. Implementations must not block.
type Notifier func(message string)

// NopNotifier discards all messages.
func NopNotifier(string) {}

// Notify sends a message, tolerating a nil sink.
func (n Notifier) Notify(message string) {
	if n != nil {
		n(message)
	}
}

// Notifyf sends a formatted message, tolerating a nil sink.
func (n Notifier) Notifyf(format string, args ...any) {
	if n != nil {
		n(fmt.Sprintf(format, args...))
	}
}
