package host

import "log/slog"

// Notifier shows short user-facing messages. Calls are fire-and-forget.
type Notifier interface {
	Notify(message string, isError bool)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string, isError bool)

func (f NotifierFunc) Notify(message string, isError bool) { f(message, isError) }

type logNotifier struct{ log *slog.Logger }

func (n logNotifier) Notify(message string, isError bool) {
	if isError {
		n.log.Error(message, slog.Bool("toast", true))
		return
	}
	n.log.Info(message, slog.Bool("toast", true))
}
