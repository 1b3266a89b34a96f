package retry

import "github.com/vvka-141/pgload/pkg/pgload"

// CompositeClassifier treats an error as transient when any member does.
// With no members it recognises network failures only.
type CompositeClassifier struct {
	members []pgload.ErrorClassifier
}

// NewCompositeClassifier combines classifiers.
func NewCompositeClassifier(members ...pgload.ErrorClassifier) *CompositeClassifier {
	return &CompositeClassifier{members: members}
}

// IsTransient determines if an error is temporary and retryable.
func (c *CompositeClassifier) IsTransient(err error) bool {
	if err == nil || isContextError(err) {
		return false
	}
	if len(c.members) == 0 {
		return isTransientNetworkError(err) || hasTransientMessage(err)
	}
	for _, m := range c.members {
		if m.IsTransient(err) {
			return true
		}
	}
	return false
}

// ClassifierFunc adapts a function to pgload.ErrorClassifier.
type ClassifierFunc func(err error) bool

// IsTransient calls f(err).
func (f ClassifierFunc) IsTransient(err error) bool {
	return f(err)
}
