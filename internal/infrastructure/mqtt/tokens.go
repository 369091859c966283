package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// subscribeFailure is the SUBACK return code for a rejected filter.
const subscribeFailure = 0x80

var closedDone = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// doneToken is an already completed Token, used when an operation fails
// before anything is sent.
type doneToken struct {
	err error
}

func (t doneToken) Done() <-chan struct{} { return closedDone }
func (t doneToken) Error() error          { return t.err }

// failedToken returns a completed Token carrying err.
func failedToken(err error) Token {
	return doneToken{err: err}
}

// publishToken wraps paho errors in ErrPublishFailed.
type publishToken struct {
	pahomqtt.Token
}

func (t publishToken) Error() error {
	if err := t.Token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// subscribeToken wraps paho errors in ErrSubscribeFailed and treats a
// SUBACK failure code for the filter as an error.
type subscribeToken struct {
	pahomqtt.Token
	filter string
}

func (t subscribeToken) Error() error {
	if err := t.Token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	if st, ok := t.Token.(*pahomqtt.SubscribeToken); ok {
		if granted, found := st.Result()[t.filter]; found && granted == subscribeFailure {
			return fmt.Errorf("%w: broker rejected filter %q", ErrSubscribeFailed, t.filter)
		}
	}
	return nil
}
