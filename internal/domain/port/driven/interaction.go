package driven

import "context"

// Confirmer asks the operator a yes/no question before a destructive change.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// UserResolver resolves the identity of the invoking OS account, used as the
// default credential owner.
type UserResolver interface {
	CurrentUser() (string, error)
}
