package progression

import domainagg "github.com/Joshykins/stupid-neko-sub001/internal/domain/aggregates"

var (
	ErrMissingUser      = domainagg.NewError(domainagg.CodePreconditionFailed, "progression", "user not found", nil)
	ErrMissingProfile   = domainagg.NewError(domainagg.CodePreconditionFailed, "progression", "target language profile not found", nil)
	ErrActivityNotFound = domainagg.NewError(domainagg.CodeNotFound, "progression", "activity not found", nil)
	ErrAlreadyReversed  = domainagg.NewError(domainagg.CodePreconditionFailed, "progression", "activity already reversed", nil)

	// Group outcomes reported by the sessionizer; neither aborts a batch.
	ErrLabelNotReady = domainagg.NewError(domainagg.CodePreconditionFailed, "sessionizer", "content label not ready", nil)
	ErrOffTarget     = domainagg.NewError(domainagg.CodePreconditionFailed, "sessionizer", "content language does not match target language", nil)
)
